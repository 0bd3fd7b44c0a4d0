/*
draft.go - Multi-step flight creation

PURPOSE:
  A Draft accumulates route, aircraft, crew and pricing selections before
  a single atomic commit. The draft is a value owned by the caller: every
  step returns a new Draft and nothing is written until Commit.

STEPS:
  StartDraft       route + departure -> Draft, aircraft able to fly it
  AvailableAircraft / SelectAircraft
  AvailableCrew    / SelectCrew        (per role)
  SetPricing
  Commit           re-runs every check against live data, allocates F<n>,
                   inserts flight and crew in one transaction

LONG-HAUL (route duration > 6h):
  - BIG aircraft only
  - qualified crew only, 3 pilots + 6 attendants (otherwise 2 + 3)
  - business price required (otherwise stored as 0)

Intermediate steps may go stale while the caller holds the draft, which
is why Commit never trusts them.

SEE ALSO:
  - schedule/availability.go: overlap and 4-day chaining
  - schedule/rest.go:         7-day crew rest chain
*/
package airline

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/flytau/ops-engine/schedule"
)

// =============================================================================
// DRAFT
// =============================================================================

type Draft struct {
	Route     Route
	Departure time.Time
	Arrival   time.Time
	LongHaul  bool

	Aircraft   AircraftID
	Pilots     []EmployeeID
	Attendants []EmployeeID

	EconomyPrice  decimal.Decimal
	BusinessPrice decimal.Decimal
	Priced        bool
}

// CrewRequirement returns how many pilots and attendants a flight needs.
func CrewRequirement(longHaul bool) (pilots, attendants int) {
	if longHaul {
		return 3, 6
	}
	return 2, 3
}

func (d Draft) candidate() schedule.Candidate {
	return schedule.Candidate{
		Start:       d.Departure,
		End:         d.Arrival,
		Origin:      d.Route.Origin,
		Destination: d.Route.Destination,
	}
}

// Crew returns the selection for role.
func (d Draft) Crew(role CrewRole) []EmployeeID {
	if role == RolePilot {
		return d.Pilots
	}
	return d.Attendants
}

func (d Draft) withCrew(role CrewRole, ids []EmployeeID) Draft {
	ids = append([]EmployeeID(nil), ids...)
	if role == RolePilot {
		d.Pilots = ids
	} else {
		d.Attendants = ids
	}
	return d
}

// Missing lists the steps not completed yet, in step order.
func (d Draft) Missing() []string {
	var missing []string
	if d.Route.ID == "" {
		missing = append(missing, "route")
	}
	if d.Aircraft == "" {
		missing = append(missing, "aircraft")
	}
	pilots, attendants := CrewRequirement(d.LongHaul)
	if len(d.Pilots) != pilots {
		missing = append(missing, "pilots")
	}
	if len(d.Attendants) != attendants {
		missing = append(missing, "attendants")
	}
	if !d.Priced {
		missing = append(missing, "pricing")
	}
	return missing
}

func (d Draft) require(steps ...string) error {
	missing := make(map[string]bool)
	for _, m := range d.Missing() {
		missing[m] = true
	}
	for _, step := range steps {
		if missing[step] {
			return fmt.Errorf("%w: %s not selected", ErrDraftIncomplete, step)
		}
	}
	return nil
}

// =============================================================================
// STEP 1 - ROUTE
// =============================================================================

// StartDraft resolves the route between origin and destination and returns
// a draft departing at departure, plus the aircraft currently able to fly it.
func (e *Engine) StartDraft(ctx context.Context, origin, destination string, departure time.Time) (Draft, []Aircraft, error) {
	if departure.IsZero() || !departure.After(e.now()) {
		return Draft{}, nil, invalid("departure must be in the future")
	}

	var route Route
	err := e.read(ctx, func(ctx context.Context, s Store) error {
		var err error
		route, err = s.FindRoute(ctx, origin, destination)
		return err
	})
	if err != nil {
		return Draft{}, nil, err
	}

	d := Draft{
		Route:     route,
		Departure: departure,
		Arrival:   departure.Add(route.Duration),
		LongHaul:  route.IsLongHaul(),
	}
	aircraft, err := e.AvailableAircraft(ctx, d)
	if err != nil {
		return Draft{}, nil, err
	}
	return d, aircraft, nil
}

// =============================================================================
// STEP 2 - AIRCRAFT
// =============================================================================

// AvailableAircraft returns, in id order, the aircraft that suit the draft
// and whose schedule accepts it.
func (e *Engine) AvailableAircraft(ctx context.Context, d Draft) ([]Aircraft, error) {
	if err := d.require("route"); err != nil {
		return nil, err
	}

	var fleet []Aircraft
	if err := e.read(ctx, func(ctx context.Context, s Store) error {
		var err error
		fleet, err = s.ListAircraft(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var suitable []Aircraft
	for _, a := range fleet {
		if suitsRoute(a, d) == nil {
			suitable = append(suitable, a)
		}
	}

	ok, err := e.screen(ctx, len(suitable), func(ctx context.Context, i int) error {
		return checkAircraft(ctx, e.Store, d, suitable[i])
	})
	if err != nil {
		return nil, err
	}
	var result []Aircraft
	for i, a := range suitable {
		if ok[i] {
			result = append(result, a)
		}
	}
	return result, nil
}

// SelectAircraft re-validates the chosen aircraft and records it.
func (e *Engine) SelectAircraft(ctx context.Context, d Draft, id AircraftID) (Draft, error) {
	if err := d.require("route"); err != nil {
		return Draft{}, err
	}
	err := e.read(ctx, func(ctx context.Context, s Store) error {
		a, err := s.GetAircraft(ctx, id)
		if err != nil {
			return err
		}
		if err := suitsRoute(a, d); err != nil {
			return err
		}
		return checkAircraft(ctx, s, d, a)
	})
	if err != nil {
		return Draft{}, err
	}
	d.Aircraft = id
	return d, nil
}

func suitsRoute(a Aircraft, d Draft) error {
	if d.LongHaul && a.Size != SizeBig {
		return fmt.Errorf("%w: %s is %s, long-haul needs %s", ErrAircraftUnsuitable, a.ID, a.Size, SizeBig)
	}
	return nil
}

func checkAircraft(ctx context.Context, s Store, d Draft, a Aircraft) error {
	flights, err := s.FlightsByAircraft(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("load schedule of %s: %w", a.ID, err)
	}
	if err := schedule.CheckAvailability(windows(flights), d.candidate()); err != nil {
		return &CandidateError{Resource: string(a.ID), Err: err}
	}
	return nil
}

// =============================================================================
// STEP 3 - CREW
// =============================================================================

// AvailableCrew returns, in id order, the employees of role that may fly
// the draft.
func (e *Engine) AvailableCrew(ctx context.Context, d Draft, role CrewRole) ([]Employee, error) {
	if err := d.require("route", "aircraft"); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, invalid("unknown crew role %q", role)
	}

	var staff []Employee
	if err := e.read(ctx, func(ctx context.Context, s Store) error {
		var err error
		staff, err = s.ListEmployees(ctx, role)
		return err
	}); err != nil {
		return nil, err
	}

	var eligible []Employee
	for _, emp := range staff {
		if !d.LongHaul || emp.Qualified {
			eligible = append(eligible, emp)
		}
	}

	ok, err := e.screen(ctx, len(eligible), func(ctx context.Context, i int) error {
		return checkCrewMember(ctx, e.Store, d, eligible[i])
	})
	if err != nil {
		return nil, err
	}
	var result []Employee
	for i, emp := range eligible {
		if ok[i] {
			result = append(result, emp)
		}
	}
	return result, nil
}

// SelectCrew validates and records the full crew of one role.
func (e *Engine) SelectCrew(ctx context.Context, d Draft, role CrewRole, ids []EmployeeID) (Draft, error) {
	if err := d.require("route", "aircraft"); err != nil {
		return Draft{}, err
	}
	if err := crewShape(d, role, ids); err != nil {
		return Draft{}, err
	}
	err := e.read(ctx, func(ctx context.Context, s Store) error {
		for _, id := range ids {
			if err := loadAndCheckCrew(ctx, s, d, role, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Draft{}, err
	}
	return d.withCrew(role, ids), nil
}

func crewShape(d Draft, role CrewRole, ids []EmployeeID) error {
	if !role.Valid() {
		return invalid("unknown crew role %q", role)
	}
	pilots, attendants := CrewRequirement(d.LongHaul)
	want := attendants
	if role == RolePilot {
		want = pilots
	}
	if len(ids) != want {
		return &CrewError{Role: role, Reason: fmt.Sprintf("need exactly %d, got %d", want, len(ids))}
	}
	seen := make(map[EmployeeID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return &CrewError{Role: role, Reason: fmt.Sprintf("%s selected twice", id)}
		}
		seen[id] = true
	}
	return nil
}

func loadAndCheckCrew(ctx context.Context, s Store, d Draft, role CrewRole, id EmployeeID) error {
	emp, err := s.GetEmployee(ctx, id)
	if err != nil {
		return err
	}
	if emp.Role != role {
		return &CrewError{Role: role, Reason: fmt.Sprintf("%s is a %s", id, emp.Role)}
	}
	if d.LongHaul && !emp.Qualified {
		return &CrewError{Role: role, Reason: fmt.Sprintf("%s is not qualified for long-haul", id)}
	}
	return checkCrewMember(ctx, s, d, emp)
}

func checkCrewMember(ctx context.Context, s Store, d Draft, emp Employee) error {
	flights, err := s.FlightsByEmployee(ctx, emp.ID)
	if err != nil {
		return fmt.Errorf("load schedule of %s: %w", emp.ID, err)
	}
	history := windows(flights)
	if err := schedule.CheckAvailability(history, d.candidate()); err != nil {
		return &CandidateError{Resource: string(emp.ID), Err: err}
	}
	if err := schedule.CheckCrewRest(history, d.Departure, d.Route.Origin); err != nil {
		return &CandidateError{Resource: string(emp.ID), Err: err}
	}
	return nil
}

// =============================================================================
// STEP 4 - PRICING
// =============================================================================

// SetPricing records seat prices. Short-haul flights have no business
// price, so any value given is dropped.
func SetPricing(d Draft, economy, business decimal.Decimal) (Draft, error) {
	if err := d.require("route", "aircraft", "pilots", "attendants"); err != nil {
		return Draft{}, err
	}
	if !economy.IsPositive() {
		return Draft{}, invalid("economy price must be positive")
	}
	if d.LongHaul {
		if !business.IsPositive() {
			return Draft{}, invalid("long-haul flights need a positive business price")
		}
	} else {
		business = decimal.Zero
	}
	d.EconomyPrice = economy.Round(2)
	d.BusinessPrice = business.Round(2)
	d.Priced = true
	return d, nil
}

// =============================================================================
// STEP 5 - COMMIT
// =============================================================================

// Commit re-validates the whole draft against current data and writes the
// flight with its crew assignments atomically.
func (e *Engine) Commit(ctx context.Context, d Draft) (Flight, error) {
	if missing := d.Missing(); len(missing) > 0 {
		return Flight{}, fmt.Errorf("%w: missing %v", ErrDraftIncomplete, missing)
	}
	if !d.Departure.After(e.now()) {
		return Flight{}, invalid("departure must be in the future")
	}
	for _, role := range []CrewRole{RolePilot, RoleAttendant} {
		if err := crewShape(d, role, d.Crew(role)); err != nil {
			return Flight{}, err
		}
	}

	var flight Flight
	err := e.withFreshID(ctx, func(ctx context.Context, s Store) error {
		route, err := s.GetRoute(ctx, d.Route.ID)
		if err != nil {
			return err
		}
		live := d
		live.Route = route
		live.Arrival = d.Departure.Add(route.Duration)
		live.LongHaul = route.IsLongHaul()
		if live.LongHaul != d.LongHaul {
			return fmt.Errorf("%w: route %s changed haul class", ErrDraftIncomplete, route.ID)
		}

		a, err := s.GetAircraft(ctx, d.Aircraft)
		if err != nil {
			return err
		}
		if err := suitsRoute(a, live); err != nil {
			return err
		}
		if err := checkAircraft(ctx, s, live, a); err != nil {
			return err
		}

		var crew []CrewAssignment
		for _, role := range []CrewRole{RolePilot, RoleAttendant} {
			for _, id := range d.Crew(role) {
				if err := loadAndCheckCrew(ctx, s, live, role, id); err != nil {
					return err
				}
				crew = append(crew, CrewAssignment{EmployeeID: id, Role: role})
			}
		}

		number, err := NextFlightNumber(ctx, s)
		if err != nil {
			return err
		}
		f, err := NewFlight(number, a.ID, route, d.Departure, d.EconomyPrice, d.BusinessPrice)
		if err != nil {
			return err
		}
		if err := s.InsertFlight(ctx, f); err != nil {
			return err
		}
		for i := range crew {
			crew[i].FlightNumber = number
		}
		if err := s.InsertCrewAssignments(ctx, crew); err != nil {
			return fmt.Errorf("assign crew to %s: %w", number, err)
		}
		flight = f
		return nil
	})
	if err != nil {
		return Flight{}, err
	}
	return flight, nil
}

// =============================================================================
// SCREENING
// =============================================================================

// screen runs check for n candidates with bounded concurrency. ok[i]
// reports whether candidate i passed; scheduling rejections mark it
// false, any other error aborts the whole screen.
func (e *Engine) screen(ctx context.Context, n int, check func(context.Context, int) error) ([]bool, error) {
	ok := make([]bool, n)
	err := e.bounded(ctx, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		if e.ScreenConcurrency > 0 {
			g.SetLimit(e.ScreenConcurrency)
		}
		for i := 0; i < n; i++ {
			g.Go(func() error {
				err := check(gctx, i)
				switch {
				case err == nil:
					ok[i] = true
				case schedule.IsRejection(err):
				default:
					return err
				}
				return nil
			})
		}
		return g.Wait()
	})
	return ok, err
}

func windows(flights []Flight) []schedule.Window {
	ws := make([]schedule.Window, len(flights))
	for i, f := range flights {
		ws[i] = f.Window()
	}
	return ws
}
