package airline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// REGISTRATION
// =============================================================================

// RegisterAircraft stores an aircraft and generates its seat inventory in
// the same transaction.
func (e *Engine) RegisterAircraft(ctx context.Context, a Aircraft) error {
	a, err := NewAircraft(a.ID, a.Size, a.Manufacturer, a.EconomyCapacity, a.BusinessCapacity, a.PurchaseDate)
	if err != nil {
		return err
	}
	return e.withTx(ctx, func(ctx context.Context, s Store) error {
		if err := s.InsertAircraft(ctx, a); err != nil {
			return err
		}
		_, err := ensureSeats(ctx, s, a)
		return err
	})
}

func (e *Engine) RegisterRoute(ctx context.Context, r Route) error {
	r, err := NewRoute(r.ID, r.Origin, r.Destination, r.Duration)
	if err != nil {
		return err
	}
	return e.withTx(ctx, func(ctx context.Context, s Store) error {
		return s.InsertRoute(ctx, r)
	})
}

// RegisterEmployee stores a crew member. An id already held under the
// other role fails with ErrRoleConflict.
func (e *Engine) RegisterEmployee(ctx context.Context, emp Employee) error {
	emp, err := NewEmployee(emp.ID, emp.Role, emp.FirstName, emp.LastName, emp.Qualified)
	if err != nil {
		return err
	}
	return e.withTx(ctx, func(ctx context.Context, s Store) error {
		existing, err := s.GetEmployee(ctx, emp.ID)
		switch {
		case err == nil && existing.Role != emp.Role:
			return fmt.Errorf("%w: %s is a %s", ErrRoleConflict, emp.ID, existing.Role)
		case err == nil:
			return fmt.Errorf("%w: employee %s already registered", ErrIdentifierCollision, emp.ID)
		case !errors.Is(err, ErrNotFound):
			return err
		}
		return s.InsertEmployee(ctx, emp)
	})
}

// =============================================================================
// READS
// =============================================================================

func (e *Engine) Aircraft(ctx context.Context) ([]Aircraft, error) {
	var out []Aircraft
	err := e.read(ctx, func(ctx context.Context, s Store) (err error) {
		out, err = s.ListAircraft(ctx)
		return err
	})
	return out, err
}

func (e *Engine) Routes(ctx context.Context) ([]Route, error) {
	var out []Route
	err := e.read(ctx, func(ctx context.Context, s Store) (err error) {
		out, err = s.ListRoutes(ctx)
		return err
	})
	return out, err
}

func (e *Engine) Staff(ctx context.Context, role CrewRole) ([]Employee, error) {
	var out []Employee
	err := e.read(ctx, func(ctx context.Context, s Store) (err error) {
		out, err = s.ListEmployees(ctx, role)
		return err
	})
	return out, err
}

func (e *Engine) Flights(ctx context.Context, filter FlightFilter) ([]Flight, error) {
	var out []Flight
	err := e.read(ctx, func(ctx context.Context, s Store) (err error) {
		out, err = s.ListFlights(ctx, filter)
		return err
	})
	return out, err
}

// FlightDetail is a flight with its crew.
type FlightDetail struct {
	Flight
	Crew []CrewAssignment
}

func (e *Engine) Flight(ctx context.Context, number FlightNumber) (FlightDetail, error) {
	var out FlightDetail
	err := e.read(ctx, func(ctx context.Context, s Store) error {
		f, err := s.GetFlight(ctx, number)
		if err != nil {
			return err
		}
		crew, err := s.CrewForFlight(ctx, number)
		if err != nil {
			return err
		}
		out = FlightDetail{Flight: f, Crew: crew}
		return nil
	})
	return out, err
}

// OrderDetail is an order with its seat links.
type OrderDetail struct {
	Order
	Seats []OrderSeat
}

func (e *Engine) Order(ctx context.Context, id OrderID) (OrderDetail, error) {
	var out OrderDetail
	err := e.read(ctx, func(ctx context.Context, s Store) error {
		o, err := s.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		seats, err := s.OrderSeats(ctx, id)
		if err != nil {
			return err
		}
		out = OrderDetail{Order: o, Seats: seats}
		return nil
	})
	return out, err
}

// =============================================================================
// MAINTENANCE RUNS
// =============================================================================

// RunMaintenance performs one AutoComplete pass and records it. The run is
// recorded even when the pass fails.
func (e *Engine) RunMaintenance(ctx context.Context) (MaintenanceRun, error) {
	run := MaintenanceRun{ID: uuid.NewString(), StartedAt: e.now()}

	result, passErr := e.AutoComplete(ctx)
	run.FinishedAt = e.now()
	run.FlightsComplete = len(result.Flights)
	run.OrdersComplete = result.Orders
	if passErr != nil {
		run.Error = passErr.Error()
	}

	err := e.withTx(ctx, func(ctx context.Context, s Store) error {
		return s.InsertMaintenanceRun(ctx, run)
	})
	if passErr != nil {
		return run, passErr
	}
	return run, err
}

func (e *Engine) MaintenanceRuns(ctx context.Context, limit int) ([]MaintenanceRun, error) {
	var out []MaintenanceRun
	err := e.read(ctx, func(ctx context.Context, s Store) (err error) {
		out, err = s.ListMaintenanceRuns(ctx, limit)
		return err
	})
	return out, err
}

// Now exposes the engine clock to outer layers.
func (e *Engine) Now() time.Time { return e.now() }
