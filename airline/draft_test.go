package airline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flytau/ops-engine/airline"
)

// fleet registers a short-haul and a long-haul route, one aircraft of each
// size, and enough qualified and unqualified crew for either.
type fleet struct {
	short, long airline.Route
	small, big  airline.Aircraft
	pilots      []airline.Employee // P1-P2 unqualified, P3-P5 qualified
	attendants  []airline.Employee // A1-A3 unqualified, A4-A9 qualified
}

func newFleet(f *fixture) fleet {
	fl := fleet{
		short: f.route("R-SHORT", "TLV", "ATH", 2*time.Hour),
		long:  f.route("R-LONG", "TLV", "JFK", 12*time.Hour),
		small: f.aircraft("S-1", airline.SizeSmall, airline.ManufacturerAirbus, 30, 0),
		big:   f.aircraft("B-1", airline.SizeBig, airline.ManufacturerBoeing, 200, 20),
	}
	for i := 1; i <= 5; i++ {
		fl.pilots = append(fl.pilots, f.employee("P"+string(rune('0'+i)), airline.RolePilot, i > 2))
	}
	for i := 1; i <= 9; i++ {
		fl.attendants = append(fl.attendants, f.employee("A"+string(rune('0'+i)), airline.RoleAttendant, i > 3))
	}
	return fl
}

func ids(emps []airline.Employee) []airline.EmployeeID {
	out := make([]airline.EmployeeID, len(emps))
	for i, e := range emps {
		out[i] = e.ID
	}
	return out
}

func aircraftIDs(as []airline.Aircraft) []airline.AircraftID {
	out := make([]airline.AircraftID, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

// shortDraft walks a short-haul draft through every step.
func shortDraft(t *testing.T, f *fixture, fl fleet, departure time.Time) airline.Draft {
	t.Helper()
	d, _, err := f.engine.StartDraft(f.ctx, "TLV", "ATH", departure)
	require.NoError(t, err)
	d, err = f.engine.SelectAircraft(f.ctx, d, fl.small.ID)
	require.NoError(t, err)
	d, err = f.engine.SelectCrew(f.ctx, d, airline.RolePilot, ids(fl.pilots[:2]))
	require.NoError(t, err)
	d, err = f.engine.SelectCrew(f.ctx, d, airline.RoleAttendant, ids(fl.attendants[:3]))
	require.NoError(t, err)
	d, err = airline.SetPricing(d, money("120"), money("999"))
	require.NoError(t, err)
	return d
}

func TestStartDraft_RouteAndAircraft(t *testing.T) {
	f := newFixture(t)
	fl := newFleet(f)
	dep := t0.Add(7 * 24 * time.Hour)

	d, aircraft, err := f.engine.StartDraft(f.ctx, "TLV", "ATH", dep)
	require.NoError(t, err)
	assert.Equal(t, fl.short.ID, d.Route.ID)
	assert.Equal(t, dep.Add(2*time.Hour), d.Arrival)
	assert.False(t, d.LongHaul)
	assert.Equal(t, []airline.AircraftID{"B-1", "S-1"}, aircraftIDs(aircraft))

	long, aircraft, err := f.engine.StartDraft(f.ctx, "TLV", "JFK", dep)
	require.NoError(t, err)
	assert.True(t, long.LongHaul)
	assert.Equal(t, []airline.AircraftID{"B-1"}, aircraftIDs(aircraft))

	_, err = f.engine.SelectAircraft(f.ctx, long, fl.small.ID)
	assert.ErrorIs(t, err, airline.ErrAircraftUnsuitable)

	_, _, err = f.engine.StartDraft(f.ctx, "ATH", "TLV", dep)
	assert.ErrorIs(t, err, airline.ErrNotFound)

	_, _, err = f.engine.StartDraft(f.ctx, "TLV", "ATH", t0.Add(-time.Hour))
	assert.ErrorIs(t, err, airline.ErrInvalidInput)
}

func TestAvailableAircraft_ExcludesBusyAndMisplaced(t *testing.T) {
	f := newFixture(t)
	fl := newFleet(f)
	dep := t0.Add(7 * 24 * time.Hour)

	// S-1 overlaps the candidate; B-1 lands in ROM the day before.
	f.flight("F600", fl.small, fl.short, dep.Add(-time.Hour))
	rom := f.route("R-ROM", "ATH", "ROM", 3*time.Hour)
	f.flight("F601", fl.big, rom, dep.Add(-24*time.Hour))

	_, aircraft, err := f.engine.StartDraft(f.ctx, "TLV", "ATH", dep)
	require.NoError(t, err)
	assert.Empty(t, aircraft)

	d, _, _ := f.engine.StartDraft(f.ctx, "TLV", "ATH", dep)
	_, err = f.engine.SelectAircraft(f.ctx, d, fl.big.ID)
	assert.ErrorIs(t, err, airline.ErrChainMismatch)
	var cand *airline.CandidateError
	require.ErrorAs(t, err, &cand)
	assert.Equal(t, "B-1", cand.Resource)
}

func TestAvailableCrew_LongHaulNeedsQualified(t *testing.T) {
	f := newFixture(t)
	fl := newFleet(f)
	d, _, err := f.engine.StartDraft(f.ctx, "TLV", "JFK", t0.Add(7*24*time.Hour))
	require.NoError(t, err)
	d, err = f.engine.SelectAircraft(f.ctx, d, fl.big.ID)
	require.NoError(t, err)

	pilots, err := f.engine.AvailableCrew(f.ctx, d, airline.RolePilot)
	require.NoError(t, err)
	assert.Equal(t, ids(fl.pilots[2:]), ids(pilots))

	_, err = f.engine.SelectCrew(f.ctx, d, airline.RolePilot, ids(fl.pilots[1:4]))
	assert.ErrorIs(t, err, airline.ErrCrewRequirement, "P2 is not qualified")

	_, err = f.engine.SelectCrew(f.ctx, d, airline.RolePilot, ids(fl.pilots[2:4]))
	assert.ErrorIs(t, err, airline.ErrCrewRequirement, "long-haul needs 3 pilots")

	d, err = f.engine.SelectCrew(f.ctx, d, airline.RolePilot, ids(fl.pilots[2:5]))
	require.NoError(t, err)
	d, err = f.engine.SelectCrew(f.ctx, d, airline.RoleAttendant, ids(fl.attendants[3:9]))
	require.NoError(t, err)

	_, err = airline.SetPricing(d, money("300"), money("0"))
	assert.ErrorIs(t, err, airline.ErrInvalidInput)
	d, err = airline.SetPricing(d, money("300"), money("1500"))
	require.NoError(t, err)
	assert.Equal(t, "1500.00", d.BusinessPrice.StringFixed(2))
}

func TestSelectCrew_ShapeRules(t *testing.T) {
	f := newFixture(t)
	fl := newFleet(f)
	d, _, err := f.engine.StartDraft(f.ctx, "TLV", "ATH", t0.Add(7*24*time.Hour))
	require.NoError(t, err)

	_, err = f.engine.SelectCrew(f.ctx, d, airline.RolePilot, ids(fl.pilots[:2]))
	assert.ErrorIs(t, err, airline.ErrDraftIncomplete, "aircraft comes first")

	d, err = f.engine.SelectAircraft(f.ctx, d, fl.small.ID)
	require.NoError(t, err)

	cases := []struct {
		name string
		role airline.CrewRole
		ids  []airline.EmployeeID
	}{
		{"too few", airline.RolePilot, []airline.EmployeeID{"P1"}},
		{"duplicate", airline.RolePilot, []airline.EmployeeID{"P1", "P1"}},
		{"wrong role", airline.RolePilot, []airline.EmployeeID{"P1", "A1"}},
		{"too many", airline.RoleAttendant, []airline.EmployeeID{"A1", "A2", "A3", "A4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.SelectCrew(f.ctx, d, tc.role, tc.ids)
			assert.ErrorIs(t, err, airline.ErrCrewRequirement)
		})
	}
}

func TestAvailableCrew_RestChain(t *testing.T) {
	// GIVEN: A1 last landed in ROM five days before the candidate (outside
	// the 4-day chaining horizon but inside the 7-day rest lookback)
	// THEN: A1 cannot start a TLV departure
	f := newFixture(t)
	fl := newFleet(f)
	dep := t0.Add(10 * 24 * time.Hour)
	rom := f.route("R-ROM", "ATH", "ROM", 3*time.Hour)
	f.flight("F600", fl.big, rom, dep.Add(-5*24*time.Hour), fl.attendants[0])

	d, _, err := f.engine.StartDraft(f.ctx, "TLV", "ATH", dep)
	require.NoError(t, err)
	d, err = f.engine.SelectAircraft(f.ctx, d, fl.small.ID)
	require.NoError(t, err)

	attendants, err := f.engine.AvailableCrew(f.ctx, d, airline.RoleAttendant)
	require.NoError(t, err)
	assert.NotContains(t, ids(attendants), airline.EmployeeID("A1"))
	assert.Len(t, attendants, 8)

	_, err = f.engine.SelectCrew(f.ctx, d, airline.RoleAttendant, ids(fl.attendants[:3]))
	assert.ErrorIs(t, err, airline.ErrRestViolation)
}

func TestSetPricing_ShortHaulDropsBusiness(t *testing.T) {
	f := newFixture(t)
	fl := newFleet(f)
	d := shortDraft(t, f, fl, t0.Add(7*24*time.Hour))

	assert.True(t, d.BusinessPrice.IsZero())
	assert.Equal(t, "120.00", d.EconomyPrice.StringFixed(2))
	assert.Empty(t, d.Missing())

	_, err := airline.SetPricing(d, money("0"), money("0"))
	assert.ErrorIs(t, err, airline.ErrInvalidInput)

	_, err = airline.SetPricing(airline.Draft{}, money("10"), money("0"))
	assert.ErrorIs(t, err, airline.ErrDraftIncomplete)
}

func TestCommit_WritesFlightAndCrew(t *testing.T) {
	f := newFixture(t)
	fl := newFleet(f)
	dep := t0.Add(7 * 24 * time.Hour)
	d := shortDraft(t, f, fl, dep)

	flight, err := f.engine.Commit(f.ctx, d)
	require.NoError(t, err)

	assert.Equal(t, airline.FlightNumber("F600"), flight.Number)
	assert.Equal(t, airline.FlightActive, flight.Status)
	assert.Equal(t, dep.Add(2*time.Hour), flight.Arrival)
	assert.Equal(t, "TLV", flight.Origin)

	detail, err := f.engine.Flight(f.ctx, flight.Number)
	require.NoError(t, err)
	assert.Len(t, detail.Crew, 5)

	// The same draft committed again collides with the flight it created.
	_, err = f.engine.Commit(f.ctx, d)
	assert.ErrorIs(t, err, airline.ErrOverlap)
	numbers, err := f.store.FlightNumbers(f.ctx)
	require.NoError(t, err)
	assert.Len(t, numbers, 1)
}

func TestCommit_RevalidatesStaleDraft(t *testing.T) {
	// GIVEN: a complete draft
	// WHEN: another manager schedules pilot P1 on an overlapping flight
	// THEN: commit is rejected and nothing is written
	f := newFixture(t)
	fl := newFleet(f)
	dep := t0.Add(7 * 24 * time.Hour)
	d := shortDraft(t, f, fl, dep)

	f.flight("F700", fl.big, fl.short, dep.Add(30*time.Minute), fl.pilots[0])

	_, err := f.engine.Commit(f.ctx, d)
	assert.ErrorIs(t, err, airline.ErrOverlap)

	numbers, err := f.store.FlightNumbers(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []airline.FlightNumber{"F700"}, numbers)
	crew, err := f.store.CrewForFlight(f.ctx, "F701")
	require.NoError(t, err)
	assert.Empty(t, crew)
}

func TestCommit_IncompleteDraft(t *testing.T) {
	f := newFixture(t)
	newFleet(f)
	d, _, err := f.engine.StartDraft(f.ctx, "TLV", "ATH", t0.Add(7*24*time.Hour))
	require.NoError(t, err)

	_, err = f.engine.Commit(f.ctx, d)
	assert.ErrorIs(t, err, airline.ErrDraftIncomplete)
	assert.Equal(t, []string{"aircraft", "pilots", "attendants", "pricing"}, d.Missing())
}
