package airline_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/airline/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var t0 = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *store.Memory
	engine *airline.Engine
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), store: store.NewMemory(), now: t0}
	f.engine = airline.NewEngine(f.store)
	f.engine.Clock = func() time.Time { return f.now }
	return f
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) aircraft(id string, size airline.SizeClass, m airline.Manufacturer, economy, business int) airline.Aircraft {
	f.t.Helper()
	a, err := airline.NewAircraft(airline.AircraftID(id), size, m, economy, business, t0.AddDate(-5, 0, 0))
	require.NoError(f.t, err)
	require.NoError(f.t, f.engine.RegisterAircraft(f.ctx, a))
	return a
}

func (f *fixture) route(id, origin, destination string, duration time.Duration) airline.Route {
	f.t.Helper()
	r, err := airline.NewRoute(airline.RouteID(id), origin, destination, duration)
	require.NoError(f.t, err)
	require.NoError(f.t, f.engine.RegisterRoute(f.ctx, r))
	return r
}

func (f *fixture) employee(id string, role airline.CrewRole, qualified bool) airline.Employee {
	f.t.Helper()
	e, err := airline.NewEmployee(airline.EmployeeID(id), role, "First", "Last", qualified)
	require.NoError(f.t, err)
	require.NoError(f.t, f.engine.RegisterEmployee(f.ctx, e))
	return e
}

// flight inserts a flight directly, bypassing the draft checks, with the
// given crew attached.
func (f *fixture) flight(number string, a airline.Aircraft, r airline.Route, departure time.Time, crew ...airline.Employee) airline.Flight {
	f.t.Helper()
	fl, err := airline.NewFlight(airline.FlightNumber(number), a.ID, r, departure, money("100"), money("400"))
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.InsertFlight(f.ctx, fl))
	if len(crew) > 0 {
		var assignments []airline.CrewAssignment
		for _, e := range crew {
			assignments = append(assignments, airline.CrewAssignment{EmployeeID: e.ID, Role: e.Role, FlightNumber: fl.Number})
		}
		require.NoError(f.t, f.store.InsertCrewAssignments(f.ctx, assignments))
	}
	return fl
}

func (f *fixture) book(number airline.FlightNumber, email string, codes ...string) (airline.Reservation, error) {
	p, err := airline.NewGuestPurchaser(email)
	require.NoError(f.t, err)
	return f.engine.ReserveSeats(f.ctx, airline.ReservationRequest{
		Flight:     number,
		SeatCodes:  codes,
		Passengers: len(codes),
		Purchaser:  p,
	})
}

func (f *fixture) mustBook(number airline.FlightNumber, codes ...string) airline.Reservation {
	f.t.Helper()
	res, err := f.book(number, "guest@example.com", codes...)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) status(number airline.FlightNumber) airline.FlightStatus {
	f.t.Helper()
	fl, err := f.store.GetFlight(f.ctx, number)
	require.NoError(f.t, err)
	return fl.Status
}

func (f *fixture) order(id airline.OrderID) airline.Order {
	f.t.Helper()
	o, err := f.store.GetOrder(f.ctx, id)
	require.NoError(f.t, err)
	return o
}
