package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/seating"
)

var t0 = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedFlight registers a 6-seat jet, a 2h route and one flight through the engine.
func seedFlight(t *testing.T, s *Store, now time.Time) (*airline.Engine, airline.Flight) {
	t.Helper()
	ctx := context.Background()
	e := airline.NewEngine(s)
	e.Clock = func() time.Time { return now }

	a, err := airline.NewAircraft("D-1", airline.SizeSmall, airline.ManufacturerDassault, 6, 0, t0.AddDate(-3, 0, 0))
	require.NoError(t, err)
	require.NoError(t, e.RegisterAircraft(ctx, a))
	r, err := airline.NewRoute("R1", "TLV", "ATH", 2*time.Hour)
	require.NoError(t, err)
	require.NoError(t, e.RegisterRoute(ctx, r))

	f, err := airline.NewFlight("F600", a.ID, r, t0.Add(5*24*time.Hour), decimal.RequireFromString("100.50"), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, s.InsertFlight(ctx, f))
	return e, f
}

func guest(t *testing.T, email string) airline.Purchaser {
	p, err := airline.NewGuestPurchaser(email)
	require.NoError(t, err)
	return p
}

func TestStore_FleetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, f := seedFlight(t, s, t0)

	a, err := s.GetAircraft(ctx, "D-1")
	require.NoError(t, err)
	assert.Equal(t, airline.SizeSmall, a.Size)
	assert.True(t, a.PurchaseDate.Equal(t0.AddDate(-3, 0, 0)))

	r, err := s.FindRoute(ctx, "TLV", "ATH")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, r.Duration)

	got, err := s.GetFlight(ctx, f.Number)
	require.NoError(t, err)
	assert.True(t, got.Departure.Equal(f.Departure))
	assert.True(t, got.Arrival.Equal(f.Arrival))
	assert.Equal(t, "100.5", got.EconomyPrice.String())
	assert.Equal(t, airline.FlightActive, got.Status)

	seats, err := s.ListSeats(ctx, "D-1")
	require.NoError(t, err)
	assert.Len(t, seats, 6)
	assert.Equal(t, seating.ClassEconomy, seats[0].Class)
}

func TestStore_NotFoundAndCollision(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, f := seedFlight(t, s, t0)

	_, err := s.GetFlight(ctx, "F999")
	assert.True(t, airline.IsNotFound(err))

	assert.ErrorIs(t, s.InsertFlight(ctx, f), airline.ErrIdentifierCollision)
	assert.True(t, airline.IsNotFound(s.UpdateFlightStatus(ctx, "F999", airline.FlightFull)))
}

func TestStore_CorruptColumnsAreReported(t *testing.T) {
	// GIVEN: a stored flight whose price and departure were mangled outside the store
	// THEN: reads fail instead of returning zero values
	s := newStore(t)
	ctx := context.Background()
	_, f := seedFlight(t, s, t0)

	_, err := s.db.ExecContext(ctx, `UPDATE flights SET economy_price = 'abc' WHERE number = ?`, f.Number)
	require.NoError(t, err)

	_, err = s.GetFlight(ctx, f.Number)
	require.Error(t, err)
	assert.NotErrorIs(t, err, airline.ErrNotFound)
	assert.Contains(t, err.Error(), "flights.economy_price")

	_, err = s.ListFlights(ctx, airline.FlightFilter{})
	assert.ErrorContains(t, err, "flights.economy_price")

	_, err = s.db.ExecContext(ctx, `UPDATE flights SET economy_price = '100.50', departure = 'yesterday' WHERE number = ?`, f.Number)
	require.NoError(t, err)
	_, err = s.GetFlight(ctx, f.Number)
	assert.ErrorContains(t, err, "flights.departure")
}

func TestStore_InsertSeatsSkipsExisting(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seedFlight(t, s, t0)

	seats := seating.Generate("D-1", seating.LayoutFor(string(airline.ManufacturerDassault), string(airline.SizeSmall)), 6, 0)
	n, err := s.InsertSeats(ctx, seats)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_ReserveAndCancelThroughEngine(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	e, f := seedFlight(t, s, t0)

	res, err := e.ReserveSeats(ctx, airline.ReservationRequest{
		Flight: f.Number, SeatCodes: []string{"1A", "1B"}, Passengers: 2, Purchaser: guest(t, "a@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, airline.OrderID("O500"), res.Order.ID)
	assert.Equal(t, "201.00", res.Order.Price.StringFixed(2))

	taken, err := s.ActiveSeats(ctx, f.Number)
	require.NoError(t, err)
	assert.Equal(t, []seating.Position{{Row: 1, Column: "A"}, {Row: 1, Column: "B"}}, taken)

	_, err = e.CancelByCustomer(ctx, res.Order.ID)
	require.NoError(t, err)

	o, err := s.GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, airline.OrderCustomerCancelled, o.Status)
	require.NotNil(t, o.CancelledAt)
	assert.True(t, o.CancelledAt.Equal(t0))
	assert.Equal(t, "a@example.com", o.Purchaser.GuestEmail)
	assert.Empty(t, o.Purchaser.RegisteredEmail)

	taken, err = s.ActiveSeats(ctx, f.Number)
	require.NoError(t, err)
	assert.Empty(t, taken)

	links, err := s.OrderSeats(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestStore_ConcurrentReservationsSameSeat(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	e, f := seedFlight(t, s, t0)

	buyer := guest(t, "race@example.com")
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.ReserveSeats(ctx, airline.ReservationRequest{
				Flight: f.Number, SeatCodes: []string{"2B"}, Passengers: 1, Purchaser: buyer,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, airline.ErrSeatConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestStore_ListFlightsFilter(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, f := seedFlight(t, s, t0)

	r, _ := s.GetRoute(ctx, "R1")
	later, err := airline.NewFlight("F601", "D-1", r, f.Departure.Add(48*time.Hour), decimal.NewFromInt(90), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, s.InsertFlight(ctx, later))
	require.NoError(t, s.UpdateFlightStatus(ctx, later.Number, airline.FlightCancelled))

	all, err := s.ListFlights(ctx, airline.FlightFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.Number, all[0].Number)

	active, err := s.ListFlights(ctx, airline.FlightFilter{Status: airline.FlightActive, Origin: "TLV"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, f.Number, active[0].Number)

	window, err := s.ListFlights(ctx, airline.FlightFilter{From: f.Departure.Add(time.Nanosecond), To: later.Departure.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, later.Number, window[0].Number)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx airline.Store) error {
		r, _ := airline.NewRoute("R9", "ATH", "TLV", time.Hour)
		require.NoError(t, tx.InsertRoute(ctx, r))
		return airline.ErrInvalidInput
	})
	assert.ErrorIs(t, err, airline.ErrInvalidInput)

	_, err = s.GetRoute(ctx, "R9")
	assert.True(t, airline.IsNotFound(err))
}

func TestStore_MaintenanceRunsNewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		start := t0.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.InsertMaintenanceRun(ctx, airline.MaintenanceRun{
			ID: id, StartedAt: start, FinishedAt: start.Add(time.Second), FlightsComplete: i,
		}))
	}

	runs, err := s.ListMaintenanceRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, 2, runs[0].FlightsComplete)
	assert.Empty(t, runs[0].Error)

	require.NoError(t, s.Reset(ctx))
	runs, err = s.ListMaintenanceRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
