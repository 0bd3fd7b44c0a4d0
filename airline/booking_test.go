package airline_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flytau/ops-engine/airline"
)

// smallJet is a Dassault SMALL with six economy seats: 1A-1D, 2A-2B.
func smallJet(f *fixture) (airline.Aircraft, airline.Route) {
	a := f.aircraft("D-1", airline.SizeSmall, airline.ManufacturerDassault, 6, 0)
	r := f.route("R1", "TLV", "ATH", 2*time.Hour)
	return a, r
}

func TestReserveSeats_PricesPerSeatClass(t *testing.T) {
	f := newFixture(t)
	a := f.aircraft("B-1", airline.SizeBig, airline.ManufacturerBoeing, 20, 4)
	r := f.route("R1", "TLV", "JFK", 11*time.Hour)
	fl := f.flight("F600", a, r, t0.Add(10*24*time.Hour))

	// 1A-1D are business, 1E onwards economy
	res := f.mustBook(fl.Number, "1e", "1A")

	assert.Equal(t, airline.OrderID("O500"), res.Order.ID)
	assert.Equal(t, airline.OrderActive, res.Order.Status)
	assert.Equal(t, "500.00", res.Order.Price.StringFixed(2))
	assert.Equal(t, airline.FlightActive, res.Status)
	assert.Equal(t, t0, res.Order.CreatedAt)

	taken, err := f.engine.Occupancy(f.ctx, fl.Number)
	require.NoError(t, err)
	assert.Len(t, taken, 2)
}

func TestReserveSeats_Rejections(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))
	f.mustBook(fl.Number, "1A")

	cases := []struct {
		name  string
		codes []string
		want  error
	}{
		{"not in inventory", []string{"9Z"}, airline.ErrInvalidSeat},
		{"column beyond layout", []string{"1E"}, airline.ErrInvalidSeat},
		{"malformed", []string{"A1"}, airline.ErrInvalidSeat},
		{"duplicate in request", []string{"1B", "1b"}, airline.ErrInvalidSeat},
		{"already taken", []string{"1B", "1A"}, airline.ErrSeatConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.book(fl.Number, "x@example.com", tc.codes...)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// No partial booking: 1B is still free after the conflict above.
	taken, err := f.engine.Occupancy(f.ctx, fl.Number)
	require.NoError(t, err)
	assert.Len(t, taken, 1)
}

func TestReserveSeats_SeatErrorNamesCodes(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))
	f.mustBook(fl.Number, "1A", "2B")

	_, err := f.book(fl.Number, "x@example.com", "2B", "1C", "1A")

	var seatErr *airline.SeatError
	require.ErrorAs(t, err, &seatErr)
	assert.Equal(t, []string{"1A", "2B"}, seatErr.Codes)
}

func TestReserveSeats_PassengerCountMustMatch(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))
	p, _ := airline.NewGuestPurchaser("g@example.com")

	_, err := f.engine.ReserveSeats(f.ctx, airline.ReservationRequest{
		Flight: fl.Number, SeatCodes: []string{"1A"}, Passengers: 2, Purchaser: p,
	})
	assert.ErrorIs(t, err, airline.ErrInvalidInput)

	_, err = f.engine.ReserveSeats(f.ctx, airline.ReservationRequest{
		Flight: fl.Number, Passengers: 0, Purchaser: p,
	})
	assert.ErrorIs(t, err, airline.ErrInvalidInput)
}

func TestReserveSeats_OnlyActiveFutureFlights(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)
	past := f.flight("F600", a, r, t0.Add(-4*time.Hour))
	future := f.flight("F601", a, r, t0.Add(100*time.Hour))

	_, err := f.book(past.Number, "g@example.com", "1A")
	assert.ErrorIs(t, err, airline.ErrFlightNotBookable)

	_, err = f.engine.CancelFlight(f.ctx, future.Number)
	require.NoError(t, err)
	_, err = f.book(future.Number, "g@example.com", "1A")
	assert.ErrorIs(t, err, airline.ErrFlightNotBookable)

	_, err = f.book("F999", "g@example.com", "1A")
	assert.ErrorIs(t, err, airline.ErrNotFound)
}

func TestReserveSeats_ConcurrentSameSeatOneWins(t *testing.T) {
	// GIVEN: two callers racing for seat 1A on the same flight
	// THEN: exactly one succeeds, the other gets SeatConflict
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))

	before, err := f.engine.Occupancy(f.ctx, fl.Number)
	require.NoError(t, err)

	const callers = 2
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.book(fl.Number, "racer@example.com", "1A")
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, airline.ErrSeatConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	after, err := f.engine.Occupancy(f.ctx, fl.Number)
	require.NoError(t, err)
	assert.Equal(t, len(before)+1, len(after))
}

func TestReserveSeats_LastSeatRaceLoserGetsSeatConflict(t *testing.T) {
	// GIVEN: a one-seat aircraft, two callers booking 1A at once
	// WHEN: the winner's booking flips the flight to FULL
	// THEN: the loser still gets SeatConflict, not FlightNotBookable
	f := newFixture(t)
	a := f.aircraft("D-1", airline.SizeSmall, airline.ManufacturerDassault, 1, 0)
	r := f.route("R1", "TLV", "ATH", 2*time.Hour)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))

	p, err := airline.NewGuestPurchaser("racer@example.com")
	require.NoError(t, err)
	req := airline.ReservationRequest{Flight: fl.Number, SeatCodes: []string{"1A"}, Passengers: 1, Purchaser: p}

	const callers = 2
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.ReserveSeats(f.ctx, req)
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, airline.ErrSeatConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, airline.FlightFull, f.status(fl.Number))
}

func TestReserveSeats_CancelledOrderFreesSeat(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(100*time.Hour))
	first := f.mustBook(fl.Number, "1A")

	_, err := f.engine.CancelByCustomer(f.ctx, first.Order.ID)
	require.NoError(t, err)

	second := f.mustBook(fl.Number, "1A")
	assert.Equal(t, airline.OrderID("O501"), second.Order.ID)

	// The cancelled order keeps its seat link.
	links, err := f.store.OrderSeats(f.ctx, first.Order.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestGenerateSeats_Idempotent(t *testing.T) {
	f := newFixture(t)
	a := f.aircraft("A-1", airline.SizeBig, airline.ManufacturerAirbus, 30, 6)

	first, err := f.engine.GenerateSeats(f.ctx, a.ID)
	require.NoError(t, err)
	second, err := f.engine.GenerateSeats(f.ctx, a.ID)
	require.NoError(t, err)

	assert.Len(t, first, 36)
	assert.Equal(t, first, second)

	_, err = f.engine.GenerateSeats(f.ctx, "nope")
	assert.ErrorIs(t, err, airline.ErrNotFound)
}

func TestSeatMap_MarksTakenSeats(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))
	f.mustBook(fl.Number, "2A")

	m, err := f.engine.SeatMap(f.ctx, fl.Number)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, m.Layout.Left)
	assert.Equal(t, []string{"C", "D"}, m.Layout.Right)
	require.Len(t, m.Seats, 6)
	assert.Equal(t, 5, m.Available())
	for _, s := range m.Seats {
		assert.Equal(t, s.Code() == "2A", s.Taken, s.Code())
		assert.Equal(t, "100.00", s.Price.StringFixed(2))
	}
}
