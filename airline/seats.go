package airline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/flytau/ops-engine/seating"
)

// =============================================================================
// SEAT INVENTORY
// =============================================================================

// GenerateSeats materializes the aircraft's seat inventory. Seats already
// present are left alone, so calling it again never duplicates a seat or
// changes its class.
func (e *Engine) GenerateSeats(ctx context.Context, id AircraftID) ([]seating.Seat, error) {
	var seats []seating.Seat
	err := e.withTx(ctx, func(ctx context.Context, s Store) error {
		a, err := s.GetAircraft(ctx, id)
		if err != nil {
			return err
		}
		seats, err = ensureSeats(ctx, s, a)
		return err
	})
	return seats, err
}

func layoutOf(a Aircraft) seating.Layout {
	return seating.LayoutFor(string(a.Manufacturer), string(a.Size))
}

func ensureSeats(ctx context.Context, s Store, a Aircraft) ([]seating.Seat, error) {
	generated := seating.Generate(string(a.ID), layoutOf(a), a.EconomyCapacity, a.BusinessCapacity)
	if _, err := s.InsertSeats(ctx, generated); err != nil {
		return nil, fmt.Errorf("insert seats for %s: %w", a.ID, err)
	}
	return s.ListSeats(ctx, a.ID)
}

// Occupancy returns the seats currently held by ACTIVE orders on a flight.
func (e *Engine) Occupancy(ctx context.Context, number FlightNumber) (seating.Set, error) {
	var taken seating.Set
	err := e.read(ctx, func(ctx context.Context, s Store) error {
		if _, err := s.GetFlight(ctx, number); err != nil {
			return err
		}
		var err error
		taken, err = occupancy(ctx, s, number)
		return err
	})
	return taken, err
}

func occupancy(ctx context.Context, s Store, number FlightNumber) (seating.Set, error) {
	positions, err := s.ActiveSeats(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("load occupancy for %s: %w", number, err)
	}
	return seating.NewSet(positions...), nil
}

// =============================================================================
// SEAT MAP
// =============================================================================

// SeatMap is what a seat-selection page needs: the layout blocks, every
// seat with its price, and which seats are taken.
type SeatMap struct {
	Flight Flight
	Layout seating.Layout
	Seats  []SeatView
}

type SeatView struct {
	seating.Seat
	Price decimal.Decimal
	Taken bool
}

// Available counts the seats not taken.
func (m SeatMap) Available() int {
	n := 0
	for _, s := range m.Seats {
		if !s.Taken {
			n++
		}
	}
	return n
}

// SeatMap builds the seat map of a flight, generating the aircraft's seats
// first if they were never materialized.
func (e *Engine) SeatMap(ctx context.Context, number FlightNumber) (SeatMap, error) {
	var m SeatMap
	err := e.withTx(ctx, func(ctx context.Context, s Store) error {
		f, err := s.GetFlight(ctx, number)
		if err != nil {
			return err
		}
		a, err := s.GetAircraft(ctx, f.AircraftID)
		if err != nil {
			return err
		}
		seats, err := ensureSeats(ctx, s, a)
		if err != nil {
			return err
		}
		taken, err := occupancy(ctx, s, number)
		if err != nil {
			return err
		}

		m = SeatMap{Flight: f, Layout: layoutOf(a), Seats: make([]SeatView, len(seats))}
		for i, seat := range seats {
			m.Seats[i] = SeatView{Seat: seat, Price: seatPrice(f, seat.Class), Taken: taken.Has(seat.Position)}
		}
		return nil
	})
	return m, err
}

func seatPrice(f Flight, class seating.Class) decimal.Decimal {
	if class == seating.ClassBusiness {
		return f.BusinessPrice
	}
	return f.EconomyPrice
}
