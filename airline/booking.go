/*
booking.go - Seat reservation

PURPOSE:
  Turns a seat selection into an ACTIVE order. The occupancy check and the
  order insert run in one serializable transaction: two concurrent
  requests for the same seat cannot both commit, the loser gets
  ErrSeatConflict and no seat of its request is held.

FLOW (single transaction):
  1. flight must be ACTIVE or FULL, not departed (ErrFlightNotBookable)
  2. every code must be a seat of the aircraft   (ErrInvalidSeat)
  3. no code may be in the flight's occupancy    (ErrSeatConflict)
  4. price = sum of per-seat class prices
  5. allocate O<n>, insert order + seat links
  6. RecomputeStatus (the flight may become FULL)

SEE ALSO:
  - seats.go:     inventory and occupancy
  - lifecycle.go: RecomputeStatus
*/
package airline

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/flytau/ops-engine/seating"
)

// ReservationRequest is one checkout.
type ReservationRequest struct {
	Flight     FlightNumber
	SeatCodes  []string
	Passengers int
	Purchaser  Purchaser
}

// Reservation is a committed booking.
type Reservation struct {
	Order  Order
	Seats  []seating.Seat
	Status FlightStatus // flight status after the booking
}

// ReserveSeats books the requested seats for one purchaser, all or none.
func (e *Engine) ReserveSeats(ctx context.Context, req ReservationRequest) (Reservation, error) {
	positions, err := validateRequest(req)
	if err != nil {
		return Reservation{}, err
	}
	now := e.now()

	var res Reservation
	err = e.withFreshID(ctx, func(ctx context.Context, s Store) error {
		res = Reservation{}

		f, err := s.GetFlight(ctx, req.Flight)
		if err != nil {
			return err
		}
		// FULL falls through: every seat is occupied, so step 3 rejects.
		if f.Status.IsTerminal() {
			return fmt.Errorf("%w: flight %s is %s", ErrFlightNotBookable, f.Number, f.Status)
		}
		if !now.Before(f.Departure) {
			return fmt.Errorf("%w: flight %s has departed", ErrFlightNotBookable, f.Number)
		}

		a, err := s.GetAircraft(ctx, f.AircraftID)
		if err != nil {
			return err
		}
		inventory, err := ensureSeats(ctx, s, a)
		if err != nil {
			return err
		}
		byPos := make(map[seating.Position]seating.Seat, len(inventory))
		for _, seat := range inventory {
			byPos[seat.Position] = seat
		}

		var missing []string
		for _, p := range positions {
			if _, ok := byPos[p]; !ok {
				missing = append(missing, p.Code())
			}
		}
		if len(missing) > 0 {
			return &SeatError{Flight: f.Number, Codes: missing, Err: ErrInvalidSeat}
		}

		taken, err := occupancy(ctx, s, f.Number)
		if err != nil {
			return err
		}
		var conflicts []string
		for _, p := range positions {
			if taken.Has(p) {
				conflicts = append(conflicts, p.Code())
			}
		}
		if len(conflicts) > 0 {
			return &SeatError{Flight: f.Number, Codes: conflicts, Err: ErrSeatConflict}
		}

		id, err := NextOrderID(ctx, s)
		if err != nil {
			return err
		}
		order := Order{
			ID:           id,
			FlightNumber: f.Number,
			Purchaser:    req.Purchaser,
			Status:       OrderActive,
			Price:        decimal.Zero,
			CreatedAt:    now,
		}
		links := make([]OrderSeat, len(positions))
		seats := make([]seating.Seat, len(positions))
		for i, p := range positions {
			seat := byPos[p]
			order.Price = order.Price.Add(seatPrice(f, seat.Class))
			links[i] = OrderSeat{OrderID: id, AircraftID: a.ID, Row: p.Row, Column: p.Column}
			seats[i] = seat
		}
		if err := s.InsertOrder(ctx, order, links); err != nil {
			return err
		}

		status, err := recomputeStatus(ctx, s, f.Number)
		if err != nil {
			return err
		}
		res = Reservation{Order: order, Seats: seats, Status: status}
		return nil
	})
	return res, err
}

// validateRequest checks the parts of a request that need no store access
// and returns the parsed positions in seat order.
func validateRequest(req ReservationRequest) ([]seating.Position, error) {
	if req.Passengers <= 0 {
		return nil, invalid("passenger count must be positive")
	}
	if len(req.SeatCodes) != req.Passengers {
		return nil, invalid("%d seats selected for %d passengers", len(req.SeatCodes), req.Passengers)
	}
	if err := req.Purchaser.Validate(); err != nil {
		return nil, err
	}

	var bad []string
	seen := make(seating.Set, len(req.SeatCodes))
	positions := make([]seating.Position, 0, len(req.SeatCodes))
	for _, code := range req.SeatCodes {
		p, err := seating.ParseCode(code)
		if err != nil || seen.Has(p) {
			bad = append(bad, code)
			continue
		}
		seen[p] = struct{}{}
		positions = append(positions, p)
	}
	if len(bad) > 0 {
		return nil, &SeatError{Flight: req.Flight, Codes: bad, Err: ErrInvalidSeat}
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	return positions, nil
}
