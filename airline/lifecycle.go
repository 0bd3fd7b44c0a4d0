/*
lifecycle.go - Flight status state machine

PURPOSE:
  Drives a flight through ACTIVE, FULL, COMPLETED and CANCELLED.

TRANSITIONS:
  RecomputeStatus  ACTIVE <-> FULL, from occupancy vs. total capacity
  AutoComplete     ACTIVE/FULL -> COMPLETED once arrival is in the past,
                   ACTIVE orders -> COMPLETED with it
  CancelFlight     ACTIVE/FULL -> CANCELLED at least 72h before departure,
                   ACTIVE orders -> SYSTEM_CANCELLED, price 0

  COMPLETED and CANCELLED are terminal. Every operation here re-reads
  status inside its transaction, so running them repeatedly or
  concurrently has no additional effect.

SEE ALSO:
  - orders.go:  customer cancellation triggers RecomputeStatus
  - booking.go: reservation triggers RecomputeStatus
*/
package airline

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MinCancelNotice is how far ahead of departure a manager may cancel.
const MinCancelNotice = 72 * time.Hour

// =============================================================================
// OCCUPANCY-DRIVEN STATUS
// =============================================================================

// RecomputeStatus sets a non-terminal flight to FULL when every seat is
// taken and to ACTIVE otherwise. It returns the resulting status.
func (e *Engine) RecomputeStatus(ctx context.Context, number FlightNumber) (FlightStatus, error) {
	var status FlightStatus
	err := e.withTx(ctx, func(ctx context.Context, s Store) error {
		var err error
		status, err = recomputeStatus(ctx, s, number)
		return err
	})
	return status, err
}

func recomputeStatus(ctx context.Context, s Store, number FlightNumber) (FlightStatus, error) {
	f, err := s.GetFlight(ctx, number)
	if err != nil {
		return "", err
	}
	if f.Status.IsTerminal() {
		return f.Status, nil
	}

	a, err := s.GetAircraft(ctx, f.AircraftID)
	if err != nil {
		return "", err
	}
	taken, err := s.ActiveSeats(ctx, number)
	if err != nil {
		return "", fmt.Errorf("load occupancy for %s: %w", number, err)
	}

	want := FlightActive
	if total := a.TotalSeats(); total > 0 && len(taken) >= total {
		want = FlightFull
	}
	if !f.Status.CanTransition(want) {
		return f.Status, nil
	}
	if err := s.UpdateFlightStatus(ctx, number, want); err != nil {
		return "", fmt.Errorf("set %s %s: %w", number, want, err)
	}
	return want, nil
}

// =============================================================================
// COMPLETION
// =============================================================================

// CompletionResult summarizes one AutoComplete pass.
type CompletionResult struct {
	Flights []FlightNumber
	Orders  int
}

// AutoComplete marks every ACTIVE or FULL flight whose arrival has passed
// as COMPLETED, together with its ACTIVE orders. Each flight is completed
// in its own transaction.
func (e *Engine) AutoComplete(ctx context.Context) (CompletionResult, error) {
	now := e.now()

	var due []FlightNumber
	err := e.read(ctx, func(ctx context.Context, s Store) error {
		due = due[:0]
		for _, status := range []FlightStatus{FlightActive, FlightFull} {
			flights, err := s.ListFlights(ctx, FlightFilter{Status: status})
			if err != nil {
				return err
			}
			for _, f := range flights {
				if f.Arrival.Before(now) {
					due = append(due, f.Number)
				}
			}
		}
		return nil
	})
	if err != nil {
		return CompletionResult{}, err
	}

	var result CompletionResult
	for _, number := range due {
		var completed bool
		var orders int
		err := e.withTx(ctx, func(ctx context.Context, s Store) error {
			var err error
			completed, orders, err = completeFlight(ctx, s, number, now)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("complete %s: %w", number, err)
		}
		if completed {
			result.Flights = append(result.Flights, number)
			result.Orders += orders
		}
	}
	return result, nil
}

func completeFlight(ctx context.Context, s Store, number FlightNumber, now time.Time) (bool, int, error) {
	f, err := s.GetFlight(ctx, number)
	if err != nil {
		return false, 0, err
	}
	if !f.Status.CanTransition(FlightCompleted) || !f.Arrival.Before(now) {
		return false, 0, nil
	}

	if err := s.UpdateFlightStatus(ctx, number, FlightCompleted); err != nil {
		return false, 0, err
	}
	orders, err := s.OrdersByFlight(ctx, number)
	if err != nil {
		return false, 0, err
	}
	n := 0
	for _, o := range orders {
		if o.Status != OrderActive {
			continue
		}
		o.Status = OrderCompleted
		if err := s.UpdateOrder(ctx, o); err != nil {
			return false, 0, err
		}
		n++
	}
	return true, n, nil
}

// =============================================================================
// MANAGER CANCELLATION
// =============================================================================

// CancelFlight cancels a flight that departs at least 72 hours from now.
// Every ACTIVE order on it becomes SYSTEM_CANCELLED with a full refund.
// It returns the cancelled orders.
func (e *Engine) CancelFlight(ctx context.Context, number FlightNumber) ([]Order, error) {
	now := e.now()

	var refunded []Order
	err := e.withTx(ctx, func(ctx context.Context, s Store) error {
		refunded = nil

		f, err := s.GetFlight(ctx, number)
		if err != nil {
			return err
		}
		if !f.Status.CanTransition(FlightCancelled) {
			return &NotCancellableError{Ref: "flight " + string(number), Status: string(f.Status)}
		}
		if left := f.Departure.Sub(now); left < MinCancelNotice {
			return &TooCloseError{Flight: number, HoursLeft: left.Hours(), Required: MinCancelNotice.Hours()}
		}

		if err := s.UpdateFlightStatus(ctx, number, FlightCancelled); err != nil {
			return err
		}
		orders, err := s.OrdersByFlight(ctx, number)
		if err != nil {
			return err
		}
		for _, o := range orders {
			if o.Status != OrderActive {
				continue
			}
			o.Status = OrderSystemCancelled
			o.Price = decimal.Zero
			o.CancelledAt = &now
			if err := s.UpdateOrder(ctx, o); err != nil {
				return err
			}
			refunded = append(refunded, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refunded, nil
}
