/*
orders.go - Order cancellation and pricing

PURPOSE:
  Customer-initiated cancellation of an ACTIVE order and the fee policy
  behind it.

FEE POLICY:
  hoursLeft = departure - now
  hoursLeft >  36h  -> fee = 5% of price, order keeps the fee as its price
  hoursLeft <= 36h  -> fee = full price, nothing refunded

  Amounts are rounded half away from zero to cents.

SEE ALSO:
  - lifecycle.go: system cancellation (CancelFlight) refunds in full
*/
package airline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PenaltyWindow is the notice under which cancelling forfeits the whole price.
const PenaltyWindow = 36 * time.Hour

// CancellationFeeRate applies when cancelling outside the penalty window.
var CancellationFeeRate = decimal.NewFromFloat(0.05)

// ComputeCancellationFee returns the fee for cancelling at now and the
// price the order keeps afterwards.
func ComputeCancellationFee(departure time.Time, price decimal.Decimal, now time.Time) (fee, newPrice decimal.Decimal) {
	if departure.Sub(now) > PenaltyWindow {
		fee = price.Mul(CancellationFeeRate).Round(2)
		return fee, fee
	}
	return price.Round(2), price
}

// CancellationQuote is what the customer sees before confirming.
type CancellationQuote struct {
	Order     Order
	Fee       decimal.Decimal
	NewPrice  decimal.Decimal
	Refund    decimal.Decimal
	HoursLeft float64
}

// QuoteCancellation prices a cancellation without performing it.
func (e *Engine) QuoteCancellation(ctx context.Context, id OrderID) (CancellationQuote, error) {
	now := e.now()

	var q CancellationQuote
	err := e.read(ctx, func(ctx context.Context, s Store) error {
		o, err := s.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != OrderActive {
			return &NotCancellableError{Ref: "order " + string(id), Status: string(o.Status)}
		}
		f, err := s.GetFlight(ctx, o.FlightNumber)
		if err != nil {
			return err
		}
		q = quote(o, f, now)
		return nil
	})
	return q, err
}

func quote(o Order, f Flight, now time.Time) CancellationQuote {
	fee, newPrice := ComputeCancellationFee(f.Departure, o.Price, now)
	return CancellationQuote{
		Order:     o,
		Fee:       fee,
		NewPrice:  newPrice,
		Refund:    o.Price.Sub(newPrice),
		HoursLeft: f.Departure.Sub(now).Hours(),
	}
}

// CancelByCustomer cancels an ACTIVE order, applies the fee policy and
// frees its seats, which may bring a FULL flight back to ACTIVE.
func (e *Engine) CancelByCustomer(ctx context.Context, id OrderID) (CancellationQuote, error) {
	now := e.now()

	var q CancellationQuote
	err := e.withTx(ctx, func(ctx context.Context, s Store) error {
		o, err := s.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != OrderActive {
			return &NotCancellableError{Ref: "order " + string(id), Status: string(o.Status)}
		}
		f, err := s.GetFlight(ctx, o.FlightNumber)
		if err != nil {
			return err
		}

		q = quote(o, f, now)
		o.Status = OrderCustomerCancelled
		o.Price = q.NewPrice
		o.CancelledAt = &now
		if err := s.UpdateOrder(ctx, o); err != nil {
			return err
		}
		q.Order = o

		_, err = recomputeStatus(ctx, s, f.Number)
		return err
	})
	return q, err
}
