package airline_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/airline/store"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

func TestNextFlightNumber_FloorAndIncrement(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)

	n, err := airline.NextFlightNumber(f.ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, airline.FlightNumber("F600"), n)

	f.flight("F12", a, r, t0.Add(48*time.Hour))
	f.flight("LEGACY", a, r, t0.Add(96*time.Hour))
	n, err = airline.NextFlightNumber(f.ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, airline.FlightNumber("F600"), n)

	f.flight("F605", a, r, t0.Add(144*time.Hour))
	n, err = airline.NextFlightNumber(f.ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, airline.FlightNumber("F606"), n)
}

func TestNextOrderID_Floor(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))

	id, err := airline.NextOrderID(f.ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, airline.OrderID("O500"), id)

	f.mustBook(fl.Number, "1A")
	f.mustBook(fl.Number, "1B")
	id, err = airline.NextOrderID(f.ctx, f.store)
	require.NoError(t, err)
	assert.Equal(t, airline.OrderID("O502"), id)
}

// collidingStore makes the first InsertOrder / InsertFlight calls inside a
// transaction report an identifier collision, as a concurrent writer
// taking the same id would.
type collidingStore struct {
	*store.Memory
	orderCollisions  atomic.Int32
	flightCollisions atomic.Int32
	orderInserts     atomic.Int32
	flightInserts    atomic.Int32
}

func (s *collidingStore) WithTx(ctx context.Context, fn func(airline.Store) error) error {
	return s.Memory.WithTx(ctx, func(tx airline.Store) error {
		return fn(&collidingTx{Store: tx, parent: s})
	})
}

type collidingTx struct {
	airline.Store
	parent *collidingStore
}

func (tx *collidingTx) InsertOrder(ctx context.Context, o airline.Order, seats []airline.OrderSeat) error {
	tx.parent.orderInserts.Add(1)
	if tx.parent.orderCollisions.Add(-1) >= 0 {
		return fmt.Errorf("order %s: %w", o.ID, airline.ErrIdentifierCollision)
	}
	return tx.Store.InsertOrder(ctx, o, seats)
}

func (tx *collidingTx) InsertFlight(ctx context.Context, f airline.Flight) error {
	tx.parent.flightInserts.Add(1)
	if tx.parent.flightCollisions.Add(-1) >= 0 {
		return fmt.Errorf("flight %s: %w", f.Number, airline.ErrIdentifierCollision)
	}
	return tx.Store.InsertFlight(ctx, f)
}

func collide(f *fixture) *collidingStore {
	cs := &collidingStore{Memory: f.store}
	f.engine.Store = cs
	return cs
}

func TestReserveSeats_RetriesOnceOnOrderIDCollision(t *testing.T) {
	// GIVEN: the first order insert collides
	// THEN: the booking is re-run with a fresh id and succeeds
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))
	cs := collide(f)
	cs.orderCollisions.Store(1)

	res, err := f.book(fl.Number, "g@example.com", "1A")
	require.NoError(t, err)
	assert.Equal(t, airline.OrderID("O500"), res.Order.ID)
	assert.Equal(t, int32(2), cs.orderInserts.Load())
}

func TestReserveSeats_SecondCollisionSurfaces(t *testing.T) {
	f := newFixture(t)
	a, r := smallJet(f)
	fl := f.flight("F600", a, r, t0.Add(48*time.Hour))
	cs := collide(f)
	cs.orderCollisions.Store(2)

	_, err := f.book(fl.Number, "g@example.com", "1A")
	assert.ErrorIs(t, err, airline.ErrIdentifierCollision)
	assert.Equal(t, int32(2), cs.orderInserts.Load())

	taken, err := f.engine.Occupancy(f.ctx, fl.Number)
	require.NoError(t, err)
	assert.Empty(t, taken)
}

func TestCommit_RetriesOnceOnFlightNumberCollision(t *testing.T) {
	f := newFixture(t)
	fl := newFleet(f)
	d := shortDraft(t, f, fl, t0.Add(7*24*time.Hour))
	cs := collide(f)
	cs.flightCollisions.Store(1)

	flight, err := f.engine.Commit(f.ctx, d)
	require.NoError(t, err)
	assert.Equal(t, airline.FlightNumber("F600"), flight.Number)
	assert.Equal(t, int32(2), cs.flightInserts.Load())

	detail, err := f.engine.Flight(f.ctx, flight.Number)
	require.NoError(t, err)
	assert.Len(t, detail.Crew, 5)
}

func TestCommit_SecondCollisionSurfaces(t *testing.T) {
	f := newFixture(t)
	fl := newFleet(f)
	d := shortDraft(t, f, fl, t0.Add(7*24*time.Hour))
	cs := collide(f)
	cs.flightCollisions.Store(2)

	_, err := f.engine.Commit(f.ctx, d)
	assert.ErrorIs(t, err, airline.ErrIdentifierCollision)
	assert.Equal(t, int32(2), cs.flightInserts.Load())

	numbers, err := f.store.FlightNumbers(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestRegisterEmployee_OneRolePerID(t *testing.T) {
	f := newFixture(t)
	f.employee("E1", airline.RolePilot, true)

	e, err := airline.NewEmployee("E1", airline.RoleAttendant, "A", "B", false)
	require.NoError(t, err)
	assert.ErrorIs(t, f.engine.RegisterEmployee(f.ctx, e), airline.ErrRoleConflict)

	p, err := airline.NewEmployee("E1", airline.RolePilot, "A", "B", false)
	require.NoError(t, err)
	assert.ErrorIs(t, f.engine.RegisterEmployee(f.ctx, p), airline.ErrIdentifierCollision)
}

func TestNewAircraft_SmallHasNoBusinessCabin(t *testing.T) {
	a, err := airline.NewAircraft("S", airline.SizeSmall, airline.ManufacturerDassault, 10, 8, t0)
	require.NoError(t, err)
	assert.Zero(t, a.BusinessCapacity)
	assert.Equal(t, 10, a.TotalSeats())

	_, err = airline.NewAircraft("X", airline.SizeBig, "Cessna", 10, 0, t0)
	assert.ErrorIs(t, err, airline.ErrInvalidInput)
	_, err = airline.NewAircraft("X", airline.SizeBig, airline.ManufacturerAirbus, -1, 0, t0)
	assert.ErrorIs(t, err, airline.ErrInvalidInput)
}

func TestNewRoute_Validation(t *testing.T) {
	r, err := airline.NewRoute("R", " TLV ", "JFK", 6*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "TLV", r.Origin)
	assert.False(t, r.IsLongHaul(), "exactly 6h is not long-haul")

	_, err = airline.NewRoute("R", "TLV", "TLV", time.Hour)
	assert.ErrorIs(t, err, airline.ErrInvalidInput)
	_, err = airline.NewRoute("R", "TLV", "ATH", 0)
	assert.ErrorIs(t, err, airline.ErrInvalidInput)
}

// =============================================================================
// RETRIES AND TIMEOUTS
// =============================================================================

// flakyStore fails the first n transactions with the given error.
type flakyStore struct {
	*store.Memory
	failures int32
	err      error
	calls    atomic.Int32
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(airline.Store) error) error {
	if s.calls.Add(1) <= s.failures {
		return s.err
	}
	return s.Memory.WithTx(ctx, fn)
}

// stuckStore never completes a transaction before the deadline.
type stuckStore struct {
	*store.Memory
	calls atomic.Int32
}

func (s *stuckStore) WithTx(ctx context.Context, _ func(airline.Store) error) error {
	s.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestEngine_RetriesConcurrentModification(t *testing.T) {
	s := &flakyStore{Memory: store.NewMemory(), failures: 2, err: airline.ErrConcurrentModification}
	e := airline.NewEngine(s)
	r, err := airline.NewRoute("R1", "TLV", "ATH", time.Hour)
	require.NoError(t, err)

	require.NoError(t, e.RegisterRoute(context.Background(), r))
	assert.Equal(t, int32(3), s.calls.Load())
}

func TestEngine_GivesUpAfterMaxAttempts(t *testing.T) {
	s := &flakyStore{Memory: store.NewMemory(), failures: 10, err: airline.ErrConcurrentModification}
	e := airline.NewEngine(s)
	r, _ := airline.NewRoute("R1", "TLV", "ATH", time.Hour)

	err := e.RegisterRoute(context.Background(), r)
	assert.ErrorIs(t, err, airline.ErrConcurrentModification)
	assert.True(t, airline.IsRetryable(err))
	assert.Equal(t, int32(airline.DefaultMaxAttempts), s.calls.Load())
}

func TestEngine_NoRetryOnRejection(t *testing.T) {
	s := &flakyStore{Memory: store.NewMemory(), failures: 1, err: airline.ErrSeatConflict}
	e := airline.NewEngine(s)
	r, _ := airline.NewRoute("R1", "TLV", "ATH", time.Hour)

	assert.ErrorIs(t, e.RegisterRoute(context.Background(), r), airline.ErrSeatConflict)
	assert.Equal(t, int32(1), s.calls.Load())
}

func TestEngine_TimeoutIsRetryableError(t *testing.T) {
	s := &stuckStore{Memory: store.NewMemory()}
	e := airline.NewEngine(s)
	e.OpTimeout = 10 * time.Millisecond
	e.MaxAttempts = 2
	r, _ := airline.NewRoute("R1", "TLV", "ATH", time.Hour)

	err := e.RegisterRoute(context.Background(), r)

	assert.ErrorIs(t, err, airline.ErrTimeout)
	assert.True(t, airline.IsRetryable(err))
	assert.Equal(t, int32(2), s.calls.Load())
}

func TestEngine_RollbackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx
	r, _ := airline.NewRoute("R1", "TLV", "ATH", time.Hour)

	err := f.store.WithTx(ctx, func(s airline.Store) error {
		require.NoError(t, s.InsertRoute(ctx, r))
		return airline.ErrInvalidInput
	})
	require.Error(t, err)

	_, err = f.store.GetRoute(ctx, "R1")
	assert.ErrorIs(t, err, airline.ErrNotFound)
}
