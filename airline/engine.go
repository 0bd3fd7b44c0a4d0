/*
engine.go - Engine wiring: store, clock, timeouts, retries

PURPOSE:
  The Engine is the single entry point for every operation that touches
  persisted state. It owns three cross-cutting rules:

  1. Every database-bound operation runs under OpTimeout. A deadline
     overrun surfaces as ErrTimeout, never as a hang.
  2. Read-then-write sequences run inside TxStore.WithTx, so the check
     and the write see the same snapshot.
  3. Transactions aborted with a retryable error (ErrConcurrentModification,
     ErrTimeout) are re-run from scratch, up to MaxAttempts.

USAGE:
  engine := airline.NewEngine(store)
  engine.Clock = func() time.Time { return fixed }   // tests

SEE ALSO:
  - store.go:  TxStore contract
  - errors.go: IsRetryable
*/
package airline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultOpTimeout   = 5 * time.Second
	DefaultMaxAttempts = 3
)

// Engine runs the airline operations against a TxStore.
type Engine struct {
	Store       TxStore
	Clock       func() time.Time
	OpTimeout   time.Duration
	MaxAttempts int

	// ScreenConcurrency bounds parallel candidate checks in draft steps.
	ScreenConcurrency int
}

// NewEngine creates an engine with default timeout and retry policy.
func NewEngine(store TxStore) *Engine {
	return &Engine{
		Store:             store,
		Clock:             time.Now,
		OpTimeout:         DefaultOpTimeout,
		MaxAttempts:       DefaultMaxAttempts,
		ScreenConcurrency: 8,
	}
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}

// =============================================================================
// EXECUTION HELPERS
// =============================================================================

// read runs fn against the store outside a transaction, under OpTimeout.
func (e *Engine) read(ctx context.Context, fn func(context.Context, Store) error) error {
	return e.bounded(ctx, func(ctx context.Context) error {
		return fn(ctx, e.Store)
	})
}

// withTx runs fn in a transaction, retrying retryable failures. fn may be
// called more than once, so it must reset any state it captures.
func (e *Engine) withTx(ctx context.Context, fn func(context.Context, Store) error) error {
	attempts := e.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = e.bounded(ctx, func(ctx context.Context) error {
			return e.Store.WithTx(ctx, func(s Store) error {
				return fn(ctx, s)
			})
		})
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// withFreshID is withTx for operations that allocate an identifier by
// scanning. A collision aborts the transaction, so the whole of fn runs
// once more with a recomputed identifier.
func (e *Engine) withFreshID(ctx context.Context, fn func(context.Context, Store) error) error {
	err := e.withTx(ctx, fn)
	if errors.Is(err, ErrIdentifierCollision) {
		err = e.withTx(ctx, fn)
	}
	return err
}

// bounded applies OpTimeout and maps deadline overruns to ErrTimeout.
func (e *Engine) bounded(ctx context.Context, op func(context.Context) error) error {
	if e.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.OpTimeout)
		defer cancel()
	}

	err := op(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
