package schedule

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOverlap is returned when the candidate intersects an existing window.
	ErrOverlap = errors.New("overlapping schedule")

	// ErrChainMismatch is returned when a nearest neighbour within the chain
	// horizon is geographically inconsistent with the candidate.
	ErrChainMismatch = errors.New("chain mismatch")

	// ErrRestViolation is returned when a crew member's latest arrival within
	// the rest lookback did not land at the candidate's origin.
	ErrRestViolation = errors.New("crew rest-chain violation")

	// ErrInvalidWindow is returned when a candidate ends before it starts.
	ErrInvalidWindow = errors.New("invalid window: end before start")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// OverlapError names the window the candidate collides with.
type OverlapError struct {
	Existing Window
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlaps %s [%s, %s)", e.Existing.Ref,
		e.Existing.Start.Format(time.RFC3339), e.Existing.End.Format(time.RFC3339))
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// ChainSide tells which neighbour broke the chain.
type ChainSide string

const (
	ChainBefore ChainSide = "before"
	ChainAfter  ChainSide = "after"
)

// ChainMismatchError describes a broken chain.
//
// For ChainBefore, Expected is the neighbour's destination and Got the
// candidate's origin. For ChainAfter, Expected is the neighbour's origin and
// Got the candidate's destination.
type ChainMismatchError struct {
	Side     ChainSide
	Neighbor Window
	Expected string
	Got      string
}

func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("chain mismatch (%s %s): expected %q, got %q",
		e.Side, e.Neighbor.Ref, e.Expected, e.Got)
}

func (e *ChainMismatchError) Unwrap() error { return ErrChainMismatch }

// RestViolationError describes a broken crew rest chain.
type RestViolationError struct {
	Last            Window
	CandidateOrigin string
}

func (e *RestViolationError) Error() string {
	return fmt.Sprintf("last arrival %s landed at %q, next departure is from %q",
		e.Last.Ref, e.Last.Destination, e.CandidateOrigin)
}

func (e *RestViolationError) Unwrap() error { return ErrRestViolation }

// IsRejection reports whether err is one of the scheduling rejections.
// Rejections are expected outcomes, not failures.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrChainMismatch) ||
		errors.Is(err, ErrRestViolation)
}
