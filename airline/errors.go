/*
errors.go - Error taxonomy for the airline engine

PURPOSE:
  Every rejection the engine can produce, in one place. None of them is
  process-fatal: callers (the HTTP layer) decide the user-facing message.

ERROR CATEGORIES:
  1. Scheduling rejections - re-exported from schedule (overlap, chain, rest)
  2. Booking rejections    - invalid seat, seat conflict, flight not bookable
  3. Lifecycle rejections  - not cancellable, too close to departure
  4. Draft rejections      - crew requirement, unsuitable aircraft, incomplete
  5. Store errors          - not found, identifier collision, concurrent
                             modification, timeout

USAGE:
  if errors.Is(err, airline.ErrSeatConflict) {
      // re-query occupancy and let the user pick again
  }

SEE ALSO:
  - schedule/errors.go: scheduling sentinels
  - engine.go:          retry policy driven by IsRetryable
*/
package airline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flytau/ops-engine/schedule"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// Scheduling, aliased so callers need only one import.
	ErrOverlap       = schedule.ErrOverlap
	ErrChainMismatch = schedule.ErrChainMismatch
	ErrRestViolation = schedule.ErrRestViolation

	// ErrInvalidSeat is returned when a requested seat is not in the
	// aircraft's inventory, is malformed, or is requested twice.
	ErrInvalidSeat = errors.New("invalid seat")

	// ErrSeatConflict is returned when a requested seat is already held by
	// an ACTIVE order on the same flight.
	ErrSeatConflict = errors.New("seat already taken")

	// ErrFlightNotBookable is returned when the flight is not ACTIVE or has
	// already departed.
	ErrFlightNotBookable = errors.New("flight is not open for booking")

	// ErrNotCancellable is returned when an order is not ACTIVE or a flight
	// is already terminal.
	ErrNotCancellable = errors.New("not cancellable")

	// ErrTooCloseToDeparture is returned by CancelFlight inside 72 hours.
	ErrTooCloseToDeparture = errors.New("too close to departure")

	// ErrIdentifierCollision is returned when an allocated flight number or
	// order id already exists at insert time.
	ErrIdentifierCollision = errors.New("identifier collision")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned by constructors and request validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRoleConflict is returned when an employee id is registered under
	// a second role.
	ErrRoleConflict = errors.New("employee already holds another role")

	// ErrCrewRequirement is returned when a crew selection has the wrong
	// size, duplicates, wrong roles, or unqualified members.
	ErrCrewRequirement = errors.New("crew requirement not met")

	// ErrAircraftUnsuitable is returned when a long-haul route is given a
	// SMALL aircraft.
	ErrAircraftUnsuitable = errors.New("aircraft unsuitable for route")

	// ErrDraftIncomplete is returned when a draft step runs before the
	// steps it depends on.
	ErrDraftIncomplete = errors.New("draft incomplete")

	// ErrConcurrentModification is returned when the store aborts a
	// transaction because of a conflicting concurrent one.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SeatError names the seats that caused a reservation to be rejected.
type SeatError struct {
	Flight FlightNumber
	Codes  []string
	Err    error // ErrInvalidSeat or ErrSeatConflict
}

func (e *SeatError) Error() string {
	return fmt.Sprintf("%v on flight %s: %s", e.Err, e.Flight, strings.Join(e.Codes, ", "))
}

func (e *SeatError) Unwrap() error { return e.Err }

// TooCloseError reports how much time was left when a cancellation was refused.
type TooCloseError struct {
	Flight    FlightNumber
	HoursLeft float64
	Required  float64
}

func (e *TooCloseError) Error() string {
	return fmt.Sprintf("flight %s departs in %.1fh, cancellation needs at least %.0fh",
		e.Flight, e.HoursLeft, e.Required)
}

func (e *TooCloseError) Unwrap() error { return ErrTooCloseToDeparture }

// NotCancellableError carries the status that blocked the transition.
type NotCancellableError struct {
	Ref    string
	Status string
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("%s is %s and cannot be cancelled", e.Ref, e.Status)
}

func (e *NotCancellableError) Unwrap() error { return ErrNotCancellable }

// CandidateError wraps a scheduling rejection with the resource it was
// raised for.
type CandidateError struct {
	Resource string // aircraft or employee id
	Err      error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("%s: %v", e.Resource, e.Err)
}

func (e *CandidateError) Unwrap() error { return e.Err }

// CrewError explains why a crew selection was refused.
type CrewError struct {
	Role   CrewRole
	Reason string
}

func (e *CrewError) Error() string {
	return fmt.Sprintf("%s crew: %s", strings.ToLower(string(e.Role)), e.Reason)
}

func (e *CrewError) Unwrap() error { return ErrCrewRequirement }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrTimeout)
}

// IsRejected returns true for business-rule rejections: the request was
// well formed but the current state does not allow it.
func IsRejected(err error) bool {
	return schedule.IsRejection(err) ||
		errors.Is(err, ErrSeatConflict) ||
		errors.Is(err, ErrFlightNotBookable) ||
		errors.Is(err, ErrNotCancellable) ||
		errors.Is(err, ErrTooCloseToDeparture) ||
		errors.Is(err, ErrRoleConflict) ||
		errors.Is(err, ErrAircraftUnsuitable)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidSeat) ||
		errors.Is(err, ErrCrewRequirement) ||
		errors.Is(err, ErrDraftIncomplete) ||
		errors.Is(err, schedule.ErrInvalidWindow)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
