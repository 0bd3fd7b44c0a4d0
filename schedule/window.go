/*
Package schedule holds the temporal rules that decide whether a resource
(an aircraft or a crew member) can take on another flight.

PURPOSE:
  Pure functions over a resource's history. Callers load the history from
  the store, build Windows, and ask whether a candidate window fits:

    CheckAvailability: no overlap + 4-day nearest-neighbour chaining
    CheckCrewRest:     7-day "last destination = next origin" rule

  Nothing in this package touches storage or the clock.

KEY CONCEPTS:
  - Window: one commitment of a resource, [Start, End) plus where it starts
    and where it leaves the resource.
  - Candidate: the window being proposed.
  - Horizon: how far from the candidate a neighbour is still considered.

SEE ALSO:
  - availability.go: overlap and chaining rules
  - rest.go:         crew rest-chain rule
  - errors.go:       rejection errors
*/
package schedule

import "time"

// =============================================================================
// HORIZONS
// =============================================================================

const (
	// ChainHorizon bounds the nearest-before/nearest-after search.
	// Windows further away than this are ignored by the chaining rule.
	ChainHorizon = 4 * 24 * time.Hour

	// RestLookback is how far back the crew rest rule looks for the
	// employee's most recent arrival.
	RestLookback = 7 * 24 * time.Hour
)

// =============================================================================
// WINDOW - One commitment of a resource
// =============================================================================

// Window is a half-open interval [Start, End) during which a resource is
// committed to a flight from Origin to Destination.
type Window struct {
	Ref         string // flight number, for error reporting
	Start       time.Time
	End         time.Time
	Origin      string
	Destination string
	Cancelled   bool
}

// Candidate is the window being proposed for a resource.
type Candidate struct {
	Start       time.Time
	End         time.Time
	Origin      string
	Destination string
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Overlaps reports whether w and other intersect.
func (w Window) Overlaps(other Window) bool {
	return Overlaps(w.Start, w.End, other.Start, other.End)
}

func (c Candidate) window() Window {
	return Window{Start: c.Start, End: c.End, Origin: c.Origin, Destination: c.Destination}
}

// Active filters out cancelled windows.
func Active(windows []Window) []Window {
	result := make([]Window, 0, len(windows))
	for _, w := range windows {
		if !w.Cancelled {
			result = append(result, w)
		}
	}
	return result
}
