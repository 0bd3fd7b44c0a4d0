/*
availability.go - Overlap and 4-day chaining rules

RULES:
  1. No overlap: the candidate may not intersect any non-cancelled window of
     the same resource. Intervals are half-open, so a flight may depart at
     the exact instant the previous one arrives.

  2. Chaining: among the remaining windows, take
       - the nearest window that ended at or before the candidate starts
         (largest End, at most ChainHorizon earlier)
       - the nearest window that starts at or after the candidate ends
         (smallest Start, at most ChainHorizon later)
     The first must land where the candidate departs; the second must
     depart where the candidate lands.

  Only the nearest neighbour on each side matters. A wrong-city window
  beyond the horizon, or behind a nearer consistent one, is ignored.

EXAMPLE:
  Aircraft flew A->B 10:00-12:00 and B->A 13:00-15:00.
  Candidate A->C at 16:00: nearest-before is B->A (lands at A) -> allowed.
*/
package schedule

// CheckAvailability decides whether candidate fits a resource's history.
// Returns nil, an *OverlapError, or a *ChainMismatchError.
func CheckAvailability(existing []Window, candidate Candidate) error {
	if candidate.End.Before(candidate.Start) {
		return ErrInvalidWindow
	}

	cw := candidate.window()
	for _, w := range existing {
		if w.Cancelled {
			continue
		}
		if w.Overlaps(cw) {
			return &OverlapError{Existing: w}
		}
	}

	before, after := nearestNeighbors(existing, candidate)

	if before != nil && before.Destination != candidate.Origin {
		return &ChainMismatchError{
			Side:     ChainBefore,
			Neighbor: *before,
			Expected: before.Destination,
			Got:      candidate.Origin,
		}
	}

	if after != nil && after.Origin != candidate.Destination {
		return &ChainMismatchError{
			Side:     ChainAfter,
			Neighbor: *after,
			Expected: after.Origin,
			Got:      candidate.Destination,
		}
	}

	return nil
}

// nearestNeighbors finds the closest non-cancelled windows on either side of
// the candidate within ChainHorizon. A window that qualifies as "before" is
// never considered as "after".
func nearestNeighbors(existing []Window, candidate Candidate) (before, after *Window) {
	for i := range existing {
		w := &existing[i]
		if w.Cancelled {
			continue
		}

		switch {
		case !w.End.After(candidate.Start):
			if candidate.Start.Sub(w.End) > ChainHorizon {
				continue
			}
			if before == nil || w.End.After(before.End) {
				before = w
			}

		case !w.Start.Before(candidate.End):
			if w.Start.Sub(candidate.End) > ChainHorizon {
				continue
			}
			if after == nil || w.Start.Before(after.Start) {
				after = w
			}
		}
	}
	return before, after
}
