package schedule

import "time"

// CheckCrewRest applies the 7-day rest-chain rule to one employee.
//
// history is the employee's assignments (any role the caller considers).
// The latest non-cancelled arrival in [start - RestLookback, start] must have
// landed at origin. No arrival in that range means the employee is free to
// start anywhere. The rule is independent of the 4-day chaining rule.
func CheckCrewRest(history []Window, start time.Time, origin string) error {
	var last *Window
	earliest := start.Add(-RestLookback)

	for i := range history {
		w := &history[i]
		if w.Cancelled {
			continue
		}
		if w.End.After(start) || w.End.Before(earliest) {
			continue
		}
		if last == nil || w.End.After(last.End) {
			last = w
		}
	}

	if last == nil || last.Destination == origin {
		return nil
	}
	return &RestViolationError{Last: *last, CandidateOrigin: origin}
}
