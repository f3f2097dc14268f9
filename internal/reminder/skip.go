package reminder

import "time"

// AdvanceFunc moves the held occurrence of a reminder forward one step.
type AdvanceFunc func(r *Reminder) (time.Time, error)

// Skip consumes the operator "ignore next occurrence" flag.
//
// When the flag is set the held occurrence is discarded, advance is applied
// once and the flag is cleared; skipped reports true. Otherwise r is left
// untouched and the held occurrence is returned. At most one occurrence is
// skipped per arming of the flag.
func Skip(r *Reminder, advance AdvanceFunc) (next time.Time, skipped bool, err error) {
	if !r.IgnoreNextOccurrence {
		return r.NextOccurrence, false, nil
	}

	next, err = advance(r)
	if err != nil {
		return time.Time{}, false, err
	}

	r.IgnoreNextOccurrence = false
	return next, true, nil
}
