package reminder

import "time"

// IsExpired reports whether r can no longer produce occurrences at now.
// Rules, first match wins:
//
//  1. one-time: expired once StartDate is before now;
//  2. recurring: expired once EndDate is before now;
//  3. recurring: expired when the held NextOccurrence lies past EndDate;
//  4. otherwise not expired.
//
// It never mutates r; see RefreshExpired for updating the cache.
func IsExpired(r Reminder, now time.Time) bool {
	if r.IsOneTime() {
		return r.StartDate.Before(now)
	}
	if r.EndDate.Before(now) {
		return true
	}
	if !r.NextOccurrence.IsZero() && r.EndDate.Before(r.NextOccurrence) {
		return true
	}
	return false
}

// RefreshExpired updates the cached IsExpired field and returns it.
func (r *Reminder) RefreshExpired(now time.Time) bool {
	r.IsExpired = IsExpired(*r, now)
	return r.IsExpired
}

// Due reports whether the held occurrence is inside the window and not after
// now, i.e. it should be emitted (or skipped) on this evaluation.
func Due(r Reminder, now time.Time) bool {
	if r.NextOccurrence.IsZero() {
		return false
	}
	return !r.NextOccurrence.After(now) && !r.NextOccurrence.After(r.EndDate)
}
