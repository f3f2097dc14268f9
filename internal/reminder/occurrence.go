package reminder

import (
	"fmt"
	"time"
)

// AdvancePolicy selects how a held occurrence is moved past once it fired.
type AdvancePolicy string

const (
	// AdvanceStep adds the interval to the held occurrence with no DST
	// correction. The local fire time shifts by the DST offset after a
	// transition.
	AdvanceStep AdvancePolicy = "step"

	// AdvanceRescan searches from StartDate for the first occurrence strictly
	// after the held one, with DST correction on every step. Keeps the
	// authored local fire time.
	AdvanceRescan AdvancePolicy = "rescan"
)

// ValidAdvancePolicy reports whether p names a known policy.
func ValidAdvancePolicy(p AdvancePolicy) bool {
	return p == AdvanceStep || p == AdvanceRescan
}

// Calculator computes occurrences in a local time zone.
type Calculator struct {
	loc    *time.Location
	policy AdvancePolicy
}

// NewCalculator creates a calculator for loc. A nil loc means time.Local, an
// empty policy means AdvanceRescan.
func NewCalculator(loc *time.Location, policy AdvancePolicy) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	if policy == "" {
		policy = AdvanceRescan
	}
	return &Calculator{loc: loc, policy: policy}
}

// Location returns the zone occurrences are expressed in.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// Policy returns the advance policy used by Advance.
func (c *Calculator) Policy() AdvancePolicy {
	return c.policy
}

// FirstOccurrence establishes the occurrence of r that is due at or after now.
//
// A one-time reminder always yields StartDate, even if it already passed.
// A recurring reminder is stepped from StartDate in UTC; whenever a step
// crosses a DST transition of the local zone the cursor is shifted by the
// offset change first, so the wall-clock time of day is preserved.
//
// If r.IgnoreNextOccurrence is set the found occurrence is skipped (see Skip)
// and the flag is cleared. The result is cached in r.NextOccurrence.
func (c *Calculator) FirstOccurrence(r *Reminder, now time.Time) (time.Time, error) {
	if err := c.checkComputable(*r); err != nil {
		return time.Time{}, err
	}

	if r.IsOneTime() {
		r.NextOccurrence = r.StartDate.In(c.loc)
	} else {
		r.NextOccurrence = c.scan(*r, now)
	}

	if r.IgnoreNextOccurrence {
		next, _, err := Skip(r, c.Advance)
		if err != nil {
			return time.Time{}, err
		}
		return next, nil
	}

	return r.NextOccurrence, nil
}

// NextOccurrence moves the held occurrence one interval forward.
//
// A one-time reminder is marked spent: the occurrence becomes one second past
// EndDate, which makes it expire. A recurring reminder gets the interval added
// to the held instant as is, without DST correction.
func (c *Calculator) NextOccurrence(r *Reminder) (time.Time, error) {
	if err := c.checkComputable(*r); err != nil {
		return time.Time{}, err
	}

	if r.IsOneTime() {
		r.NextOccurrence = r.EndDate.Add(time.Second).In(c.loc)
		return r.NextOccurrence, nil
	}

	if r.NextOccurrence.IsZero() {
		return time.Time{}, fmt.Errorf("%w: reminder %s has no held occurrence to advance", ErrNotComputable, r.ID)
	}

	r.NextOccurrence = r.NextOccurrence.Add(r.Interval()).In(c.loc)
	return r.NextOccurrence, nil
}

// Advance moves past the held occurrence using the calculator's policy.
func (c *Calculator) Advance(r *Reminder) (time.Time, error) {
	if c.policy == AdvanceStep || r.IsOneTime() {
		return c.NextOccurrence(r)
	}

	if err := c.checkComputable(*r); err != nil {
		return time.Time{}, err
	}
	if r.NextOccurrence.IsZero() {
		return time.Time{}, fmt.Errorf("%w: reminder %s has no held occurrence to advance", ErrNotComputable, r.ID)
	}

	r.NextOccurrence = c.scan(*r, r.NextOccurrence.Add(time.Nanosecond))
	return r.NextOccurrence, nil
}

// scan steps from StartDate until the cursor reaches target.
func (c *Calculator) scan(r Reminder, target time.Time) time.Time {
	step := r.Interval()
	cursor := r.StartDate.UTC()

	for cursor.Before(target) {
		if shift := c.offset(cursor.Add(step)) - c.offset(cursor); shift != 0 {
			// Entering DST moves the wall clock forward, so fire earlier in
			// UTC; leaving DST the other way round.
			cursor = cursor.Add(-shift)
		}
		cursor = cursor.Add(step)
	}

	return cursor.In(c.loc)
}

func (c *Calculator) offset(t time.Time) time.Duration {
	_, off := t.In(c.loc).Zone()
	return time.Duration(off) * time.Second
}

func (c *Calculator) checkComputable(r Reminder) error {
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: reminder %s has no start date", ErrNotComputable, r.ID)
	}
	if !ValidInterval(r.IntervalSeconds) {
		return fmt.Errorf("%w: reminder %s has invalid interval %d", ErrNotComputable, r.ID, r.IntervalSeconds)
	}
	return nil
}
