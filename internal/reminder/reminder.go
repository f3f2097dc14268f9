// Package reminder implements the scheduling core for recurring channel
// announcements: validation of a schedule, computation of its next fire
// instant (DST aware), expiration and the operator "skip next" override.
//
// Every function here is a pure computation over a Reminder snapshot and an
// explicit "now"; persistence, delivery and timing belong to the callers.
package reminder

import "time"

const (
	// SecondsPerDay is the granularity of a recurring interval.
	SecondsPerDay = 86400

	// MinIntervalSeconds is the shortest recurring interval (1 day).
	MinIntervalSeconds = SecondsPerDay

	// MaxIntervalSeconds is the longest recurring interval (28 days).
	MaxIntervalSeconds = 28 * SecondsPerDay

	// OneTime is the interval value of a schedule that fires exactly once.
	OneTime = 0
)

// Priority of the announcement produced by a reminder. Opaque to the scheduler.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Reminder describes when an automated announcement should be posted to a
// channel and what it says.
type Reminder struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	ModifiedAt time.Time `json:"modified_at" yaml:"modified_at"`

	StartDate       time.Time `json:"start_date" yaml:"start_date"`
	EndDate         time.Time `json:"end_date" yaml:"end_date"`
	IntervalSeconds int64     `json:"interval_seconds" yaml:"interval_seconds"`

	IgnoreNextOccurrence bool `json:"ignore_next_occurrence,omitempty" yaml:"ignore_next_occurrence,omitempty"`
	IsActive             bool `json:"is_active" yaml:"is_active"`

	// Derived caches, for display only. Never the source of truth for firing.
	NextOccurrence time.Time `json:"next_occurrence,omitempty" yaml:"next_occurrence,omitempty"`
	IsExpired      bool      `json:"is_expired,omitempty" yaml:"is_expired,omitempty"`

	ChannelID string   `json:"channel_id" yaml:"channel_id"`
	AuthorID  string   `json:"author_id" yaml:"author_id"`
	Title     string   `json:"title" yaml:"title"`
	Text      string   `json:"text" yaml:"text"`
	Priority  Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// IsOneTime reports whether the reminder fires exactly once, at StartDate.
func (r Reminder) IsOneTime() bool {
	return r.IntervalSeconds == OneTime
}

// Interval returns the repeat interval as a duration (zero for one-time).
func (r Reminder) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// Touch records an authoritative field change.
func (r *Reminder) Touch(now time.Time) {
	r.ModifiedAt = now
}

// Clock provides the current instant. Injected so calculations stay
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }
