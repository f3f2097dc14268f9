package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired_OneTime(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	r := Reminder{StartDate: start, EndDate: start}

	assert.False(t, IsExpired(r, start.Add(-time.Minute)))
	assert.False(t, IsExpired(r, start), "expiry is strict")
	assert.True(t, IsExpired(r, start.Add(time.Nanosecond)))
	assert.True(t, IsExpired(r, start.AddDate(1, 0, 0)))
}

func TestIsExpired_Recurring(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		next     time.Time
		expected bool
	}{
		{name: "inside window, no held occurrence", now: start.AddDate(0, 0, 3), expected: false},
		{name: "inside window, next inside", now: start.AddDate(0, 0, 3), next: start.AddDate(0, 0, 4), expected: false},
		{name: "next exactly at end", now: end.Add(-time.Hour), next: end, expected: false},
		{name: "next beyond end", now: end.Add(-time.Hour), next: end.Add(24 * time.Hour), expected: true},
		{name: "end passed", now: end.Add(time.Second), next: end, expected: true},
		{name: "now equal to end", now: end, next: end, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reminder{StartDate: start, EndDate: end, IntervalSeconds: 86400, NextOccurrence: tt.next}
			assert.Equal(t, tt.expected, IsExpired(r, tt.now))
		})
	}
}

func TestIsExpired_IdempotentAndPure(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	r := Reminder{
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 10),
		IntervalSeconds: 86400,
		NextOccurrence:  start.AddDate(0, 0, 11),
	}
	snapshot := r
	now := start.AddDate(0, 0, 5)

	first := IsExpired(r, now)
	second := IsExpired(r, now)

	assert.Equal(t, first, second)
	assert.True(t, first)
	assert.Equal(t, snapshot, r)
}

func TestRefreshExpired_UpdatesOnlyCache(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	r := Reminder{StartDate: start, EndDate: start}
	snapshot := r

	assert.True(t, r.RefreshExpired(start.Add(time.Hour)))
	assert.True(t, r.IsExpired)

	r.IsExpired = snapshot.IsExpired
	assert.Equal(t, snapshot, r)
}

func TestDue(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	r := Reminder{StartDate: start, EndDate: end, IntervalSeconds: 86400}

	assert.False(t, Due(r, start), "no held occurrence")

	r.NextOccurrence = start
	assert.False(t, Due(r, start.Add(-time.Second)))
	assert.True(t, Due(r, start))
	assert.True(t, Due(r, start.Add(time.Hour)))

	r.NextOccurrence = end.Add(24 * time.Hour)
	assert.False(t, Due(r, end.Add(48*time.Hour)), "occurrence outside the window is never due")
}
