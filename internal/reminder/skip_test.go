package reminder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyReminder() Reminder {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return Reminder{
		ID:              "daily",
		StartDate:       start,
		EndDate:         start.AddDate(0, 2, 0),
		IntervalSeconds: 86400,
		IsActive:        true,
	}
}

func TestSkip_FirstOccurrenceSkipsExactlyOnce(t *testing.T) {
	for _, policy := range []AdvancePolicy{AdvanceStep, AdvanceRescan} {
		t.Run(string(policy), func(t *testing.T) {
			calc := NewCalculator(time.UTC, policy)
			now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

			plain := dailyReminder()
			expected, err := calc.FirstOccurrence(&plain, now)
			require.NoError(t, err)

			r := dailyReminder()
			r.IgnoreNextOccurrence = true

			next, err := calc.FirstOccurrence(&r, now)
			require.NoError(t, err)
			assert.Equal(t, expected.Add(24*time.Hour), next)
			assert.False(t, r.IgnoreNextOccurrence, "flag must be consumed")

			// A second evaluation with the flag cleared skips nothing.
			again, err := calc.FirstOccurrence(&r, now)
			require.NoError(t, err)
			assert.Equal(t, expected, again)

			// Re-arming skips exactly one more.
			r.IgnoreNextOccurrence = true
			rearmed, err := calc.FirstOccurrence(&r, now)
			require.NoError(t, err)
			assert.Equal(t, expected.Add(24*time.Hour), rearmed)
			assert.False(t, r.IgnoreNextOccurrence)
		})
	}
}

func TestSkip_HeldOccurrence(t *testing.T) {
	calc := NewCalculator(time.UTC, AdvanceStep)
	r := dailyReminder()
	r.NextOccurrence = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	next, skipped, err := Skip(&r, calc.Advance)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, r.NextOccurrence, next)

	r.IgnoreNextOccurrence = true
	next, skipped, err = Skip(&r, calc.Advance)
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Equal(t, time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC), next)
	assert.Equal(t, next, r.NextOccurrence)
	assert.False(t, r.IgnoreNextOccurrence)

	// Already consumed: nothing more is skipped.
	next, skipped, err = Skip(&r, calc.Advance)
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, time.Date(2024, 1, 6, 9, 0, 0, 0, time.UTC), next)
}

func TestSkip_OneTimeSkipSpendsTheReminder(t *testing.T) {
	calc := NewCalculator(time.UTC, AdvanceRescan)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	r := Reminder{StartDate: start, EndDate: start, IgnoreNextOccurrence: true}

	next, err := calc.FirstOccurrence(&r, start.Add(-time.Hour))

	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Second), next)
	assert.False(t, Due(r, start.Add(time.Hour)))
}

func TestSkip_AdvanceErrorKeepsFlag(t *testing.T) {
	r := dailyReminder()
	r.IgnoreNextOccurrence = true
	boom := errors.New("boom")

	_, skipped, err := Skip(&r, func(*Reminder) (time.Time, error) { return time.Time{}, boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, skipped)
	assert.True(t, r.IgnoreNextOccurrence)
}
