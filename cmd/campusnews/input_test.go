package main

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

func TestParseTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01 09:30", time.Date(2024, 3, 1, 9, 30, 0, 0, berlin)},
		{"2024-03-01T09:30", time.Date(2024, 3, 1, 9, 30, 0, 0, berlin)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, berlin)},
		{"2024-03-01T09:30:00Z", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		got, err := parseTime(tt.in, berlin)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}

	_, err = parseTime("next tuesday", berlin)
	assert.Error(t, err)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"once", reminder.OneTime},
		{"", reminder.OneTime},
		{"daily", reminder.SecondsPerDay},
		{"weekly", 7 * reminder.SecondsPerDay},
		{"3d", 3 * reminder.SecondsPerDay},
		{"2w", 14 * reminder.SecondsPerDay},
		{"48h", 2 * reminder.SecondsPerDay},
		{"90m", 5400},
	}

	for _, tt := range tests {
		got, err := parseInterval(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"xd", "-1d", "soon", "-5h"} {
		_, err := parseInterval(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatInterval(t *testing.T) {
	assert.Equal(t, "once", formatInterval(0))
	assert.Equal(t, "1d", formatInterval(reminder.SecondsPerDay))
	assert.Equal(t, "2w", formatInterval(14*reminder.SecondsPerDay))
	assert.Equal(t, "1h30m0s", formatInterval(5400))
}

func TestParsePriority(t *testing.T) {
	p, err := parsePriority("")
	require.NoError(t, err)
	assert.Equal(t, reminder.PriorityNormal, p)

	p, err = parsePriority("HIGH")
	require.NoError(t, err)
	assert.Equal(t, reminder.PriorityHigh, p)

	_, err = parsePriority("urgent")
	assert.Error(t, err)
}
