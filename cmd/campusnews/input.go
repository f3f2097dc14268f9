package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

// Accepted date layouts; zone-less ones are read in the scheduler zone.
var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime reads an RFC 3339 timestamp or a local wall-clock date.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (expected YYYY-MM-DD [HH:MM] or RFC 3339)", s)
}

// parseInterval reads a repeat interval: "once"/"0", "<n>d", "<n>w" or a Go
// duration such as "48h". Day alignment is checked by validation, not here.
func parseInterval(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "0", "once", "none":
		return reminder.OneTime, nil
	case "daily":
		return reminder.SecondsPerDay, nil
	case "weekly":
		return 7 * reminder.SecondsPerDay, nil
	}

	for suffix, unit := range map[string]int64{"d": reminder.SecondsPerDay, "w": 7 * reminder.SecondsPerDay} {
		if n, ok := strings.CutSuffix(s, suffix); ok {
			v, err := strconv.ParseInt(n, 10, 64)
			if err != nil || v < 0 {
				return 0, fmt.Errorf("invalid interval %q", s)
			}
			return v * unit, nil
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid interval %q (expected once, <n>d, <n>w or a duration)", s)
	}
	return int64(d / time.Second), nil
}

// formatInterval renders seconds the way parseInterval accepts them.
func formatInterval(seconds int64) string {
	switch {
	case seconds == reminder.OneTime:
		return "once"
	case seconds%(7*reminder.SecondsPerDay) == 0:
		return fmt.Sprintf("%dw", seconds/(7*reminder.SecondsPerDay))
	case seconds%reminder.SecondsPerDay == 0:
		return fmt.Sprintf("%dd", seconds/reminder.SecondsPerDay)
	default:
		return (time.Duration(seconds) * time.Second).String()
	}
}

func parsePriority(s string) (reminder.Priority, error) {
	switch p := reminder.Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return reminder.PriorityNormal, nil
	case reminder.PriorityLow, reminder.PriorityNormal, reminder.PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("invalid priority %q (expected low, normal, high)", s)
	}
}
