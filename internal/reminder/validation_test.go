package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = Limits{TitleMax: 20, TextMax: 100}

func validReminder(start, end time.Time, interval int64) Reminder {
	return Reminder{
		Title:           "Library hours",
		Text:            "The library closes early today.",
		StartDate:       start,
		EndDate:         end,
		IntervalSeconds: interval,
		IsActive:        true,
	}
}

func TestValidate_Scenarios(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		interval int64
		field    string
		code     string
	}{
		{
			name:     "one-time with equal dates is valid",
			start:    time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			interval: 0,
		},
		{
			name:     "daily for 28 days is valid",
			start:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC),
			interval: 86400,
		},
		{
			name:     "12 hours is not a whole day",
			start:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC),
			interval: 43200,
			field:    FieldInterval,
			code:     CodeIntervalNotDays,
		},
		{
			name:     "29 days exceeds the cap",
			start:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 3, 29, 9, 0, 0, 0, time.UTC),
			interval: 2505600,
			field:    FieldInterval,
			code:     CodeIntervalOutOfRange,
		},
		{
			name:     "equal dates with an interval",
			start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			interval: 86400,
			field:    FieldInterval,
			code:     CodeEqualImpliesOnce,
		},
		{
			name:     "start after end",
			start:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			interval: 86400,
			field:    FieldStart,
			code:     CodeStartAfterEnd,
		},
		{
			name:     "end in the past",
			start:    time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC),
			interval: 86400,
			field:    FieldEnd,
			code:     CodeEndInPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(validReminder(tt.start, tt.end, tt.interval), now, testLimits)

			if tt.code == "" {
				assert.Empty(t, errs)
				assert.NoError(t, errs.Err())
				return
			}
			assert.True(t, errs.Has(tt.field, tt.code), "expected %s/%s in %v", tt.field, tt.code, errs)
		})
	}
}

func TestValidate_IntervalGrammar(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC)

	for days := int64(1); days <= 28; days++ {
		errs := Validate(validReminder(start, end, days*SecondsPerDay), now, testLimits)
		assert.Empty(t, errs, "interval of %d days should be valid", days)
	}

	invalid := []int64{-86400, 1, 3600, 86399, 86401, 129600, 29 * SecondsPerDay, 365 * SecondsPerDay}
	for _, seconds := range invalid {
		errs := Validate(validReminder(start, end, seconds), now, testLimits)
		require.NotEmpty(t, errs, "interval %d should be rejected", seconds)
		for _, e := range errs {
			assert.Equal(t, FieldInterval, e.Field)
		}
		assert.False(t, ValidInterval(seconds))
	}

	assert.True(t, ValidInterval(0))
	assert.Empty(t, Validate(validReminder(start, end, 0), now, testLimits))
}

func TestValidate_MissingDatesStopDateChecks(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := validReminder(time.Time{}, time.Time{}, 86400)

	errs := Validate(r, now, testLimits)

	assert.True(t, errs.Has(FieldStart, CodeRequired))
	assert.True(t, errs.Has(FieldEnd, CodeRequired))
	assert.False(t, errs.Has(FieldInterval, CodeEqualImpliesOnce), "zero dates must not count as equal")
	assert.False(t, errs.Has(FieldEnd, CodeEndInPast))
	assert.Len(t, errs, 2)
}

func TestValidate_AllRulesFireTogether(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	r := Reminder{
		Title:           strings.Repeat("x", 21),
		StartDate:       time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		IntervalSeconds: 43200,
	}

	errs := Validate(r, now, testLimits)

	assert.True(t, errs.Has(FieldTitle, CodeTooLong))
	assert.True(t, errs.Has(FieldText, CodeRequired))
	assert.True(t, errs.Has(FieldStart, CodeStartAfterEnd))
	assert.True(t, errs.Has(FieldInterval, CodeIntervalNotDays))
	assert.Contains(t, errs.Error(), "title: title is too long")
}

func TestValidate_TextLengthIsNormalized(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	// "é" as e + combining acute accent: two code points, one after NFC.
	decomposed := strings.Repeat("e\u0301", 20)
	assert.Equal(t, 20, TextLength(decomposed))

	r := validReminder(start, start, 0)
	r.Title = decomposed
	assert.Empty(t, Validate(r, now, testLimits))

	r.Title = decomposed + "!"
	assert.True(t, Validate(r, now, testLimits).Has(FieldTitle, CodeTooLong))
}

func TestValidate_ZeroLimitsDisableLengthChecks(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	r := validReminder(start, start, 0)
	r.Text = strings.Repeat("long ", 1000)

	assert.Empty(t, Validate(r, now, Limits{}))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := validReminder(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), 86400)
	before := r

	_ = Validate(r, now, testLimits)

	assert.Equal(t, before, r)
}
