package reminder

import (
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Limits are the caller-supplied payload bounds. A non-positive maximum
// disables the corresponding length check.
type Limits struct {
	TitleMax int
	TextMax  int
}

// Validate checks a reminder as submitted by an operator. All rules are
// evaluated; the returned set may hold several errors at once. It performs
// no I/O and never mutates r.
func Validate(r Reminder, now time.Time, limits Limits) ValidationErrors {
	var errs ValidationErrors

	validateText(&errs, FieldTitle, r.Title, limits.TitleMax)
	validateText(&errs, FieldText, r.Text, limits.TextMax)

	datesSet := true
	if r.StartDate.IsZero() {
		errs.add(FieldStart, CodeRequired, "start date is required")
		datesSet = false
	}
	if r.EndDate.IsZero() {
		errs.add(FieldEnd, CodeRequired, "end date is required")
		datesSet = false
	}

	if datesSet {
		if r.StartDate.After(r.EndDate) {
			errs.add(FieldStart, CodeStartAfterEnd, "start date is after end date")
		} else if r.EndDate.Before(now) {
			errs.add(FieldEnd, CodeEndInPast, "end date is in the past")
		}

		if r.StartDate.Equal(r.EndDate) && r.IntervalSeconds != OneTime {
			errs.add(FieldInterval, CodeEqualImpliesOnce,
				"equal start and end dates describe a one-time reminder, interval must be 0")
		}
	}

	validateInterval(&errs, r.IntervalSeconds)

	return errs
}

// ValidInterval reports whether seconds belongs to the interval grammar:
// 0, or a whole number of days between 1 and 28.
func ValidInterval(seconds int64) bool {
	var errs ValidationErrors
	validateInterval(&errs, seconds)
	return len(errs) == 0
}

func validateInterval(errs *ValidationErrors, seconds int64) {
	if seconds == OneTime {
		return
	}
	if seconds%SecondsPerDay != 0 {
		errs.add(FieldInterval, CodeIntervalNotDays,
			"interval must be a whole number of days (multiple of %d seconds), got %d", SecondsPerDay, seconds)
	}
	if seconds < MinIntervalSeconds || seconds > MaxIntervalSeconds {
		errs.add(FieldInterval, CodeIntervalOutOfRange,
			"interval must be between %d and %d seconds, got %d", MinIntervalSeconds, MaxIntervalSeconds, seconds)
	}
}

func validateText(errs *ValidationErrors, field, value string, limit int) {
	if value == "" {
		errs.add(field, CodeRequired, "%s is required", field)
		return
	}
	if limit <= 0 {
		return
	}
	if n := TextLength(value); n > limit {
		errs.add(field, CodeTooLong, "%s is too long (maximum %d characters, got %d)", field, limit, n)
	}
}

// TextLength counts code points after NFC normalization, so a composed and a
// decomposed spelling of the same text measure the same.
func TextLength(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}
