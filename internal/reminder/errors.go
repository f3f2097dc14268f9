package reminder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotComputable is returned when a reminder violates an invariant the
// calculator relies on (unset start date, interval outside the grammar, no
// held occurrence to advance). It signals a programming defect, not bad
// operator input.
var ErrNotComputable = errors.New("occurrence not computable")

// Field names used in validation errors.
const (
	FieldTitle    = "title"
	FieldText     = "text"
	FieldStart    = "start_date"
	FieldEnd      = "end_date"
	FieldInterval = "interval_seconds"
)

// Validation error codes. Stable; UI layers map them to localized text.
const (
	CodeRequired           = "required"
	CodeTooLong            = "too_long"
	CodeStartAfterEnd      = "start_after_end"
	CodeEndInPast          = "end_in_past"
	CodeEqualImpliesOnce   = "equal_start_end_implies_one_time"
	CodeIntervalNotDays    = "interval_not_whole_days"
	CodeIntervalOutOfRange = "interval_out_of_range"
)

// ValidationError is a field-scoped, recoverable problem with operator input.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the result of Validate. An empty set means valid.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether an error with the given field and code is present.
func (v ValidationErrors) Has(field, code string) bool {
	for _, e := range v {
		if e.Field == field && e.Code == code {
			return true
		}
	}
	return false
}

// Err returns nil for an empty set, the set itself otherwise.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) add(field, code, format string, args ...any) {
	*v = append(*v, &ValidationError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}
