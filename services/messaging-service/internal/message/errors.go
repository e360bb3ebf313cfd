package message

import "fmt"

// Category identifies why a payload was rejected.
type Category string

const (
	MissingFields   Category = "missing_fields"
	InvalidType     Category = "invalid_type"
	CannotInferType Category = "cannot_infer_type"
	BadTimestamp    Category = "bad_timestamp"
)

// ValidationError reports a malformed payload. It is surfaced synchronously
// to the caller as a 400 and never retried.
type ValidationError struct {
	Category Category
	Detail   string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func newValidationError(category Category, format string, args ...any) *ValidationError {
	return &ValidationError{Category: category, Detail: fmt.Sprintf(format, args...)}
}
