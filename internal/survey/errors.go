package survey

import (
	"errors"
	"fmt"
)

// ErrNoAnswers is returned when none of the submitted answers is usable.
var ErrNoAnswers = errors.New("at least one question must be answered with 0, 1 or 2")

// ValidationError reports a problem with one submitted field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func required(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

func unknown(field string) error {
	return &ValidationError{Field: field, Message: "does not exist"}
}

// IsValidation reports whether err should be shown to the user as a 400.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr) || errors.Is(err, ErrNoAnswers)
}
