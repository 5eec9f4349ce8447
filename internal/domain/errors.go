package domain

import (
	"errors"
	"fmt"
)

// Error categories used across the application. Concrete errors wrap one of
// these so callers can classify a failure with errors.Is.
var (
	// ErrValidation is returned when input fails validation. Nothing was
	// attempted and retrying with the same input will fail again.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransient is returned for failures that may succeed on retry, such
	// as timeouts or an unreachable collaborator.
	ErrTransient = errors.New("transient failure")

	// ErrFatal is returned for failures that will not succeed on retry.
	ErrFatal = errors.New("fatal failure")
)

// ValidationError describes a single rejected field. It always matches
// ErrValidation, and additionally matches Err when set.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap returns the underlying cause, if any.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
