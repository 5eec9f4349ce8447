package generation

import (
	"errors"
	"fmt"

	"github.com/applytrack/applytrack/internal/domain"
)

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when a completion fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate completion")

	// ErrInvalidResponse is returned when the LLM response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = fmt.Errorf("transient error during completion: %w", domain.ErrTransient)

	// ErrInvalidConfig is returned when the completer configuration is invalid
	ErrInvalidConfig = errors.New("invalid completer configuration")

	// ErrUnavailable is returned when no provider is configured
	ErrUnavailable = errors.New("AI completion is not configured")
)

// IsRetryable reports whether err may succeed on a later attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransient)
}
