package api

import (
	"errors"
	"net/http"

	"github.com/applytrack/applytrack/internal/api/shared"
	"github.com/applytrack/applytrack/internal/domain"
	"github.com/applytrack/applytrack/internal/reminder"
	"github.com/applytrack/applytrack/internal/task"
)

// MapErrorToStatusCode maps an application error to an HTTP status.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reminder.ErrSweepInProgress):
		return http.StatusConflict
	case errors.Is(err, task.ErrQueueUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err that never
// includes internal details. Validation messages are passed through since
// they describe the caller's own input.
func GetSafeErrorMessage(err error) string {
	var ve *domain.ValidationError
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request"
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, domain.ErrNotFound):
		return "Resource not found"
	case errors.Is(err, reminder.ErrSweepInProgress):
		return "A reminder sweep is already running"
	case errors.Is(err, task.ErrQueueUnavailable):
		return "Service temporarily unavailable"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	resp := shared.ErrorResponse{Error: GetSafeErrorMessage(err)}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), resp, err)
}
