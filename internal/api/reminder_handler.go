package api

import (
	"net/http"

	"github.com/applytrack/applytrack/internal/api/shared"
	"github.com/applytrack/applytrack/internal/reminder"
)

// ReminderRunResponse reports a manual sweep.
type ReminderRunResponse struct {
	Processed int `json:"processed"`
}

// ReminderHandler exposes manual reminder sweeps.
type ReminderHandler struct {
	runner reminder.Runner
}

// NewReminderHandler creates a ReminderHandler.
func NewReminderHandler(runner reminder.Runner) *ReminderHandler {
	return &ReminderHandler{runner: runner}
}

// RunNow handles POST /api/admin/reminders/run. The sweep is bound to the
// request context, so a disconnecting client cancels it.
func (h *ReminderHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	n, err := h.runner.RunOnce(r.Context())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ReminderRunResponse{Processed: n})
}
