package api

import (
	"context"
	"net/http"

	"github.com/applytrack/applytrack/internal/api/shared"
	"github.com/applytrack/applytrack/internal/task"
	"github.com/google/uuid"
)

// TaskStatusReader reads task state.
type TaskStatusReader interface {
	GetStatus(ctx context.Context, id uuid.UUID) (*task.StatusView, error)
}

// TaskHandler serves task status.
type TaskHandler struct {
	tasks TaskStatusReader
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks TaskStatusReader) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	view, err := h.tasks.GetStatus(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}
