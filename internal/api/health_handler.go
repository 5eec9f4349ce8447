package api

import (
	"context"
	"net/http"
	"time"

	"github.com/applytrack/applytrack/internal/api/shared"
	"github.com/applytrack/applytrack/internal/platform/logger"
	"github.com/applytrack/applytrack/internal/redact"
	"github.com/applytrack/applytrack/internal/task"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// TaskCounter reports queue depth.
type TaskCounter interface {
	Counts(ctx context.Context) (map[task.Status]int, error)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string              `json:"status"`
	Tasks  map[task.Status]int `json:"tasks,omitempty"`
}

// HealthHandler reports process and database health.
type HealthHandler struct {
	db    Pinger
	tasks TaskCounter
}

// NewHealthHandler creates a HealthHandler. Either dependency may be nil.
func NewHealthHandler(db Pinger, tasks TaskCounter) *HealthHandler {
	return &HealthHandler{db: db, tasks: tasks}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			logger.FromContext(ctx).Warn("health check failed", "error", redact.Error(err))
			shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}

	resp := HealthResponse{Status: "ok"}
	if h.tasks != nil {
		counts, err := h.tasks.Counts(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("failed to count tasks", "error", redact.Error(err))
		} else {
			resp.Tasks = counts
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
