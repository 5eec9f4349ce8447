package api

import (
	"log/slog"
	"net/http"

	apimw "github.com/applytrack/applytrack/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the route handlers. A nil Reminders handler leaves the
// admin route unregistered.
type Handlers struct {
	Analyses  *AnalysisHandler
	Tasks     *TaskHandler
	Reminders *ReminderHandler
	Health    *HealthHandler
}

// NewRouter builds the HTTP routes.
func NewRouter(h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.NewTraceMiddleware(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health.Check)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyses", h.Analyses.SubmitAnalysis)
		r.Post("/applications/{id}/fit-score", h.Analyses.SubmitFitScore)
		r.Get("/tasks/{id}", h.Tasks.GetTask)

		if h.Reminders != nil {
			r.Post("/admin/reminders/run", h.Reminders.RunNow)
		}
	})

	return r
}
