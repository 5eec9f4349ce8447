package analysis

import (
	"context"
	"encoding/json"

	"github.com/applytrack/applytrack/internal/domain"
	"github.com/applytrack/applytrack/internal/task"
)

// Handler runs cv_analysis tasks.
type Handler struct {
	service *Service
}

var _ task.Handler = (*Handler)(nil)

// NewHandler creates a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Kind implements task.Handler.
func (h *Handler) Kind() string { return task.KindCVAnalysis }

// Handle decodes the Request payload and runs Analyze. Re-running the same
// task produces a new analysis row and an extra AI call, nothing else.
func (h *Handler) Handle(ctx context.Context, t *task.Task, progress task.ProgressReporter) (any, error) {
	var req Request
	if err := json.Unmarshal(t.Payload, &req); err != nil {
		return nil, domain.NewValidationError("payload", "cannot decode analysis request", err)
	}
	return h.service.Analyze(ctx, req, progress)
}

// FitScoreHandler runs fit_score tasks.
type FitScoreHandler struct {
	service *Service
}

var _ task.Handler = (*FitScoreHandler)(nil)

// NewFitScoreHandler creates a FitScoreHandler.
func NewFitScoreHandler(service *Service) *FitScoreHandler {
	return &FitScoreHandler{service: service}
}

// Kind implements task.Handler.
func (h *FitScoreHandler) Kind() string { return task.KindFitScore }

// Handle decodes the FitRequest payload and returns the fit score result.
func (h *FitScoreHandler) Handle(ctx context.Context, t *task.Task, progress task.ProgressReporter) (any, error) {
	var req FitRequest
	if err := json.Unmarshal(t.Payload, &req); err != nil {
		return nil, domain.NewValidationError("payload", "cannot decode fit score request", err)
	}
	fs, err := h.service.FitScore(ctx, req, progress)
	if err != nil {
		return nil, err
	}
	return fs.Result, nil
}
