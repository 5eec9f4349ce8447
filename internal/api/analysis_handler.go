package api

import (
	"context"
	"net/http"

	"github.com/applytrack/applytrack/internal/analysis"
	"github.com/applytrack/applytrack/internal/api/shared"
	"github.com/applytrack/applytrack/internal/domain"
	"github.com/google/uuid"
)

// AnalysisSubmitter accepts analysis work.
type AnalysisSubmitter interface {
	Submit(ctx context.Context, req analysis.Request) (*analysis.Submission, error)
	SubmitFitScore(ctx context.Context, req analysis.FitRequest) (*analysis.Submission, error)
}

// SubmissionResponse is returned by the submission endpoints. TaskID is set
// when the work was queued (202), Result when it ran inline (200).
type SubmissionResponse struct {
	TaskID *uuid.UUID             `json:"taskId,omitempty"`
	Result *domain.AnalysisResult `json:"result,omitempty"`
}

// AnalysisHandler serves the analysis endpoints.
type AnalysisHandler struct {
	service AnalysisSubmitter
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(service AnalysisSubmitter) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// SubmitAnalysis handles POST /api/analyses.
func (h *AnalysisHandler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysis.Request
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	sub, err := h.service.Submit(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	respondWithSubmission(w, r, sub)
}

// SubmitFitScore handles POST /api/applications/{id}/fit-score. The
// application id comes from the path and overrides any body value.
func (h *AnalysisHandler) SubmitFitScore(w http.ResponseWriter, r *http.Request) {
	appID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	var req analysis.FitRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	req.ApplicationID = appID

	sub, err := h.service.SubmitFitScore(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	respondWithSubmission(w, r, sub)
}

func respondWithSubmission(w http.ResponseWriter, r *http.Request, sub *analysis.Submission) {
	if sub.Queued {
		id := sub.TaskID
		shared.RespondWithJSON(w, r, http.StatusAccepted, SubmissionResponse{TaskID: &id})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SubmissionResponse{Result: sub.Result})
}
