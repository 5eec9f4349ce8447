package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Score bounds for AnalysisResult.MatchScore.
const (
	MinMatchScore = 0
	MaxMatchScore = 100
)

// AnalysisResult is the structured outcome of comparing a CV against a job
// description. Values are immutable once produced.
type AnalysisResult struct {
	MatchScore      int      `json:"matchScore"`
	MissingSkills   []string `json:"missingSkills"`
	Recommendations []string `json:"recommendations"`
}

// Validate checks the result invariants.
func (r *AnalysisResult) Validate() error {
	if r.MatchScore < MinMatchScore || r.MatchScore > MaxMatchScore {
		return NewValidationError("matchScore",
			fmt.Sprintf("must be between %d and %d, got %d", MinMatchScore, MaxMatchScore, r.MatchScore), nil)
	}
	if r.MissingSkills == nil {
		return NewValidationError("missingSkills", "must be present", nil)
	}
	if r.Recommendations == nil {
		return NewValidationError("recommendations", "must be present", nil)
	}
	return nil
}

// CVAnalysis is a persisted AnalysisResult for one CV and job description.
type CVAnalysis struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	CVFileID       uuid.UUID
	JobDescription string
	JobURL         string
	Result         AnalysisResult
	CreatedAt      time.Time
}

// FitScore is an AnalysisResult cached per application and job description
// hash.
type FitScore struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	JDHash        string
	Result        AnalysisResult
	CreatedAt     time.Time
}
