package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/applytrack/applytrack/internal/domain"
	"github.com/applytrack/applytrack/internal/generation"
	"github.com/applytrack/applytrack/internal/store"
	"github.com/applytrack/applytrack/internal/task"
	"github.com/google/uuid"
)

// Progress checkpoints reported while an analysis runs. Completion (100) is
// recorded by the queue.
const (
	ProgressValidated  = 10
	ProgressCVLoaded   = 30
	ProgressAIAnswered = 80
)

// DefaultAITimeout bounds a single completion call.
const DefaultAITimeout = 60 * time.Second

// Store persists analysis results.
type Store interface {
	SaveAnalysis(ctx context.Context, a *domain.CVAnalysis) error

	// GetFitScore returns store.ErrFitScoreNotFound when nothing is cached.
	GetFitScore(ctx context.Context, applicationID uuid.UUID, jdHash string) (*domain.FitScore, error)

	// SaveFitScore inserts fs unless a row with the same application and
	// hash exists, and returns whichever row is stored.
	SaveFitScore(ctx context.Context, fs *domain.FitScore) (*domain.FitScore, error)
}

// CVSource resolves the extracted text of an uploaded CV.
type CVSource interface {
	ExtractedText(ctx context.Context, cvFileID uuid.UUID) (string, error)
}

// Submission is the outcome of Submit. Exactly one of TaskID and Result is
// set: TaskID when queued, Result when run inline.
type Submission struct {
	Queued bool
	TaskID uuid.UUID
	Result *domain.AnalysisResult
}

// Service runs CV analyses.
type Service struct {
	completer generation.Completer
	store     Store
	cvs       CVSource
	queue     *task.Queue
	aiTimeout time.Duration
	logger    *slog.Logger
}

// NewService creates a Service. queue may be nil, in which case Submit runs
// inline.
func NewService(
	completer generation.Completer,
	store Store,
	cvs CVSource,
	queue *task.Queue,
	aiTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	if completer == nil {
		completer = generation.Unavailable{}
	}
	if aiTimeout <= 0 {
		aiTimeout = DefaultAITimeout
	}
	return &Service{
		completer: completer,
		store:     store,
		cvs:       cvs,
		queue:     queue,
		aiTimeout: aiTimeout,
		logger:    logger.With("component", "analysis"),
	}
}

// Submit validates req and enqueues it. When the queue is not configured or
// unreachable the analysis runs inline and its result is returned instead.
func (s *Service) Submit(ctx context.Context, req Request) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := s.queue.Enqueue(ctx, task.KindCVAnalysis, req)
	if err == nil {
		return &Submission{Queued: true, TaskID: id}, nil
	}
	if !errors.Is(err, task.ErrQueueUnavailable) {
		return nil, err
	}

	s.logger.WarnContext(ctx, "queue unavailable, running analysis inline",
		"owner_id", req.OwnerID,
		"error", err)
	result, err := s.Analyze(ctx, req, task.NoProgress)
	if err != nil {
		return nil, err
	}
	return &Submission{Queued: false, Result: result}, nil
}

// SubmitFitScore validates req and enqueues a fit-score task, falling back
// to inline execution like Submit.
func (s *Service) SubmitFitScore(ctx context.Context, req FitRequest) (*Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := s.queue.Enqueue(ctx, task.KindFitScore, req)
	if err == nil {
		return &Submission{Queued: true, TaskID: id}, nil
	}
	if !errors.Is(err, task.ErrQueueUnavailable) {
		return nil, err
	}

	s.logger.WarnContext(ctx, "queue unavailable, computing fit score inline",
		"application_id", req.ApplicationID,
		"error", err)
	fs, err := s.FitScore(ctx, req, task.NoProgress)
	if err != nil {
		return nil, err
	}
	return &Submission{Queued: false, Result: &fs.Result}, nil
}

// Analyze validates req, asks the completer once and persists the result
// under a fresh analysis id. Invalid input fails before any AI call.
func (s *Service) Analyze(ctx context.Context, req Request, progress task.ProgressReporter) (*domain.AnalysisResult, error) {
	if progress == nil {
		progress = task.NoProgress
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.With("owner_id", req.OwnerID, "cv_file_id", req.CVFileID)
	s.report(ctx, progress, ProgressValidated)

	result, err := s.evaluate(ctx, req.CVFileID, req.CVText, req.JobDescription, progress)
	if err != nil {
		log.WarnContext(ctx, "analysis failed", "error", err)
		return nil, err
	}

	record := &domain.CVAnalysis{
		ID:             uuid.New(),
		OwnerID:        req.OwnerID,
		CVFileID:       req.CVFileID,
		JobDescription: req.JobDescription,
		JobURL:         req.JobURL,
		Result:         *result,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.SaveAnalysis(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	log.InfoContext(ctx, "analysis completed",
		"analysis_id", record.ID,
		"match_score", result.MatchScore)
	return result, nil
}

// FitScore returns the cached fit score for the application and job
// description, or computes and stores it. A cache hit makes no AI call.
func (s *Service) FitScore(ctx context.Context, req FitRequest, progress task.ProgressReporter) (*domain.FitScore, error) {
	if progress == nil {
		progress = task.NoProgress
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash := req.Hash()
	log := s.logger.With("application_id", req.ApplicationID, "jd_hash", hash[:12])

	cached, err := s.store.GetFitScore(ctx, req.ApplicationID, hash)
	switch {
	case err == nil:
		log.DebugContext(ctx, "fit score cache hit")
		return cached, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to look up fit score: %w", err)
	}
	s.report(ctx, progress, ProgressValidated)

	result, err := s.evaluate(ctx, req.CVFileID, req.CVText, req.JobDescription, progress)
	if err != nil {
		log.WarnContext(ctx, "fit score failed", "error", err)
		return nil, err
	}

	stored, err := s.store.SaveFitScore(ctx, &domain.FitScore{
		ID:            uuid.New(),
		ApplicationID: req.ApplicationID,
		JDHash:        hash,
		Result:        *result,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save fit score: %w", err)
	}
	log.InfoContext(ctx, "fit score computed", "match_score", stored.Result.MatchScore)
	return stored, nil
}

// evaluate loads the CV text if needed, calls the completer with the fixed
// prompt and parses its answer.
func (s *Service) evaluate(
	ctx context.Context,
	cvFileID uuid.UUID,
	cvText string,
	jobDescription string,
	progress task.ProgressReporter,
) (*domain.AnalysisResult, error) {
	if cvText == "" {
		if s.cvs == nil {
			return nil, domain.NewValidationError("cvText", "is required when no CV source is configured", nil)
		}
		text, err := s.cvs.ExtractedText(ctx, cvFileID)
		if err != nil {
			return nil, fmt.Errorf("failed to load CV text: %w", err)
		}
		cvText = text
	}
	if cvText == "" {
		return nil, domain.NewValidationError("cvText", "CV has no extracted text", nil)
	}
	s.report(ctx, progress, ProgressCVLoaded)

	prompt, err := BuildPrompt(cvText, jobDescription)
	if err != nil {
		return nil, err
	}

	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()
	raw, err := s.completer.Complete(aiCtx, prompt)
	if err != nil {
		if errors.Is(aiCtx.Err(), context.DeadlineExceeded) && !generation.IsRetryable(err) {
			err = fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		return nil, fmt.Errorf("AI completion failed: %w", err)
	}
	s.report(ctx, progress, ProgressAIAnswered)

	return ParseResult(raw)
}

// report publishes a checkpoint. Progress is advisory, so failures are only
// logged.
func (s *Service) report(ctx context.Context, progress task.ProgressReporter, percent int) {
	if err := progress.ReportProgress(ctx, percent); err != nil {
		s.logger.DebugContext(ctx, "progress update failed", "percent", percent, "error", err)
	}
}
