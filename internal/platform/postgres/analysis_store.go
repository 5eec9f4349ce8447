package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/applytrack/applytrack/internal/domain"
	"github.com/applytrack/applytrack/internal/store"
	"github.com/google/uuid"
)

// PostgresAnalysisStore persists CV analyses and fit scores and reads CV
// text extracted at upload time.
type PostgresAnalysisStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAnalysisStore creates a PostgresAnalysisStore.
func NewPostgresAnalysisStore(db *sql.DB, logger *slog.Logger) *PostgresAnalysisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAnalysisStore{
		db:     db,
		logger: logger.With(slog.String("component", "analysis_store")),
	}
}

// SaveAnalysis inserts a new cv_analyses row.
func (s *PostgresAnalysisStore) SaveAnalysis(ctx context.Context, a *domain.CVAnalysis) error {
	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}

	query := `
		INSERT INTO cv_analyses
			(id, owner_id, cv_file_id, job_description, job_url, match_score, result, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		a.ID,
		a.OwnerID,
		a.CVFileID,
		a.JobDescription,
		a.JobURL,
		a.Result.MatchScore,
		result,
		a.CreatedAt,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save analysis",
			"analysis_id", a.ID,
			"error", err)
		return fmt.Errorf("failed to save analysis: %w", MapError(err))
	}
	return nil
}

// GetFitScore returns the cached fit score or store.ErrFitScoreNotFound.
func (s *PostgresAnalysisStore) GetFitScore(ctx context.Context, applicationID uuid.UUID, jdHash string) (*domain.FitScore, error) {
	query := `
		SELECT id, application_id, jd_hash, result, created_at
		FROM fit_scores
		WHERE application_id = $1 AND jd_hash = $2
	`
	fs, err := scanFitScore(s.db.QueryRowContext(ctx, query, applicationID, jdHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrFitScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fit score: %w", MapError(err))
	}
	return fs, nil
}

// SaveFitScore inserts fs unless the (application, hash) pair exists and
// returns the stored row. Both statements run in one transaction; under
// read committed the fallback select sees a row committed concurrently.
func (s *PostgresAnalysisStore) SaveFitScore(ctx context.Context, fs *domain.FitScore) (*domain.FitScore, error) {
	result, err := json.Marshal(fs.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fit score result: %w", err)
	}

	var stored *domain.FitScore
	err = store.RunInTransaction(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		insert := `
			INSERT INTO fit_scores (id, application_id, jd_hash, match_score, result, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (application_id, jd_hash) DO NOTHING
			RETURNING id, application_id, jd_hash, result, created_at
		`
		row, err := scanFitScore(tx.QueryRowContext(ctx, insert,
			fs.ID, fs.ApplicationID, fs.JDHash, fs.Result.MatchScore, result, fs.CreatedAt))
		if err == nil {
			stored = row
			return nil
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrApplicationNotFound, fs.ApplicationID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return MapError(err)
		}

		existing := `
			SELECT id, application_id, jd_hash, result, created_at
			FROM fit_scores
			WHERE application_id = $1 AND jd_hash = $2
		`
		row, err = scanFitScore(tx.QueryRowContext(ctx, existing, fs.ApplicationID, fs.JDHash))
		if err != nil {
			return MapError(err)
		}
		s.logger.DebugContext(ctx, "fit score already stored",
			"application_id", fs.ApplicationID,
			"fit_score_id", row.ID)
		stored = row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save fit score: %w", err)
	}
	return stored, nil
}

// ExtractedText returns the text extracted from a CV file, or
// store.ErrCVFileNotFound.
func (s *PostgresAnalysisStore) ExtractedText(ctx context.Context, cvFileID uuid.UUID) (string, error) {
	var text sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT extracted_text FROM cv_files WHERE id = $1`, cvFileID).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrCVFileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load cv text: %w", MapError(err))
	}
	return text.String, nil
}

func scanFitScore(row rowScanner) (*domain.FitScore, error) {
	var (
		fs     domain.FitScore
		result []byte
	)
	if err := row.Scan(&fs.ID, &fs.ApplicationID, &fs.JDHash, &result, &fs.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(result, &fs.Result); err != nil {
		return nil, fmt.Errorf("failed to decode fit score result: %w", err)
	}
	return &fs, nil
}
