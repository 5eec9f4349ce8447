package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/applytrack/applytrack/internal/platform/logger"
	"github.com/applytrack/applytrack/internal/store"
	"github.com/applytrack/applytrack/internal/task"
	"github.com/google/uuid"
)

const taskColumns = `id, kind, payload, status, progress, result, failure_reason,
	attempts, locked_by, locked_until, created_at, updated_at, started_at, completed_at`

// PostgresTaskStore implements the task.TaskStore interface using PostgreSQL.
// Claims use FOR UPDATE SKIP LOCKED so concurrent workers never receive the
// same row while its lease is valid.
type PostgresTaskStore struct {
	db store.DBTX
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

// Insert implements task.TaskStore.
func (s *PostgresTaskStore) Insert(ctx context.Context, t *task.Task) error {
	query := `
		INSERT INTO tasks (id, kind, payload, status, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Kind,
		[]byte(t.Payload),
		string(t.Status),
		t.Progress,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to insert task",
			"task_id", t.ID,
			"task_kind", t.Kind,
			"error", err)
		return fmt.Errorf("failed to insert task: %w", MapError(err))
	}
	return nil
}

// Get implements task.TaskStore.
func (s *PostgresTaskStore) Get(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	return t, nil
}

// Claim implements task.TaskStore.
func (s *PostgresTaskStore) Claim(ctx context.Context, workerID string, lease time.Duration) (*task.Task, error) {
	query := `
		UPDATE tasks t
		SET status = 'active',
			locked_by = $1,
			locked_until = now() + $2::double precision * interval '1 second',
			attempts = t.attempts + 1,
			started_at = COALESCE(t.started_at, now()),
			updated_at = now()
		WHERE t.id = (
			SELECT id FROM tasks
			WHERE status = 'queued'
				OR (status = 'active' AND locked_until <= now())
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns
	t, err := scanTask(s.db.QueryRowContext(ctx, query, workerID, lease.Seconds()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrNoTask
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim task: %w", MapError(err))
	}

	if t.Attempts > 1 {
		logger.FromContext(ctx).Warn("redelivering task after expired lease",
			"task_id", t.ID,
			"task_kind", t.Kind,
			"attempts", t.Attempts,
			"worker_id", workerID)
	}
	return t, nil
}

// UpdateProgress implements task.TaskStore.
func (s *PostgresTaskStore) UpdateProgress(ctx context.Context, id uuid.UUID, workerID string, percent int, lease time.Duration) error {
	query := `
		UPDATE tasks
		SET progress = GREATEST(progress, $2),
			locked_until = now() + $3::double precision * interval '1 second',
			updated_at = now()
		WHERE id = $1 AND status = 'active' AND locked_by = $4
	`
	result, err := s.db.ExecContext(ctx, query, id, percent, lease.Seconds(), workerID)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", MapError(err))
	}
	return s.checkLeased(ctx, id, result)
}

// Complete implements task.TaskStore.
func (s *PostgresTaskStore) Complete(ctx context.Context, id uuid.UUID, workerID string, result json.RawMessage) error {
	query := `
		UPDATE tasks
		SET status = 'completed',
			progress = 100,
			result = $2,
			locked_by = NULL,
			locked_until = NULL,
			completed_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'active' AND locked_by = $3
	`
	res, err := s.db.ExecContext(ctx, query, id, []byte(result), workerID)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", MapError(err))
	}
	return s.checkLeased(ctx, id, res)
}

// Fail implements task.TaskStore.
func (s *PostgresTaskStore) Fail(ctx context.Context, id uuid.UUID, workerID string, reason string) error {
	query := `
		UPDATE tasks
		SET status = 'failed',
			failure_reason = $2,
			locked_by = NULL,
			locked_until = NULL,
			completed_at = now(),
			updated_at = now()
		WHERE id = $1 AND status = 'active' AND locked_by = $3
	`
	res, err := s.db.ExecContext(ctx, query, id, reason, workerID)
	if err != nil {
		return fmt.Errorf("failed to fail task: %w", MapError(err))
	}
	return s.checkLeased(ctx, id, res)
}

// CountByStatus implements task.TaskStore.
func (s *PostgresTaskStore) CountByStatus(ctx context.Context) (map[task.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[task.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts[task.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}
	return counts, nil
}

// checkLeased turns a conditional update that matched nothing into
// ErrTaskNotFound, ErrTaskNotActive or ErrLeaseLost.
func (s *PostgresTaskStore) checkLeased(ctx context.Context, id uuid.UUID, result sql.Result) error {
	err := CheckRowsAffected(result, task.ErrTaskNotActive)
	if !errors.Is(err, task.ErrTaskNotActive) {
		return err
	}

	var status string
	qErr := s.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = $1`, id).Scan(&status)
	if errors.Is(qErr, sql.ErrNoRows) {
		return task.ErrTaskNotFound
	}
	if qErr != nil {
		return fmt.Errorf("failed to look up task: %w", MapError(qErr))
	}
	if task.Status(status) == task.StatusActive {
		return task.ErrLeaseLost
	}
	return task.ErrTaskNotActive
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t             task.Task
		status        string
		payload       []byte
		result        []byte
		failureReason sql.NullString
		lockedBy      sql.NullString
		lockedUntil   sql.NullTime
		startedAt     sql.NullTime
		completedAt   sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.Kind,
		&payload,
		&status,
		&t.Progress,
		&result,
		&failureReason,
		&t.Attempts,
		&lockedBy,
		&lockedUntil,
		&t.CreatedAt,
		&t.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = task.Status(status)
	t.Payload = json.RawMessage(payload)
	if len(result) > 0 {
		t.Result = json.RawMessage(result)
	}
	t.FailureReason = failureReason.String
	t.LockedBy = lockedBy.String
	t.LockedUntil = timePtr(lockedUntil)
	t.StartedAt = timePtr(startedAt)
	t.CompletedAt = timePtr(completedAt)
	return &t, nil
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time
	return &v
}
