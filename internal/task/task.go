package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task kinds understood by the application's handlers.
const (
	KindCVAnalysis = "cv_analysis"
	KindFitScore   = "fit_score"
)

// Task is a durable unit of background work.
type Task struct {
	ID            uuid.UUID
	Kind          string
	Payload       json.RawMessage
	Status        Status
	Progress      int
	Result        json.RawMessage // set only when completed
	FailureReason string          // set only when failed
	Attempts      int
	LockedBy      string
	LockedUntil   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// StatusView is the externally visible state of a task.
type StatusView struct {
	State         Status          `json:"state"`
	Progress      int             `json:"progress"`
	Result        json.RawMessage `json:"result,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
}

// View projects t into a StatusView.
func (t *Task) View() *StatusView {
	v := &StatusView{State: t.Status, Progress: t.Progress}
	switch t.Status {
	case StatusCompleted:
		v.Result = t.Result
	case StatusFailed:
		v.FailureReason = t.FailureReason
	}
	return v
}

// TaskStore defines the interface for persisting tasks.
//
// Implementations must make Claim atomic: two concurrent callers never
// receive the same task unless its lease has expired in between. Writes to
// an active task succeed only for the worker holding its lease; others get
// ErrLeaseLost.
type TaskStore interface {
	// Insert persists a new queued task.
	Insert(ctx context.Context, t *Task) error

	// Get returns the task with the given id or ErrTaskNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Task, error)

	// Claim marks the oldest ready task active for workerID until now+lease
	// and increments its attempts. A task is ready when it is queued, or
	// active with an expired lease. Returns ErrNoTask when none is ready.
	Claim(ctx context.Context, workerID string, lease time.Duration) (*Task, error)

	// UpdateProgress raises progress (never lowers it) on an active task
	// leased to workerID and extends its lease by lease from now.
	UpdateProgress(ctx context.Context, id uuid.UUID, workerID string, percent int, lease time.Duration) error

	// Complete moves an active task leased to workerID to completed with the
	// given result.
	Complete(ctx context.Context, id uuid.UUID, workerID string, result json.RawMessage) error

	// Fail moves an active task leased to workerID to failed with the given
	// reason.
	Fail(ctx context.Context, id uuid.UUID, workerID string, reason string) error

	// CountByStatus returns the number of tasks in each status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// ProgressReporter lets a running handler publish progress checkpoints.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, percent int) error
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(ctx context.Context, percent int) error

// ReportProgress calls f.
func (f ProgressFunc) ReportProgress(ctx context.Context, percent int) error {
	return f(ctx, percent)
}

// NoProgress discards progress reports. It is used when work runs inline
// rather than from the queue.
var NoProgress ProgressReporter = ProgressFunc(func(context.Context, int) error { return nil })

// Handler executes tasks of one kind. The returned value is stored as the
// task result in JSON form.
type Handler interface {
	Kind() string
	Handle(ctx context.Context, t *Task, progress ProgressReporter) (any, error)
}
