package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/applytrack/applytrack/internal/domain"
	"github.com/google/uuid"
)

// DefaultLease is used when a Queue is created without an explicit lease.
const DefaultLease = 5 * time.Minute

// Queue is the durable job queue. It persists tasks through a TaskStore and
// wakes idle workers when new work arrives.
//
// A nil *Queue is valid and reports ErrQueueUnavailable from Enqueue, which
// lets callers treat "no queue configured" like "queue unreachable".
type Queue struct {
	store  TaskStore
	wake   chan struct{}
	lease  time.Duration
	logger *slog.Logger
}

// NewQueue creates a Queue over store. lease is how far each progress
// report extends a running task's lease; zero or negative uses DefaultLease.
func NewQueue(store TaskStore, lease time.Duration, logger *slog.Logger) *Queue {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &Queue{
		store:  store,
		wake:   make(chan struct{}, 1),
		lease:  lease,
		logger: logger,
	}
}

// Enqueue persists a new queued task of the given kind and signals idle
// workers. payload is JSON-encoded unless it is already json.RawMessage.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) (uuid.UUID, error) {
	if q == nil || q.store == nil {
		return uuid.Nil, ErrQueueUnavailable
	}
	if kind == "" {
		return uuid.Nil, domain.NewValidationError("kind", "must not be empty", nil)
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("payload", "cannot be encoded as JSON", err)
	}

	now := time.Now().UTC()
	t := &Task{
		ID:        uuid.New(),
		Kind:      kind,
		Payload:   raw,
		Status:    StatusQueued,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.store.Insert(ctx, t); err != nil {
		q.logger.Error("failed to enqueue task",
			"task_kind", kind,
			"error", err)
		return uuid.Nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	q.logger.Debug("task enqueued",
		"task_id", t.ID,
		"task_kind", kind)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return t.ID, nil
}

// GetStatus returns the externally visible state of a task.
func (q *Queue) GetStatus(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	if q == nil || q.store == nil {
		return nil, ErrQueueUnavailable
	}
	t, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.View(), nil
}

// UpdateProgress records a progress checkpoint for an active task leased
// to workerID and extends its lease. Progress never decreases.
func (q *Queue) UpdateProgress(ctx context.Context, id uuid.UUID, workerID string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidProgress, percent)
	}
	return q.store.UpdateProgress(ctx, id, workerID, percent, q.lease)
}

// ExtendLease pushes the lease held by workerID to lease from now without
// changing progress. It returns ErrLeaseLost once another worker has
// reclaimed the task.
func (q *Queue) ExtendLease(ctx context.Context, id uuid.UUID, workerID string, lease time.Duration) error {
	if lease <= 0 {
		lease = q.lease
	}
	return q.store.UpdateProgress(ctx, id, workerID, 0, lease)
}

// Complete marks an active task leased to workerID completed with result
// encoded as JSON.
func (q *Queue) Complete(ctx context.Context, id uuid.UUID, workerID string, result any) error {
	raw, err := encodePayload(result)
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}
	return q.store.Complete(ctx, id, workerID, raw)
}

// Fail marks an active task leased to workerID failed with a
// human-readable reason.
func (q *Queue) Fail(ctx context.Context, id uuid.UUID, workerID string, reason string) error {
	if reason == "" {
		reason = "unknown error"
	}
	return q.store.Fail(ctx, id, workerID, reason)
}

// Claim hands the oldest ready task to workerID for lease. It returns
// ErrNoTask when nothing is ready.
func (q *Queue) Claim(ctx context.Context, workerID string, lease time.Duration) (*Task, error) {
	if lease <= 0 {
		lease = q.lease
	}
	t, err := q.store.Claim(ctx, workerID, lease)
	if err != nil {
		if errors.Is(err, ErrNoTask) {
			return nil, ErrNoTask
		}
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}
	return t, nil
}

// Counts returns the number of tasks per status.
func (q *Queue) Counts(ctx context.Context) (map[Status]int, error) {
	return q.store.CountByStatus(ctx)
}

// Wake returns the channel signalled after each successful Enqueue.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

func encodePayload(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, errors.New("invalid JSON")
		}
		return p, nil
	default:
		return json.Marshal(v)
	}
}
