package task

import (
	"errors"
	"fmt"

	"github.com/applytrack/applytrack/internal/domain"
	"github.com/applytrack/applytrack/internal/store"
)

// Errors returned by the queue, its stores and the worker pool.
var (
	// ErrQueueUnavailable means the task was not queued. Callers may fall
	// back to running the work inline.
	ErrQueueUnavailable = fmt.Errorf("task queue unavailable: %w", domain.ErrTransient)

	// ErrTaskNotFound is returned for unknown task ids.
	ErrTaskNotFound = store.ErrTaskNotFound

	// ErrTaskNotActive is returned when a transition requires an active
	// task but the task is queued or already terminal.
	ErrTaskNotActive = errors.New("task is not active")

	// ErrLeaseLost is returned when a worker writes to a task whose lease
	// has since been claimed by another worker. The write is discarded.
	ErrLeaseLost = errors.New("task lease is held by another worker")

	// ErrInvalidProgress is returned for progress outside [0, 100].
	ErrInvalidProgress = fmt.Errorf("%w: progress must be between 0 and 100", domain.ErrValidation)

	// ErrNoTask is returned by Claim when nothing is ready.
	ErrNoTask = errors.New("no task ready")

	// ErrPoolStarted is returned by Start on an already started pool.
	ErrPoolStarted = errors.New("worker pool already started")

	// ErrShutdownTimeout is returned by Stop when in-flight tasks did not
	// finish in time and were cancelled.
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")
)
