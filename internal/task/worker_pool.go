package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/applytrack/applytrack/internal/platform/logger"
	"github.com/google/uuid"
)

// forceStopGrace bounds how long Stop waits for workers after cancelling
// their task contexts.
const forceStopGrace = 5 * time.Second

// recordTimeout bounds the Complete/Fail write after a handler returns.
const recordTimeout = 10 * time.Second

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// PollInterval is how long an idle worker waits before claiming again
	// when it has not been woken by an enqueue.
	PollInterval time.Duration

	// VisibilityTimeout is the lease taken on each claimed task. A task
	// still active after its lease expires is redelivered.
	VisibilityTimeout time.Duration

	// TaskTimeout bounds a single handler execution.
	TaskTimeout time.Duration

	// ShutdownTimeout bounds how long Stop waits for in-flight tasks.
	ShutdownTimeout time.Duration

	// WorkerIDPrefix names workers in leases and logs. Defaults to the host
	// name and process id.
	WorkerIDPrefix string
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount:       2,
		PollInterval:      2 * time.Second,
		VisibilityTimeout: 5 * time.Minute,
		TaskTimeout:       3 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
	}
}

// WorkerPool runs a fixed number of workers, each with its own claim loop
// against the queue. Handler errors and panics are recorded on the task and
// never stop a worker.
type WorkerPool struct {
	queue    *Queue
	handlers map[string]Handler
	config   WorkerPoolConfig
	logger   *slog.Logger

	wg sync.WaitGroup

	// stop closes when Stop is called; workers stop claiming.
	stop     chan struct{}
	stopOnce sync.Once

	// taskCtx is the parent of every handler context. Cancelling it
	// force-stops in-flight tasks.
	taskCtx     context.Context
	cancelTasks context.CancelFunc

	mu      sync.Mutex
	started bool

	// errorHandler is called when a task execution fails.
	// If nil, errors are only logged.
	errorHandler func(t *Task, err error)
}

// NewWorkerPool creates a worker pool that dispatches claimed tasks to
// handlers by kind.
func NewWorkerPool(queue *Queue, handlers []Handler, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	defaults := DefaultWorkerPoolConfig()
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = defaults.VisibilityTimeout
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = defaults.TaskTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if config.TaskTimeout >= config.VisibilityTimeout {
		logger.Warn("task timeout is not shorter than the visibility timeout, leases rely on renewal",
			"task_timeout", config.TaskTimeout.String(),
			"visibility_timeout", config.VisibilityTimeout.String())
	}
	if config.WorkerIDPrefix == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "worker"
		}
		config.WorkerIDPrefix = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	registry := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		if _, dup := registry[h.Kind()]; dup {
			logger.Warn("duplicate handler registered, keeping the last one", "task_kind", h.Kind())
		}
		registry[h.Kind()] = h
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queue:       queue,
		handlers:    registry,
		config:      config,
		logger:      logger,
		stop:        make(chan struct{}),
		taskCtx:     taskCtx,
		cancelTasks: cancel,
	}
}

// SetErrorHandler allows setting a custom error handler for task execution failures
func (p *WorkerPool) SetErrorHandler(handler func(t *Task, err error)) {
	p.errorHandler = handler
}

// Start logs the backlog left by previous runs and launches the workers.
// Active tasks from a crashed process need no reset: they are reclaimed
// once their lease expires.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrPoolStarted
	}

	counts, err := p.queue.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect task backlog: %w", err)
	}
	p.logger.Info("starting worker pool",
		"worker_count", p.config.WorkerCount,
		"queued_count", counts[StatusQueued],
		"active_count", counts[StatusActive])

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-%d", p.config.WorkerIDPrefix, i)
		p.wg.Add(1)
		go p.worker(workerID)
	}
	p.started = true
	return nil
}

// Stop stops claiming new tasks and waits for in-flight tasks to finish. If
// they do not finish within ShutdownTimeout (or before ctx is done), their
// contexts are cancelled and ErrShutdownTimeout is returned. Cancelled
// tasks stay active and are redelivered after their lease expires.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stop) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(p.config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		p.cancelTasks()
		p.logger.Info("worker pool stopped")
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	p.logger.Warn("worker pool shutdown timed out, cancelling in-flight tasks",
		"shutdown_timeout", p.config.ShutdownTimeout.String())
	p.cancelTasks()

	select {
	case <-done:
	case <-time.After(forceStopGrace):
		p.logger.Error("workers did not exit after cancellation")
	}
	return ErrShutdownTimeout
}

func (p *WorkerPool) worker(id string) {
	defer p.wg.Done()

	log := p.logger.With("worker_id", id)
	log.Debug("starting worker")

	for {
		select {
		case <-p.stop:
			log.Debug("stopping worker")
			return
		default:
		}

		t, err := p.queue.Claim(p.taskCtx, id, p.config.VisibilityTimeout)
		if err == nil {
			p.processTask(id, t)
			continue
		}
		if !errors.Is(err, ErrNoTask) && p.taskCtx.Err() == nil {
			log.Error("failed to claim task", "error", err)
		}

		idle := time.NewTimer(p.config.PollInterval)
		select {
		case <-p.stop:
			idle.Stop()
			log.Debug("stopping worker")
			return
		case <-p.queue.Wake():
		case <-idle.C:
		}
		idle.Stop()
	}
}

// processTask handles execution of a single claimed task
func (p *WorkerPool) processTask(workerID string, t *Task) {
	log := p.logger.With(
		"task_id", t.ID,
		"task_kind", t.Kind,
		"worker_id", workerID,
		"attempt", t.Attempts,
	)
	log.Info("processing task")

	timeoutCtx, cancelTimeout := context.WithTimeout(p.taskCtx, p.config.TaskTimeout)
	defer cancelTimeout()
	ctx, cancel := context.WithCancelCause(timeoutCtx)
	defer cancel(nil)
	ctx = logger.WithLogger(ctx, log)

	stopRenewal := p.renewLease(ctx, cancel, workerID, t.ID, log)
	start := time.Now()
	result, err := p.execute(ctx, workerID, t)
	stopRenewal()

	if p.taskCtx.Err() != nil {
		log.Warn("task abandoned during shutdown, it will be redelivered", "error", err)
		return
	}
	if errors.Is(context.Cause(ctx), ErrLeaseLost) {
		log.Warn("task lease lost to another worker, discarding outcome", "error", err)
		return
	}

	recordCtx, cancelRecord := context.WithTimeout(context.Background(), recordTimeout)
	defer cancelRecord()
	recordCtx = logger.WithLogger(recordCtx, log)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("task timed out after %s: %w", p.config.TaskTimeout, err)
		}
		log.Error("task execution failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		if failErr := p.queue.Fail(recordCtx, t.ID, workerID, err.Error()); failErr != nil {
			if errors.Is(failErr, ErrLeaseLost) {
				log.Warn("task lease lost to another worker, discarding failure", "error", failErr)
				return
			}
			log.Error("failed to record task failure", "error", failErr)
		}
		if p.errorHandler != nil {
			p.errorHandler(t, err)
		}
		return
	}

	if completeErr := p.queue.Complete(recordCtx, t.ID, workerID, result); completeErr != nil {
		if errors.Is(completeErr, ErrLeaseLost) {
			log.Warn("task lease lost to another worker, discarding result", "error", completeErr)
			return
		}
		log.Error("failed to record task completion", "error", completeErr)
		return
	}
	log.Info("task completed successfully", "duration_ms", time.Since(start).Milliseconds())
}

// renewLease extends the task's lease every third of the visibility timeout
// until the returned stop function is called. If the task is no longer
// leased to workerID, the handler context is cancelled with ErrLeaseLost.
func (p *WorkerPool) renewLease(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	workerID string,
	id uuid.UUID,
	log *slog.Logger,
) (stop func()) {
	interval := p.config.VisibilityTimeout / 3
	if interval <= 0 {
		interval = p.config.VisibilityTimeout
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			err := p.queue.ExtendLease(ctx, id, workerID, p.config.VisibilityTimeout)
			switch {
			case err == nil:
			case errors.Is(err, ErrLeaseLost), errors.Is(err, ErrTaskNotActive), errors.Is(err, ErrTaskNotFound):
				log.Warn("task lease lost, cancelling handler", "error", err)
				cancel(ErrLeaseLost)
				return
			case ctx.Err() == nil:
				log.Warn("failed to extend task lease", "error", err)
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

// execute runs the handler for t, converting a panic into an error.
func (p *WorkerPool) execute(ctx context.Context, workerID string, t *Task) (result any, err error) {
	h, ok := p.handlers[t.Kind]
	if !ok {
		return nil, fmt.Errorf("no handler registered for kind %q", t.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("task handler panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	reporter := ProgressFunc(func(ctx context.Context, percent int) error {
		return p.queue.UpdateProgress(ctx, t.ID, workerID, percent)
	})
	return h.Handle(ctx, t, reporter)
}
