package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analysisOutput struct {
	MatchScore int `json:"matchScore"`
}

func TestNewWorkerPool_Defaults(t *testing.T) {
	t.Parallel()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	pool := NewWorkerPool(q, nil, WorkerPoolConfig{WorkerCount: -5}, setupTestLogger())
	assert.Equal(t, 1, pool.config.WorkerCount)
	assert.Equal(t, 2*time.Second, pool.config.PollInterval)
	assert.Equal(t, 5*time.Minute, pool.config.VisibilityTimeout)
	assert.Equal(t, 3*time.Minute, pool.config.TaskTimeout)
	assert.Equal(t, 30*time.Second, pool.config.ShutdownTimeout)
	assert.NotEmpty(t, pool.config.WorkerIDPrefix)
	assert.Nil(t, pool.errorHandler)

	pool.SetErrorHandler(func(*Task, error) {})
	assert.NotNil(t, pool.errorHandler)
}

func TestWorkerPool_StartTwice(t *testing.T) {
	t.Parallel()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())
	pool := NewWorkerPool(q, nil, fastConfig(1), setupTestLogger())

	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolStarted)
	require.NoError(t, pool.Stop(context.Background()))
}

func TestWorkerPool_CompletesTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	handler := newMockHandler(KindCVAnalysis, func(ctx context.Context, task *Task, progress ProgressReporter) (any, error) {
		if err := progress.ReportProgress(ctx, 30); err != nil {
			return nil, err
		}
		return analysisOutput{MatchScore: 81}, nil
	})
	pool := NewWorkerPool(q, []Handler{handler}, fastConfig(2), setupTestLogger())
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	id, err := q.Enqueue(ctx, KindCVAnalysis, map[string]string{"cvFileId": "cv-1"})
	require.NoError(t, err)

	view := waitForStatus(t, q, id, StatusCompleted)
	assert.Equal(t, 100, view.Progress)
	assert.JSONEq(t, `{"matchScore":81}`, string(view.Result))
	assert.Equal(t, 1, handler.callCount())
}

func TestWorkerPool_HandlerErrorMarksFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	handler := newMockHandler(KindCVAnalysis, func(context.Context, *Task, ProgressReporter) (any, error) {
		return nil, errors.New("ai provider returned malformed JSON")
	})

	var handled atomic.Int32
	pool := NewWorkerPool(q, []Handler{handler}, fastConfig(1), setupTestLogger())
	pool.SetErrorHandler(func(*Task, error) { handled.Add(1) })
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	id, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)

	view := waitForStatus(t, q, id, StatusFailed)
	assert.Equal(t, "ai provider returned malformed JSON", view.FailureReason)
	assert.Eventually(t, func() bool { return handled.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWorkerPool_PanicIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	var calls atomic.Int32
	handler := newMockHandler(KindCVAnalysis, func(context.Context, *Task, ProgressReporter) (any, error) {
		if calls.Add(1) == 1 {
			panic("nil map write")
		}
		return analysisOutput{MatchScore: 50}, nil
	})
	pool := NewWorkerPool(q, []Handler{handler}, fastConfig(1), setupTestLogger())
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	first, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)
	view := waitForStatus(t, q, first, StatusFailed)
	assert.Equal(t, "panic: nil map write", view.FailureReason)

	// The same single worker keeps processing.
	second, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)
	waitForStatus(t, q, second, StatusCompleted)
}

func TestWorkerPool_UnknownKindFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())
	pool := NewWorkerPool(q, nil, fastConfig(1), setupTestLogger())
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	id, err := q.Enqueue(ctx, "resume_render", nil)
	require.NoError(t, err)

	view := waitForStatus(t, q, id, StatusFailed)
	assert.Equal(t, `no handler registered for kind "resume_render"`, view.FailureReason)
}

func TestWorkerPool_TaskTimeout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	handler := newMockHandler(KindCVAnalysis, func(ctx context.Context, _ *Task, _ ProgressReporter) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cfg := fastConfig(1)
	cfg.TaskTimeout = 50 * time.Millisecond
	pool := NewWorkerPool(q, []Handler{handler}, cfg, setupTestLogger())
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	id, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)

	view := waitForStatus(t, q, id, StatusFailed)
	assert.Contains(t, view.FailureReason, "task timed out after 50ms")
}

func TestWorkerPool_RedeliversExpiredLease(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	// Simulate a worker that crashed after claiming.
	id, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)
	_, err = q.Claim(ctx, "crashed-worker", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	handler := newMockHandler(KindCVAnalysis, func(context.Context, *Task, ProgressReporter) (any, error) {
		return analysisOutput{MatchScore: 12}, nil
	})
	pool := NewWorkerPool(q, []Handler{handler}, fastConfig(1), setupTestLogger())
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	waitForStatus(t, q, id, StatusCompleted)
	task, err := q.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, task.Attempts)
}

func TestWorkerPool_StopDrainsInFlight(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	handler := newMockHandler(KindCVAnalysis, func(context.Context, *Task, ProgressReporter) (any, error) {
		close(started)
		<-release
		return analysisOutput{MatchScore: 70}, nil
	})
	pool := NewWorkerPool(q, []Handler{handler}, fastConfig(1), setupTestLogger())
	require.NoError(t, pool.Start(ctx))

	id, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- pool.Stop(ctx) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight task finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	require.NoError(t, <-stopped)
	view, err := q.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, view.State)
}

func TestWorkerPool_StopTimesOutAndCancels(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	handler := newMockHandler(KindCVAnalysis, func(ctx context.Context, _ *Task, _ ProgressReporter) (any, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})
	cfg := fastConfig(1)
	cfg.TaskTimeout = time.Minute
	cfg.ShutdownTimeout = 50 * time.Millisecond
	pool := NewWorkerPool(q, []Handler{handler}, cfg, setupTestLogger())
	require.NoError(t, pool.Start(ctx))

	id, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)
	<-started

	err = pool.Stop(ctx)
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	<-cancelled

	// The abandoned task stays active for redelivery rather than failing.
	view, err := q.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, view.State)
}

func TestWorkerPool_ProcessesBacklogConcurrently(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	var inFlight, peak atomic.Int32
	handler := newMockHandler(KindFitScore, func(context.Context, *Task, ProgressReporter) (any, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return analysisOutput{MatchScore: 1}, nil
	})

	ids := make([]any, 0, 6)
	for i := 0; i < 6; i++ {
		id, err := q.Enqueue(ctx, KindFitScore, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	pool := NewWorkerPool(q, []Handler{handler}, fastConfig(3), setupTestLogger())
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	require.Eventually(t, func() bool {
		counts, err := q.Counts(ctx)
		return err == nil && counts[StatusCompleted] == len(ids)
	}, 2*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 6, handler.callCount())
}

func TestWorkerPool_RenewsLeaseForLongTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	q := NewQueue(NewMemoryTaskStore(), 0, setupTestLogger())

	var running, peak atomic.Int32
	handler := newMockHandler(KindCVAnalysis, func(context.Context, *Task, ProgressReporter) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		defer running.Add(-1)
		time.Sleep(500 * time.Millisecond)
		return analysisOutput{MatchScore: 9}, nil
	})
	cfg := fastConfig(3)
	cfg.VisibilityTimeout = 150 * time.Millisecond
	cfg.TaskTimeout = 2 * time.Second
	pool := NewWorkerPool(q, []Handler{handler}, cfg, setupTestLogger())
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	id, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)

	waitForStatus(t, q, id, StatusCompleted)
	assert.Equal(t, 1, handler.callCount())
	assert.Equal(t, int32(1), peak.Load())

	stored, err := q.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
}

func TestWorkerPool_LostLeaseCancelsHandlerAndDiscardsResult(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryTaskStore()
	store.SetClock(clock.Now)
	q := NewQueue(store, 0, setupTestLogger())

	started := make(chan struct{})
	causes := make(chan error, 1)
	handler := newMockHandler(KindCVAnalysis, func(ctx context.Context, _ *Task, _ ProgressReporter) (any, error) {
		close(started)
		<-ctx.Done()
		causes <- context.Cause(ctx)
		return analysisOutput{MatchScore: 99}, nil
	})
	var handled atomic.Int32
	cfg := fastConfig(1)
	cfg.VisibilityTimeout = 90 * time.Millisecond
	cfg.TaskTimeout = 5 * time.Second
	pool := NewWorkerPool(q, []Handler{handler}, cfg, setupTestLogger())
	pool.SetErrorHandler(func(*Task, error) { handled.Add(1) })
	require.NoError(t, pool.Start(ctx))
	defer func() { _ = pool.Stop(ctx) }()

	id, err := q.Enqueue(ctx, KindCVAnalysis, nil)
	require.NoError(t, err)
	<-started

	// Let the lease lapse and hand the task to another consumer.
	require.Eventually(t, func() bool {
		clock.Advance(time.Hour)
		_, err := q.Claim(ctx, "intruder", time.Hour)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	select {
	case cause := <-causes:
		assert.ErrorIs(t, cause, ErrLeaseLost)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not cancelled after losing its lease")
	}

	require.Never(t, func() bool {
		v, err := q.GetStatus(ctx, id)
		return err != nil || v.State != StatusActive
	}, 100*time.Millisecond, 10*time.Millisecond)

	stored, err := q.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "intruder", stored.LockedBy)
	assert.Empty(t, stored.Result)
	assert.Zero(t, handled.Load())
}
