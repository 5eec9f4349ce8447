package task

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTaskStore is an in-process TaskStore with the same claim and
// transition rules as the PostgreSQL store. It is used by tests and for
// running without a database.
type MemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*Task
	order []uuid.UUID
	now   func() time.Time

	// InsertFn, when set, replaces the default Insert behaviour. Tests use it
	// to simulate an unreachable store.
	InsertFn func(ctx context.Context, t *Task) error
}

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[uuid.UUID]*Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for leases and timestamps.
func (s *MemoryTaskStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Insert stores a copy of t.
func (s *MemoryTaskStore) Insert(ctx context.Context, t *Task) error {
	if s.InsertFn != nil {
		return s.InsertFn(ctx, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneTask(t)
	s.tasks[c.ID] = c
	s.order = append(s.order, c.ID)
	return nil
}

// Get returns a copy of the stored task.
func (s *MemoryTaskStore) Get(_ context.Context, id uuid.UUID) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return cloneTask(t), nil
}

// Claim implements TaskStore.
func (s *MemoryTaskStore) Claim(_ context.Context, workerID string, lease time.Duration) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, id := range s.order {
		t := s.tasks[id]
		ready := t.Status == StatusQueued ||
			(t.Status == StatusActive && t.LockedUntil != nil && !t.LockedUntil.After(now))
		if !ready {
			continue
		}

		until := now.Add(lease)
		t.Status = StatusActive
		t.LockedBy = workerID
		t.LockedUntil = &until
		t.Attempts++
		t.UpdatedAt = now
		if t.StartedAt == nil {
			started := now
			t.StartedAt = &started
		}
		return cloneTask(t), nil
	}
	return nil, ErrNoTask
}

// UpdateProgress implements TaskStore.
func (s *MemoryTaskStore) UpdateProgress(_ context.Context, id uuid.UUID, workerID string, percent int, lease time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.leasedTask(id, workerID)
	if err != nil {
		return err
	}
	now := s.now()
	if percent > t.Progress {
		t.Progress = percent
	}
	until := now.Add(lease)
	t.LockedUntil = &until
	t.UpdatedAt = now
	return nil
}

// Complete implements TaskStore.
func (s *MemoryTaskStore) Complete(_ context.Context, id uuid.UUID, workerID string, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.leasedTask(id, workerID)
	if err != nil {
		return err
	}
	s.finish(t, StatusCompleted)
	t.Progress = 100
	t.Result = append(json.RawMessage(nil), result...)
	return nil
}

// Fail implements TaskStore.
func (s *MemoryTaskStore) Fail(_ context.Context, id uuid.UUID, workerID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.leasedTask(id, workerID)
	if err != nil {
		return err
	}
	s.finish(t, StatusFailed)
	t.FailureReason = reason
	return nil
}

// CountByStatus implements TaskStore.
func (s *MemoryTaskStore) CountByStatus(_ context.Context) (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[Status]int)
	for _, t := range s.tasks {
		counts[t.Status]++
	}
	return counts, nil
}

// leasedTask must be called with s.mu held.
func (s *MemoryTaskStore) leasedTask(id uuid.UUID, workerID string) (*Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if t.Status != StatusActive {
		return nil, ErrTaskNotActive
	}
	if t.LockedBy != workerID {
		return nil, ErrLeaseLost
	}
	return t, nil
}

// finish must be called with s.mu held.
func (s *MemoryTaskStore) finish(t *Task, status Status) {
	now := s.now()
	t.Status = status
	t.LockedBy = ""
	t.LockedUntil = nil
	t.UpdatedAt = now
	t.CompletedAt = &now
}

func cloneTask(t *Task) *Task {
	c := *t
	c.Payload = append(json.RawMessage(nil), t.Payload...)
	c.Result = append(json.RawMessage(nil), t.Result...)
	if t.LockedUntil != nil {
		v := *t.LockedUntil
		c.LockedUntil = &v
	}
	if t.StartedAt != nil {
		v := *t.StartedAt
		c.StartedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}
