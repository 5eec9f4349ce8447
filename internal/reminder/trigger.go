package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner is the single entry point a trigger invokes.
type Runner interface {
	RunOnce(ctx context.Context) (int, error)
}

// Trigger invokes a Runner once a day at the gate hour.
type Trigger struct {
	cron     *cron.Cron
	runner   Runner
	timeout  time.Duration
	logger   *slog.Logger
	schedule string
}

// NewTrigger schedules runner daily at gateHour:00 in loc. Each run is
// bounded by timeout.
func NewTrigger(runner Runner, loc *time.Location, gateHour int, timeout time.Duration, logger *slog.Logger) (*Trigger, error) {
	if gateHour < 0 || gateHour > 23 {
		return nil, fmt.Errorf("invalid gate hour %d", gateHour)
	}
	if loc == nil {
		loc = time.UTC
	}
	t := &Trigger{
		cron:     cron.New(cron.WithLocation(loc)),
		runner:   runner,
		timeout:  timeout,
		logger:   logger.With("component", "reminder_trigger"),
		schedule: fmt.Sprintf("0 %d * * *", gateHour),
	}
	if _, err := t.cron.AddFunc(t.schedule, t.fire); err != nil {
		return nil, fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}
	return t, nil
}

// Start begins scheduling in the background.
func (t *Trigger) Start() {
	t.cron.Start()
	t.logger.Info("reminder trigger started", "schedule", t.schedule)
}

// Stop prevents further runs and waits for a running sweep to return, or
// for ctx to end.
func (t *Trigger) Stop(ctx context.Context) error {
	done := t.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run time.
func (t *Trigger) Next() time.Time {
	entries := t.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (t *Trigger) fire() {
	ctx := context.Background()
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	n, err := t.runner.RunOnce(ctx)
	if err != nil {
		t.logger.Error("scheduled reminder sweep failed", "error", err)
		return
	}
	t.logger.Info("scheduled reminder sweep completed", "processed", n)
}
