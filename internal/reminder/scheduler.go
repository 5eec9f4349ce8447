package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/applytrack/applytrack/internal/notify"
	"golang.org/x/sync/errgroup"
)

// markTimeout bounds the marker write after a send. The write runs even if
// the sweep's context is cancelled, so a delivered reminder is always
// recorded.
const markTimeout = 5 * time.Second

// Config tunes the sweep.
type Config struct {
	// Location is the reference time zone for "tomorrow" and the hour gate.
	Location *time.Location
	// GateHour is the local hour before which a run does nothing.
	GateHour int
	// SendConcurrency bounds parallel notification sends.
	SendConcurrency int
	// SendTimeout bounds one notification send.
	SendTimeout time.Duration
	// AppURL is linked from the reminder email when set.
	AppURL string
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		Location:        time.UTC,
		GateHour:        8,
		SendConcurrency: 5,
		SendTimeout:     10 * time.Second,
	}
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLock guards each run with a lock shared across processes.
func WithLock(l Lock) Option {
	return func(s *Scheduler) { s.lock = l }
}

// WithReporter sends a SweepReport after each run.
func WithReporter(r Reporter) Option {
	return func(s *Scheduler) { s.reporter = r }
}

// Scheduler runs reminder sweeps.
type Scheduler struct {
	store    Store
	notifier notify.Notifier
	reporter Reporter
	lock     Lock
	config   Config
	now      func() time.Time
	logger   *slog.Logger

	state   atomic.Int32
	running atomic.Bool
}

// NewScheduler creates a Scheduler. Zero config fields take their defaults.
func NewScheduler(store Store, notifier notify.Notifier, config Config, logger *slog.Logger, opts ...Option) *Scheduler {
	defaults := DefaultConfig()
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.SendConcurrency <= 0 {
		config.SendConcurrency = defaults.SendConcurrency
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = defaults.SendTimeout
	}
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		config:   config,
		now:      time.Now,
		logger:   logger.With("component", "reminder_scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports where the current run is.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// RunOnce performs one sweep and returns how many applications were
// notified and marked. Per-application failures are logged and skipped; an
// error is returned only when the due set cannot be read.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer func() {
		s.state.Store(int32(StateIdle))
		s.running.Store(false)
	}()

	start := time.Now()
	now := s.now().In(s.config.Location)
	if now.Hour() < s.config.GateHour {
		s.logger.Info("reminder sweep skipped before gate hour",
			"local_time", now.Format(time.RFC3339),
			"gate_hour", s.config.GateHour)
		return 0, nil
	}
	if s.lock != nil {
		release, acquired, err := s.lock.TryAcquire(ctx)
		if err != nil {
			s.logger.Error("failed to acquire reminder sweep lock", "error", err)
			return 0, fmt.Errorf("failed to acquire reminder sweep lock: %w", err)
		}
		if !acquired {
			s.logger.Info("reminder sweep already running in another process")
			return 0, ErrSweepInProgress
		}
		defer release()
	}

	day := Tomorrow(now)
	log := s.logger.With("reminder_date", day.Format(time.DateOnly))

	s.state.Store(int32(StateScanning))
	records, err := s.store.ListDue(ctx, day)
	if err != nil {
		log.Error("failed to list due reminders", "error", err)
		return 0, fmt.Errorf("failed to list due reminders: %w", err)
	}
	log.Info("reminder sweep started", "due_count", len(records))

	s.state.Store(int32(StateNotifying))
	var processed, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.config.SendConcurrency)
	for _, rec := range records {
		g.Go(func() error {
			if err := s.notifyOne(ctx, rec, now); err != nil {
				failed.Add(1)
				log.Error("reminder failed",
					"application_id", rec.ApplicationID,
					"retryable", notify.IsRetryable(err),
					"error", err)
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report := SweepReport{
		Day:       day,
		Scanned:   len(records),
		Processed: int(processed.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}
	log.Info("reminder sweep finished",
		"processed", report.Processed,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds())

	if s.reporter != nil {
		if err := s.reporter.Report(ctx, report); err != nil {
			log.Warn("failed to deliver sweep report", "error", err)
		}
	}
	return report.Processed, nil
}

// notifyOne sends a single reminder and records its marker.
func (s *Scheduler) notifyOne(ctx context.Context, rec Record, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sweep cancelled before send: %w", err)
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	defer cancel()

	email := notify.Email{
		To:       rec.OwnerEmail,
		Subject:  fmt.Sprintf("Reminder: follow up with %s tomorrow", rec.CompanyName),
		Template: notify.TemplateFollowUpReminder,
		Data: notify.FollowUpData{
			CompanyName:  rec.CompanyName,
			Position:     rec.Position,
			ReminderDate: rec.ReminderDate.Format("Monday, January 2, 2006"),
			AppURL:       s.config.AppURL,
		},
	}
	if err := s.notifier.Send(sendCtx, email); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	markCtx, cancelMark := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancelMark()
	inserted, err := s.store.MarkSent(markCtx, rec.ApplicationID, now.UTC())
	if err != nil {
		return fmt.Errorf("reminder sent but marker not recorded: %w", err)
	}
	if !inserted {
		s.logger.Warn("reminder marker already present, another sweep sent it concurrently",
			"application_id", rec.ApplicationID)
	}
	return nil
}

// Tomorrow returns midnight of the civil day after now, in now's location.
func Tomorrow(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
