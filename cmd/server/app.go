package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/applytrack/applytrack/internal/analysis"
	"github.com/applytrack/applytrack/internal/api"
	"github.com/applytrack/applytrack/internal/config"
	"github.com/applytrack/applytrack/internal/generation"
	"github.com/applytrack/applytrack/internal/notify"
	"github.com/applytrack/applytrack/internal/platform/gemini"
	"github.com/applytrack/applytrack/internal/platform/openrouter"
	"github.com/applytrack/applytrack/internal/platform/postgres"
	"github.com/applytrack/applytrack/internal/platform/telegram"
	"github.com/applytrack/applytrack/internal/redact"
	"github.com/applytrack/applytrack/internal/reminder"
	"github.com/applytrack/applytrack/internal/task"
)

// application holds the wired components shared by the commands.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	queue     *task.Queue
	analysis  *analysis.Service
	pool      *task.WorkerPool
	scheduler *reminder.Scheduler

	// sweeper is the scheduler, wrapped to alert the operator on failure
	// when Telegram is configured.
	sweeper reminder.Runner
}

// newApplication builds every component on top of an open database.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{config: cfg, logger: logger, db: db}

	taskStore := postgres.NewPostgresTaskStore(db)
	analysisStore := postgres.NewPostgresAnalysisStore(db, logger)
	reminderStore := postgres.NewPostgresReminderStore(db)

	app.queue = task.NewQueue(taskStore, cfg.Worker.VisibilityTimeout, logger.With("component", "task_queue"))

	completer, err := newCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	app.analysis = analysis.NewService(completer, analysisStore, analysisStore, app.queue, cfg.LLM.Timeout, logger)

	app.pool = task.NewWorkerPool(app.queue,
		[]task.Handler{
			analysis.NewHandler(app.analysis),
			analysis.NewFitScoreHandler(app.analysis),
		},
		task.WorkerPoolConfig{
			WorkerCount:       cfg.Worker.Count,
			PollInterval:      cfg.Worker.PollInterval,
			VisibilityTimeout: cfg.Worker.VisibilityTimeout,
			TaskTimeout:       cfg.Worker.TaskTimeout,
			ShutdownTimeout:   cfg.Worker.ShutdownTimeout,
		},
		logger.With("component", "worker_pool"))

	loc, err := cfg.Reminder.Location()
	if err != nil {
		return nil, err
	}
	opts := []reminder.Option{reminder.WithLock(postgres.NewPostgresSweepLock(db))}
	var alerts errorAlerter
	if cfg.Telegram.Enabled() {
		reporter, err := telegram.NewReporter(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reminder.WithReporter(reporter))
		alerts = reporter
	}
	app.scheduler = reminder.NewScheduler(reminderStore, newNotifier(cfg.Mail, logger),
		reminder.Config{
			Location:        loc,
			GateHour:        cfg.Reminder.GateHour,
			SendConcurrency: cfg.Reminder.SendConcurrency,
			SendTimeout:     cfg.Reminder.SendTimeout,
			AppURL:          cfg.Reminder.AppURL,
		},
		logger, opts...)
	app.sweeper = newAlertingRunner(app.scheduler, alerts, logger)

	logger.Info("application initialized")
	return app, nil
}

// router builds the HTTP routes over the application's components.
func (app *application) router() http.Handler {
	return api.NewRouter(api.Handlers{
		Analyses:  api.NewAnalysisHandler(app.analysis),
		Tasks:     api.NewTaskHandler(app.queue),
		Reminders: api.NewReminderHandler(app.sweeper),
		Health:    api.NewHealthHandler(app.db, app.queue),
	}, app.logger)
}

// newCompleter selects the AI provider. Provider "none" yields a completer
// that fails every call, so analysis tasks fail with a clear reason. The
// provider packages tag their own log lines with a component.
func newCompleter(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Completer, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewCompleter(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case "openrouter":
		return openrouter.NewCompleter(openrouter.Config{
			BaseURL:     cfg.OpenRouterBaseURL,
			APIKey:      cfg.OpenRouterAPIKey,
			Model:       cfg.OpenRouterModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case "none", "":
		logger.Warn("no LLM provider configured, analysis tasks will fail")
		return generation.Unavailable{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown LLM provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}

// newNotifier selects the mail gateway.
func newNotifier(cfg config.MailConfig, logger *slog.Logger) notify.Notifier {
	if cfg.Provider == "resend" {
		return notify.NewHTTPMailer(notify.MailerConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			From:    cfg.From,
			Timeout: cfg.Timeout,
		}, logger.With("component", "mailer"))
	}
	return notify.NewLogNotifier(logger.With("component", "mailer"))
}

// errorAlerter is satisfied by *telegram.Reporter.
type errorAlerter interface {
	SendError(err error) error
}

// alertingRunner forwards sweep failures to an operator channel. A sweep
// rejected because another is running is not a failure.
type alertingRunner struct {
	runner reminder.Runner
	alerts errorAlerter
	logger *slog.Logger
}

func newAlertingRunner(runner reminder.Runner, alerts errorAlerter, logger *slog.Logger) *alertingRunner {
	return &alertingRunner{runner: runner, alerts: alerts, logger: logger}
}

func (r *alertingRunner) RunOnce(ctx context.Context) (int, error) {
	n, err := r.runner.RunOnce(ctx)
	if err != nil && r.alerts != nil && !errors.Is(err, reminder.ErrSweepInProgress) {
		if alertErr := r.alerts.SendError(errors.New(redact.Error(err))); alertErr != nil {
			r.logger.Warn("failed to send sweep failure alert", "error", alertErr)
		}
	}
	return n, err
}
