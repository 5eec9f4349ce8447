package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/applytrack/applytrack/internal/config"
	"github.com/applytrack/applytrack/internal/platform/logger"
	"github.com/applytrack/applytrack/internal/platform/postgres"
)

// bootstrap loads configuration, installs the logger and connects to the
// database. The returned cleanup closes the database and the log file.
func bootstrap(ctx context.Context) (*config.Config, *slog.Logger, *sql.DB, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, closeLog, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_provider", cfg.LLM.Provider,
		"mail_provider", cfg.Mail.Provider,
		"reminders_enabled", cfg.Reminder.Enabled,
		"telegram_enabled", cfg.Telegram.Enabled())

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		_ = closeLog()
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database connection", "error", err)
		}
		_ = closeLog()
	}
	return cfg, log, db, cleanup, nil
}
