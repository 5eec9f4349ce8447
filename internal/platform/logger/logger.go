package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/applytrack/applytrack/internal/config"
	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel converts a configured level name (case-insensitive) into a
// slog.Level. The second return value is false when the name is unknown, in
// which case LevelInfo is returned.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup initializes the application's logging system from the server
// configuration. Records are written as JSON to stdout and, when LogFile is
// set, also appended to that file. The logger is installed as the slog
// default.
//
// The returned cleanup function closes the log file, if one was opened.
func Setup(cfg config.ServerConfig) (*slog.Logger, func() error, error) {
	level, ok := ParseLevel(cfg.LogLevel)

	var file *os.File
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %q: %w", cfg.LogFile, err)
		}
		file = f
	}

	var fileOut io.Writer
	if file != nil {
		fileOut = file
	}
	logger := New(os.Stdout, fileOut, level)
	slog.SetDefault(logger)

	if !ok {
		logger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	cleanup := func() error {
		if file == nil {
			return nil
		}
		return file.Close()
	}
	return logger, cleanup, nil
}

// New builds a JSON logger writing to out. When extra is non-nil, every
// record is also written to it.
func New(out io.Writer, extra io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	handler := slog.Handler(slog.NewJSONHandler(out, opts))
	if extra != nil {
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(extra, opts))
	}
	return slog.New(handler)
}
