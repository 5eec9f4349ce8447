package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/applytrack/applytrack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"Warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.input)
		assert.Equal(t, tt.want, got, "level for %q", tt.input)
		assert.Equal(t, tt.ok, ok, "ok for %q", tt.input)
	}
}

func TestNew_FansOutToExtraWriter(t *testing.T) {
	t.Parallel()

	var primary, extra bytes.Buffer
	logger := New(&primary, &extra, slog.LevelInfo)

	logger.Debug("dropped")
	logger.Info("task claimed", "task_id", "abc")

	assert.NotContains(t, primary.String(), "dropped")
	assert.Contains(t, primary.String(), `"task_id":"abc"`)
	assert.Equal(t, primary.String(), extra.String())
}

func TestSetup_WritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "applytrack.log")
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	logger, cleanup, err := Setup(config.ServerConfig{LogLevel: "debug", LogFile: path})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Debug("sweep finished", "processed", 3)
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"sweep finished"`)
	assert.Contains(t, string(data), `"processed":3`)
}

func TestSetup_InvalidLogFile(t *testing.T) {
	_, _, err := Setup(config.ServerConfig{LogLevel: "info", LogFile: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	scoped, buf := NewTestLogger()
	ctx := WithLogger(context.Background(), scoped)

	FromContext(ctx).Info("scoped message")
	assert.Contains(t, buf.String(), "scoped message")

	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))
	assert.Same(t, scoped, FromContextOrDefault(ctx, fallback))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestTestLogBuffer_Entries(t *testing.T) {
	t.Parallel()

	logger, buf := NewTestLogger()
	logger.Info("first", "n", 1)
	logger.Warn("second")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0]["msg"])
	assert.Equal(t, "WARN", entries[1]["level"])
}
