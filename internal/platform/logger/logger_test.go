package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log, closeLog := New(Options{
		Env:          "dev",
		ConsoleLevel: "info",
		App:          "persistkit",
	})
	require.NotNil(t, log)
	assert.NoError(t, closeLog())
}

func TestNew_WithFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	log, closeLog := New(Options{
		Env:          "prod",
		ConsoleLevel: "error",
		FileLevel:    "debug",
		File:         file,
		App:          "persistkit",
	})
	log.Info("hello")
	assert.NoError(t, closeLog())
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levelFromString(tt.in))
	}
}

func TestRedactingHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	log := slog.New(NewRedactingHandler(inner, []string{"password", "dsn"}))

	log.Info("connecting",
		slog.String("password", "hunter2"),
		slog.String("dsn", "postgres://u:p@host/db"),
		slog.String("driver", "pgx"),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "[REDACTED]", record["password"])
	assert.Equal(t, "[REDACTED]", record["dsn"])
	assert.Equal(t, "pgx", record["driver"])
}

func TestRedactingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	h := NewRedactingHandler(inner, []string{"secret"})
	log := slog.New(h.WithAttrs([]slog.Attr{slog.String("secret", "value")}))

	log.Info("msg")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "[REDACTED]", record["secret"])
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h)

	log.Debug("quiet")
	log.Error("loud")

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	// The debug-level handler got both records, the error-level one only the error.
	assert.Equal(t, 2, bytes.Count(a.Bytes(), []byte("\n")))
	assert.Equal(t, 1, bytes.Count(b.Bytes(), []byte("\n")))
}
