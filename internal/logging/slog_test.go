package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_ComponentLoggerFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	log := base.With("component", "notes")
	ctx := context.Background()

	log.Debug(ctx, "query plan", "sql", "SELECT 1")
	log.Info(ctx, "note stored", "id", "n-1", "inbox", "alice")
	log.Warn(ctx, "audio path dropped", "inbox", "alice")

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "note stored", lines[0]["msg"])
	assert.Equal(t, "notes", lines[0]["component"])
	assert.Equal(t, "n-1", lines[0]["id"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "notes", lines[1]["component"])
}

func TestSlogLogger_ErrorsRenderAsText(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx := context.Background()

	args := []any{"inbox", "alice", "error", errors.New("db down")}
	log.With("component", "inboxes", "cause", errors.New("tx aborted")).
		Error(ctx, "flag read failed", args...)
	log.Debug(ctx, "nil error", "error", error(nil))

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "db down", lines[0]["error"])
	assert.Equal(t, "tx aborted", lines[0]["cause"])
	assert.Equal(t, "inboxes", lines[0]["component"])
	assert.Equal(t, "DEBUG", lines[1]["level"])

	_, isErr := args[3].(error)
	assert.True(t, isErr, "caller's args must not be rewritten")
}

func TestErrorStrings(t *testing.T) {
	assert.Empty(t, errorStrings(nil))
	assert.Equal(t, []any{"k", "v", "dangling"}, errorStrings([]any{"k", "v", "dangling"}))
	assert.Equal(t, []any{"error", "boom"}, errorStrings([]any{"error", errors.New("boom")}))
}
