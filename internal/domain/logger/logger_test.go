package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureDefault(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestQueryLogger_LogError(t *testing.T) {
	buf := captureDefault(t, slog.LevelInfo)

	NewQueryLogger("merge_summary", "population_summaries").Log(errors.New("deadlock detected"), 0)

	out := buf.String()
	assert.Contains(t, out, "Query failed")
	assert.Contains(t, out, "operation=merge_summary")
	assert.Contains(t, out, "deadlock detected")
}

func TestQueryLogger_LogSuccessIsDebug(t *testing.T) {
	buf := captureDefault(t, slog.LevelInfo)
	NewQueryLogger("record_agent", "agents").Log(nil, 1)
	assert.Empty(t, buf.String())

	buf = captureDefault(t, slog.LevelDebug)
	NewQueryLogger("record_agent", "agents").Log(nil, 1)
	assert.Contains(t, buf.String(), "affected_rows=1")
}
