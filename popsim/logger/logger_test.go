package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerWritesTypeAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelInfo))

	log.Info("Batch completed", slog.String("type", "batch"), slog.Int("funded", 3))

	out := buf.String()
	assert.Contains(t, out, "[BATCH]")
	assert.Contains(t, out, "Batch completed")
	assert.Contains(t, out, "funded=")
	assert.NotContains(t, out, "type=")
}

func TestHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelWarn))

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, slog.LevelDebug)).
		With(slog.String("type", "chain")).
		WithGroup("funding")

	log.Debug("Submitted transfer", slog.String("to", "0xabc"))

	out := buf.String()
	assert.Contains(t, out, "[CHAIN]")
	assert.Contains(t, out, "funding.to=")
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: slog.LevelInfo, Format: "json", Output: &buf})

	log.Info("Pool initialized", slog.String("pool_id", "main"))

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "{"))
	assert.Contains(t, line, `"pool_id":"main"`)
}
