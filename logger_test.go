package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiHandler_RespectsEachLevel(t *testing.T) {
	var debug, info bytes.Buffer
	logger := slog.New(&multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}}).With("component", "test")

	logger.Debug("noisy")
	logger.Info("applied", "count", 2)

	assert.Contains(t, debug.String(), "noisy")
	assert.Contains(t, debug.String(), "applied")
	assert.NotContains(t, info.String(), "noisy")
	assert.Contains(t, info.String(), "component=test")
	assert.Contains(t, info.String(), "count=2")
}
