package logs

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	logger := slog.New(h).With("service", "counsel").WithGroup("req")

	logger.Info("booked", "slot", "10:00")
	logger.Warn("cancelled", "slot", "11:00")

	assert.Equal(t, 2, strings.Count(debugBuf.String(), "service=counsel"))
	assert.Contains(t, debugBuf.String(), "req.slot=10:00")
	assert.NotContains(t, warnBuf.String(), "booked")
	assert.Contains(t, warnBuf.String(), `"slot":"11:00"`)

	require.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	quiet := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	assert.False(t, quiet.Enabled(context.Background(), slog.LevelInfo))
}
