package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandlerLevel(t *testing.T) {
	h := NewHandler("test")
	ctx := context.Background()

	// Starts at debug so nothing logged before configuration is dropped.
	assert.True(t, h.Enabled(ctx, slog.LevelDebug))
	assert.True(t, h.Enabled(ctx, slog.LevelInfo))

	h.SetLevel(slog.LevelWarn)
	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestHandlerLevelSharedWithClones(t *testing.T) {
	h := NewHandler("test")
	clone := h.WithAttrs([]slog.Attr{slog.String("component", "db")})

	h.SetLevel(slog.LevelError)
	assert.False(t, clone.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, clone.Enabled(context.Background(), slog.LevelError))
}

func TestShouldSkipLog(t *testing.T) {
	noisy := slog.NewRecord(time.Time{}, slog.LevelDebug, "Sending PING to server", 0)
	assert.True(t, shouldSkipLog(&noisy))

	useful := slog.NewRecord(time.Time{}, slog.LevelInfo, "Socket Mode connected", 0)
	assert.False(t, shouldSkipLog(&useful))
}
