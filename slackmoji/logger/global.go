package logger

import (
	"log/slog"
	"time"
)

// LogEvent logs the handling of one inbound Slack event.
func LogEvent(eventType string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "event"),
		slog.String("event", eventType),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Event handling failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Debug("Event handled", attrs...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
