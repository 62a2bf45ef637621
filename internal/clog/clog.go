// Package clog provides the structured logger used throughout ckv. It
// wraps log/slog with a component name attached to every record, mirroring
// the severity levels the rest of the stack expects (debug/info/warn/error).
package clog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with a persistent component name.
type Logger struct {
	inner     *slog.Logger
	component string
}

// New creates a logger for component, writing JSON records to w. If w is
// nil, os.Stderr is used.
func New(component string, level slog.Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(handler), component: component}
}

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a
// slog.Level, defaulting to Info for unrecognized input.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying additional persistent fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...), component: l.component}
}

func (l *Logger) attrs(args []any) []any {
	return append([]any{slog.String("component", l.component)}, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, l.attrs(args)...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, l.attrs(args)...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, l.attrs(args)...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, l.attrs(args)...) }
