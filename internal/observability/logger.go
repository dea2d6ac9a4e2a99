// Package observability provides structured logging and metrics collection.
//
// Logger wraps log/slog with a persistent component field.
// MetricsCollector keeps store counters and recent latencies in memory.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with persistent component context.
type Logger struct {
	inner     *slog.Logger
	component string
}

// NewLogger creates a JSON logger at DEBUG level for a component.
// Output defaults to os.Stderr if w is nil.
func NewLogger(component string, w io.Writer) *Logger {
	return NewLeveledLogger(component, w, slog.LevelDebug)
}

// NewLeveledLogger creates a JSON logger that drops records below level.
func NewLeveledLogger(component string, w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return NewLoggerWithHandler(component, handler)
}

// NewLoggerWithHandler creates a logger with a custom slog handler.
func NewLoggerWithHandler(component string, h slog.Handler) *Logger {
	return &Logger{
		inner:     slog.New(h).With(slog.String("component", component)),
		component: component,
	}
}

// ParseLevel accepts debug, info, warn or error (any case).
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

// With returns a new Logger with an additional persistent field.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{
		inner:     l.inner.With(slog.Any(key, value)),
		component: l.component,
	}
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) {
	l.inner.Debug(msg, args...)
}

// Info logs at INFO level.
func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, args ...any) {
	l.inner.Warn(msg, args...)
}

// Error logs at ERROR level.
func (l *Logger) Error(msg string, args ...any) {
	l.inner.Error(msg, args...)
}

// Migration logs a completed schema upgrade step.
func (l *Logger) Migration(from, to int, name string, records int) {
	l.inner.Info("schema migration",
		slog.Int("from_version", from),
		slog.Int("to_version", to),
		slog.String("step", name),
		slog.Int("records", records),
	)
}

// StaleAction logs the outcome of one stale todo disposition. Failures are
// logged at WARN.
func (l *Logger) StaleAction(id, action string, err error) {
	if err != nil {
		l.inner.Warn("stale action failed",
			slog.String("todo_id", id),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return
	}
	l.inner.Info("stale action",
		slog.String("todo_id", id),
		slog.String("action", action),
	)
}

// MetricsReport logs the counters and one line per series at DEBUG.
func (l *Logger) MetricsReport(rep Report) {
	if len(rep.Counters) == 0 && len(rep.Series) == 0 {
		return
	}
	l.inner.Debug("metrics counters", slog.Any("counters", rep.Counters))
	for _, name := range rep.SeriesNames() {
		s := rep.Series[name]
		l.inner.Debug("metrics series",
			slog.String("series", name),
			slog.Int64("total", s.Total),
			slog.Float64("mean", s.Mean),
			slog.Float64("p50", s.P50),
			slog.Float64("p95", s.P95),
			slog.Float64("max", s.Max),
		)
	}
}

// Component returns the component name associated with this logger.
func (l *Logger) Component() string {
	return l.component
}
