// Package logging provides structured logging for conductor episodes.
// It wraps log/slog to emit JSON-formatted records suitable for post-hoc
// inspection of a scheduling run.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels accepted by New and ParseLevel.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Logger is a structured logger safe for concurrent use. Child loggers
// created through the With* methods share the underlying writer.
type Logger struct {
	sl   *slog.Logger
	file *os.File
	mu   *sync.Mutex
}

// New creates a Logger writing JSON records to conductor.log inside dir.
// When dir is empty, records go to stderr as text instead, which is the
// mode used by -verbose runs.
func New(dir, level string) (*Logger, error) {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	if dir == "" {
		return &Logger{
			sl: slog.New(slog.NewTextHandler(os.Stderr, opts)),
			mu: &sync.Mutex{},
		}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, "conductor.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &Logger{
		sl:   slog.New(slog.NewJSONHandler(f, opts)),
		file: f,
		mu:   &sync.Mutex{},
	}, nil
}

// Nop returns a Logger that discards everything. Used by tests and by
// components constructed without an explicit logger.
func Nop() *Logger {
	return &Logger{
		sl: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		mu: &sync.Mutex{},
	}
}

// WithProject returns a child logger tagging every record with the project id.
func (l *Logger) WithProject(projectID string) *Logger {
	return l.child("project_id", projectID)
}

// WithTask returns a child logger tagging every record with the task id.
func (l *Logger) WithTask(taskID string) *Logger {
	return l.child("task_id", taskID)
}

// WithComponent returns a child logger tagging every record with a component
// name such as "pool", "consolidator", or "executor".
func (l *Logger) WithComponent(name string) *Logger {
	return l.child("component", name)
}

// With returns a child logger with arbitrary alternating key-value pairs.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{sl: l.sl.With(args...), file: l.file, mu: l.mu}
}

func (l *Logger) child(key, value string) *Logger {
	return &Logger{sl: l.sl.With(key, value), file: l.file, mu: l.mu}
}

// Debug logs at DEBUG level with alternating key-value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.sl.Debug(msg, args...) }

// Info logs at INFO level with alternating key-value pairs.
func (l *Logger) Info(msg string, args ...any) { l.sl.Info(msg, args...) }

// Warn logs at WARN level with alternating key-value pairs.
func (l *Logger) Warn(msg string, args ...any) { l.sl.Warn(msg, args...) }

// Error logs at ERROR level with alternating key-value pairs.
func (l *Logger) Error(msg string, args ...any) { l.sl.Error(msg, args...) }

// Close syncs and closes the log file. A stderr or nop logger ignores it.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log file: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	l.file = nil
	return nil
}

// ParseLevel normalizes a level string, defaulting to INFO.
func ParseLevel(level string) string {
	switch strings.ToUpper(level) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return strings.ToUpper(level)
	default:
		return LevelInfo
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
