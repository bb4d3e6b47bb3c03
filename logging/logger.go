// Package logging provides structured logging for ttymon.
//
// This package uses logrus for structured, leveled logging. It supports
// both text and JSON output formats, and integrates with context.Context
// for request-scoped logging.
package logging

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// ctxKey is the context key for the logger.
type ctxKey struct{}

var (
	// defaultLogger is the global logger instance.
	defaultLogger *logrus.Logger
	// loggerMu protects defaultLogger.
	loggerMu sync.RWMutex
)

func init() {
	defaultLogger = logrus.New()
	defaultLogger.SetOutput(os.Stderr)
	defaultLogger.SetLevel(logrus.InfoLevel)
}

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level logrus.Level
	// Format is the output format ("text" or "json").
	Format string
	// Output is the log output destination.
	Output io.Writer
}

// New creates a new structured logger with the given configuration.
func New(cfg Config) *logrus.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(cfg.Output)
	logger.SetLevel(cfg.Level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// SetDefault sets the default global logger.
func SetDefault(logger *logrus.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
}

// Default returns the default global logger.
func Default() *logrus.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// WithPID returns an entry with process ID context.
func WithPID(logger *logrus.Logger, pid int) *logrus.Entry {
	return logger.WithField("pid", pid)
}

// WithContainer returns an entry with container ID context.
func WithContainer(logger *logrus.Logger, id string) *logrus.Entry {
	return logger.WithField("container_id", id)
}

// WithOperation returns an entry with operation context.
func WithOperation(logger *logrus.Logger, op string) *logrus.Entry {
	return logger.WithField("operation", op)
}

// ContextWithLogger returns a new context with the logger entry attached.
func ContextWithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext retrieves the logger entry from context.
// If no entry is found, returns an entry built from the default logger.
func FromContext(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(Default())
}

// ParseLevel parses a log level string and returns the corresponding
// logrus.Level. Returns logrus.InfoLevel for invalid values.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Helper functions for common log patterns using the default logger.

// Info logs an info message using the default logger.
func Info(args ...interface{}) {
	Default().Info(args...)
}

// Warn logs a warning message using the default logger.
func Warn(args ...interface{}) {
	Default().Warn(args...)
}

// Error logs an error message using the default logger.
func Error(args ...interface{}) {
	Default().Error(args...)
}

// Debug logs a debug message using the default logger.
func Debug(args ...interface{}) {
	Default().Debug(args...)
}
