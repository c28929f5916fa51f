// Package debug provides the process wide structured logger built on log/slog.
package debug

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// logger is the global logger instance
	logger *slog.Logger
	// enabled indicates if debug logging is enabled
	enabled bool
	// mu protects the logger and enabled flag
	mu sync.RWMutex
)

func init() {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Init initializes the logger.
// If enable is true, debug logs are written to os.Stderr as text.
// If enable is false, only warnings and errors are written.
func Init(enable bool) {
	level := "warn"
	if enable {
		level = "debug"
	}
	InitWithOptions(level, "text", os.Stderr)
}

// InitWithOptions configures level ("debug", "info", "warn", "error"),
// format ("text" or "json") and destination of the logger.
func InitWithOptions(level, format string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	mu.Lock()
	defer mu.Unlock()
	enabled = opts.Level.Level() <= slog.LevelDebug
	logger = slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
