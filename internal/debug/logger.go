// Package debug holds the process wide slog logger used for query and
// connection diagnostics.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger  = newLogger(os.Stderr, false)
	enabled bool
	output  io.Writer = os.Stderr
	mu      sync.RWMutex
)

func newLogger(w io.Writer, enable bool) *slog.Logger {
	level := slog.LevelError + 1
	if enable {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Init turns debug logging on or off. When off every record is discarded.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	logger = newLogger(output, enable)
}

// SetOutput redirects log records to w, keeping the current enabled state.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	logger = newLogger(w, enabled)
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// With returns a logger carrying args on every record.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

// Logger returns the underlying logger.
func Logger() *slog.Logger {
	return current()
}
