// Package logging provides structured logging for go-tasksystem-sweep.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// NewLogger creates a new structured logger with the specified format and level.
// Format should be "json", "text" or "pretty".
// Level should be "debug", "info", "warn", or "error".
func NewLogger(format, level string, verbose bool) *slog.Logger {
	// Determine log level
	logLevel := parseLevel(level)
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
		// Add source location for debug level
		AddSource: logLevel == slog.LevelDebug,
	}

	return slog.New(newHandler(os.Stderr, format, opts))
}

// NewLoggerWithWriter creates a logger that writes to a custom writer.
// Useful for testing.
func NewLoggerWithWriter(w io.Writer, format, level string) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	return slog.New(newHandler(w, format, opts))
}

// newHandler picks the slog.Handler for format. Unknown formats get JSON.
func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	case "pretty":
		return newPrettyHandler(w, opts)
	default:
		// Default to JSON for structured logging
		return slog.NewJSONHandler(w, opts)
	}
}

// newPrettyHandler returns a colored, human-oriented handler for interactive use.
func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	level := slog.LevelInfo
	if opts.Level != nil {
		level = opts.Level.Level()
	}
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmLevel(level),
		ReportTimestamp: true,
		ReportCaller:    opts.AddSource,
		TimeFormat:      time.TimeOnly,
	})
}

// charmLevel converts a slog level to the charm logger's level.
func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level <= slog.LevelInfo:
		return charmlog.InfoLevel
	case level <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetDefault sets the default logger for the slog package.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
