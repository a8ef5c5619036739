package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func NewJSONLogger(service, level string) *slog.Logger {
	return newJSONLogger(os.Stdout, service, level)
}

func newJSONLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// NewTextLogger writes human-readable logs to stderr so CLI output on stdout
// stays clean.
func NewTextLogger(service, level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// New picks the handler by format ("json" or "text") and installs the logger
// as the slog default.
func New(service, level, format string) *slog.Logger {
	var logger *slog.Logger
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		logger = NewTextLogger(service, level)
	default:
		logger = NewJSONLogger(service, level)
	}
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
