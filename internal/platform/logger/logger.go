package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog. Development environments
// log at debug level so every queried phone variant is visible.
func New(environment string) *slog.Logger {
	return NewWithWriter(os.Stdout, environment)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: levelFor(environment),
	}
	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler).With("service", "kiosk-gateway")
}

func levelFor(environment string) slog.Level {
	if environment == "development" || environment == "local" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
