package logger

import (
	"io"
	"log/slog"
	"os"
)

// NewJSONLogger returns a slog logger writing JSON records to w.
// Debug records are emitted only when debug is true.
func NewJSONLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// InitJSONLogger sets a JSON logger on stdout as the slog default.
func InitJSONLogger(debug bool) {
	slog.SetDefault(NewJSONLogger(os.Stdout, debug))
}
