package app

import (
	"io"
	"log/slog"
)

// NewLogger returns a text logger writing to w. Debug output is enabled with
// verbose; otherwise only warnings and errors are shown.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
