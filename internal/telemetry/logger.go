// Package telemetry sets up logging and Prometheus metrics.
package telemetry

import (
	"io"
	"log/slog"
)

// NewLogger returns a text logger writing to w. Debug lowers the level to
// debug; silent discards everything.
func NewLogger(w io.Writer, debug, silent bool) *slog.Logger {
	if silent {
		return slog.New(slog.DiscardHandler)
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
