// Package opslog builds the scheduler's ambient operational logger,
// kept deliberately separate from pkg/mhlog's domain-specific iteration
// log: this one carries startup/shutdown/error events for operators,
// the other carries the per-iteration TSV data series for analysis.
// Grounded on the teacher's log/slog JSON-handler setup.
package opslog

import (
	"log/slog"
	"os"
)

// Format selects the handler backing the logger.
type Format string

const (
	JSON Format = "json"
	Text Format = "text"
)

// New builds a slog.Logger writing to os.Stderr in the given format at
// the given level.
func New(format Format, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == Text {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
