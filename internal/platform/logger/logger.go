package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Text output to stdout keeps local logs
// readable; swap the handler for JSON when shipping to an aggregator.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
