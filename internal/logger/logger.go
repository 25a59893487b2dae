// Package logger configures the process-wide slog default.
package logger

import (
	"log/slog"
	"os"
)

// Setup installs the default logger. Verbose lowers the level to debug;
// jsonOutput switches from the human-readable text handler to JSON for
// server deployments.
func Setup(verbose, jsonOutput bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
