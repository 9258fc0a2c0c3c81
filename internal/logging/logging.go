// Package logging configures the application logger.
//
// Verbosity ladder: by default only info and above is printed; -v adds a
// verbose level for program-state messages, -vv full debug output.
package logging

import (
	"log/slog"
	"os"
)

// LevelVerbose sits between debug and info.
const LevelVerbose = slog.Level(-2)

// New builds a text logger on stderr for the given verbosity count.
func New(verbosity int) *slog.Logger {
	var level slog.Level
	switch {
	case verbosity <= 0:
		level = slog.LevelInfo
	case verbosity == 1:
		level = LevelVerbose
	default:
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == LevelVerbose {
				a.Value = slog.StringValue("VERBOSE")
			}
			return a
		},
	})
	return slog.New(handler)
}
