package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a text-handler slog.Logger for the scheduler daemon, with
// the run mode (http/mcp/both) attached to every record so multi-mode
// runs can be told apart in the log stream.
func New(level, mode string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler).With(
		slog.String("component", "schedulerd"),
		slog.String("mode", mode),
	)
}

func parseLevel(level string) slog.Leveler {
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
