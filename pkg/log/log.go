// Package log configures the process-wide slog logger the dealdesk services
// share. Binaries call Setup once at startup and every package derives its
// own logger with WithModule.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default logger at the given level. Output format
// follows the LOG_FORMAT environment variable: "json" for shipped logs,
// anything else gets the text handler.
func Setup(logLevel string) {
	opts := &slog.HandlerOptions{Level: parseLevel(logLevel)}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithModule returns a child of the default logger tagged with the module
// name, the attribute run-history tooling filters on.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

// parseLevel maps the flag value onto a slog level. Unknown values fall back
// to info rather than failing startup.
func parseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
