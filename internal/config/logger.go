package config

import (
	"io"
	"log/slog"
)

// LoggingConfig selects verbosity and format of the stderr logger
type LoggingConfig struct {
	// Verbosity is the number of -v flags given
	Verbosity int
	Format    string
}

// Level maps the verbosity to a slog level.
// Without -v only errors are logged, Icinga 2 folds stderr into the plugin output.
func (c LoggingConfig) Level() slog.Level {
	switch {
	case c.Verbosity >= 3:
		return slog.LevelDebug
	case c.Verbosity == 2:
		return slog.LevelInfo
	case c.Verbosity == 1:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// InitLogger builds the diagnostics logger writing to w, normally stderr
func InitLogger(w io.Writer, cfg LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("plugin", Name)
}
