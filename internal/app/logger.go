package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the application logger. LOG_FORMAT=json selects the JSON
// handler; the default ("pretty") stays on the text handler. Outside
// production the level is lowered to debug.
func NewLogger(cfg *Config) *slog.Logger {
	return slog.New(newLogHandler(os.Stdout, cfg))
}

func newLogHandler(w io.Writer, cfg *Config) slog.Handler {
	opts := &slog.HandlerOptions{AddSource: true}
	if !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
