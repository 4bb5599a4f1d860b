package cmd

import (
	"io"
	"log/slog"

	"github.com/shiplet/ast-search/internal/config"
)

// newLogger writes diagnostics to w; command output goes to stdout.
func newLogger(w io.Writer, cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
