// Package logging builds the probe's slog loggers and provides a rotating
// file writer for unattended monitor runs.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/dskow/replay-probe/internal/config"
)

// nopCloser wraps stdout/stderr so callers can Close unconditionally.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// New builds a logger from config. Interactive runs get a text handler;
// monitor mode passes json=true for machine-readable output. When the
// configured output is a file path, writes go through a RotatingWriter and
// the returned closer must be closed on shutdown.
func New(cfg config.LoggingConfig, level slog.Level, json bool) (*slog.Logger, io.Closer, error) {
	var w io.WriteCloser
	switch cfg.Output {
	case "stdout":
		w = nopCloser{os.Stdout}
	case "stderr", "":
		w = nopCloser{os.Stderr}
	default:
		rw, err := NewRotatingWriter(cfg.Output, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		if err != nil {
			return nil, nil, err
		}
		w = rw
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), w, nil
}
