// Package applog configures structured logging for the daemon and CLI: a
// JSON slog handler over a size-rotated log file, optionally tee'd to
// stderr with isatty-gated color for interactive terminals.
package applog

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Config controls Setup.
type Config struct {
	Level         string // debug, info, warn, error
	FilePath      string // empty disables file logging
	MaxSizeMB     int
	MaxFiles      int
	WriteToStderr bool
}

// DefaultConfig returns info-level logging to DefaultLogPath plus stderr.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// Setup builds a slog.Logger per cfg and a cleanup function that flushes
// and closes the log file. Callers typically call slog.SetDefault(logger).
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	var closers []func() error

	if cfg.FilePath != "" {
		if err := EnsureLogDir(); err != nil {
			return nil, nil, err
		}
		w, err := newRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, w)
		closers = append(closers, w.Close)
	}
	if cfg.WriteToStderr || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	logger := slog.New(handler)

	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	return logger, cleanup, nil
}

// SetupDynamic is Setup plus a *slog.LevelVar the caller can adjust after
// the fact — used by the serve command to apply a config-file level change
// without restarting the logger.
func SetupDynamic(cfg Config) (*slog.Logger, *slog.LevelVar, func(), error) {
	var writers []io.Writer
	var closers []func() error

	if cfg.FilePath != "" {
		if err := EnsureLogDir(); err != nil {
			return nil, nil, nil, err
		}
		w, err := newRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, nil, err
		}
		writers = append(writers, w)
		closers = append(closers, w.Close)
	}
	if cfg.WriteToStderr || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(parseLevel(cfg.Level))

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: levelVar})
	logger := slog.New(handler)

	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	return logger, levelVar, cleanup, nil
}

// IsColorTerminal reports whether w is an interactive terminal that can
// render ANSI color, used by cmd/tfidxd/cmd to decide whether to colorize
// status/search output.
func IsColorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func parseLevel(level string) slog.Level {
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
