package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtsearch/tfidxd/internal/appconfig"
	"github.com/jtsearch/tfidxd/internal/applog"
	"github.com/jtsearch/tfidxd/internal/apperrors"
	"github.com/jtsearch/tfidxd/internal/httpapi"
	"github.com/jtsearch/tfidxd/internal/pool"
	"github.com/jtsearch/tfidxd/internal/scraperclient"
	"github.com/jtsearch/tfidxd/internal/tokenizerclient"
)

const shutdownGrace = 10 * time.Second

// watchLogLevel replaces the process default logger with one whose level
// can be adjusted in place, then watches configPath and applies its
// log_level on every change — so an operator can turn on debug logging for
// a running daemon without a restart. Returns a stop function.
func watchLogLevel(configPath, initialLevel string) (stop func(), err error) {
	logCfg := applog.DefaultConfig()
	logCfg.Level = initialLevel
	logger, levelVar, cleanup, err := applog.SetupDynamic(logCfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	stopWatch, err := appconfig.Watch(configPath, func(cfg *appconfig.Config) {
		levelVar.Set(parseLogLevel(cfg.LogLevel))
		slog.Info("tfidxd: log level reloaded", slog.String("level", cfg.LogLevel))
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	return func() {
		_ = stopWatch()
		cleanup()
	}, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
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

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP façade over the shard pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return apperrors.IOFailure("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.InvalidRequest("invalid config", err)
	}

	if configPath != "" {
		if stopWatch, err := watchLogLevel(configPath, cfg.LogLevel); err != nil {
			slog.Warn("tfidxd: config watch disabled", slog.Any("error", err))
		} else {
			defer stopWatch()
		}
	}

	p := pool.LoadOrNewWithIntervals(cfg.IndexDir, cfg.Pool.ShardCount, cfg.Pool.SaveInterval, cfg.Pool.SizeInterval)

	tok := tokenizerclient.New(tokenizerclient.Config{
		BaseURL: cfg.Tokenizer.BaseURL,
		Timeout: cfg.Tokenizer.Timeout,
	})
	scr := scraperclient.New(scraperclient.Config{
		BaseURL: cfg.Scraper.BaseURL,
		Timeout: cfg.Scraper.Timeout,
	})

	limits := httpapi.Limits{
		MaxTitleChars:       cfg.Limits.MaxTitleChars,
		MaxDescriptionChars: cfg.Limits.MaxDescriptionChars,
		DefaultResults:      cfg.Limits.DefaultSearchResults,
		MaxResults:          cfg.Limits.MaxSearchResults,
	}
	server := httpapi.New(p, tok, scr, limits)

	httpServer := &http.Server{Addr: cfg.HTTP.ListenAddr, Handler: server}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("tfidxd: listening", slog.String("addr", cfg.HTTP.ListenAddr), slog.String("index_dir", cfg.IndexDir))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("tfidxd: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tfidxd: graceful shutdown failed", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return apperrors.New(apperrors.ErrCodeInternal, "http server", err)
		}
	}

	if err := p.Save(); err != nil {
		aerr := apperrors.IOFailure("final save failed", err)
		apperrors.Log(aerr)
		return aerr
	}
	slog.Info("tfidxd: pool saved, exiting")
	return nil
}
