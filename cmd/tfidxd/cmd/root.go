// Package cmd provides the CLI commands for tfidxd.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jtsearch/tfidxd/internal/applog"
	"github.com/jtsearch/tfidxd/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the tfidxd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tfidxd",
		Short:   "Sharded TF-IDF search engine for Japanese web documents",
		Long:    `tfidxd indexes and searches Japanese web documents using a sharded TF-IDF engine with a pluggable similarity algorithm.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("tfidxd version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to tfidxd.yaml (defaults to built-in settings)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCompactCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	cfg := applog.DefaultConfig()
	cfg.WriteToStderr = debugMode
	if debugMode {
		cfg.Level = "debug"
	}
	logger, cleanup, err := applog.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
