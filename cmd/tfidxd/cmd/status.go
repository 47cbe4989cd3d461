package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jtsearch/tfidxd/internal/appconfig"
	"github.com/jtsearch/tfidxd/internal/applog"
	"github.com/jtsearch/tfidxd/internal/apperrors"
	"github.com/jtsearch/tfidxd/internal/cliui"
	"github.com/jtsearch/tfidxd/internal/pool"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show shard pool document count and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return apperrors.IOFailure("load config", err)
	}

	p := pool.LoadOrNewWithIntervals(cfg.IndexDir, cfg.Pool.ShardCount, cfg.Pool.SaveInterval, cfg.Pool.SizeInterval)

	info := cliui.StatusInfo{
		IndexDir:     cfg.IndexDir,
		Documents:    p.Documents(),
		ShardCount:   p.ShardCount(),
		SaveInterval: cfg.Pool.SaveInterval,
		SizeInterval: cfg.Pool.SizeInterval,
	}

	out := cmd.OutOrStdout()
	noColor := !applog.IsColorTerminal(out)
	renderer := cliui.NewStatusRenderer(out, noColor)
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}
