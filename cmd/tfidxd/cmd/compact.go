package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jtsearch/tfidxd/internal/appconfig"
	"github.com/jtsearch/tfidxd/internal/apperrors"
	"github.com/jtsearch/tfidxd/internal/pool"
)

func newCompactCmd() *cobra.Command {
	var shardID int
	var all bool

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Rewrite shard metadata to drop tombstones left by deletes",
		Long: `compact renumbers a shard's metadata sequence densely and drops every
tombstoned record, then saves the shard. It is an offline, opt-in
operation: run it while nothing else is writing to the index.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd, shardID, all)
		},
	}
	cmd.Flags().IntVar(&shardID, "shard", -1, "Shard id to compact")
	cmd.Flags().BoolVar(&all, "all", false, "Compact every shard in the pool")

	return cmd
}

func runCompact(cmd *cobra.Command, shardID int, all bool) error {
	if !all && shardID < 0 {
		return apperrors.InvalidRequest("compact: specify --shard <id> or --all", nil)
	}

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return apperrors.IOFailure("load config", err)
	}

	p := pool.LoadOrNewWithIntervals(cfg.IndexDir, cfg.Pool.ShardCount, cfg.Pool.SaveInterval, cfg.Pool.SizeInterval)
	out := cmd.OutOrStdout()

	ids := []int{shardID}
	if all {
		ids = make([]int, p.ShardCount())
		for i := range ids {
			ids[i] = i
		}
	}

	for _, id := range ids {
		fmt.Fprintf(out, "compacting shard %d...\n", id)
		dropped, err := p.CompactShard(id)
		if err != nil {
			return apperrors.New(apperrors.ErrCodeShardMissing, fmt.Sprintf("compact shard %d", id), err)
		}
		fmt.Fprintf(out, "shard %d: dropped %d tombstone(s)\n", id, dropped)
	}

	return nil
}
