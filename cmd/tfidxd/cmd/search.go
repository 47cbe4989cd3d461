package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jtsearch/tfidxd/internal/appconfig"
	"github.com/jtsearch/tfidxd/internal/applog"
	"github.com/jtsearch/tfidxd/internal/apperrors"
	"github.com/jtsearch/tfidxd/internal/cliui"
	"github.com/jtsearch/tfidxd/internal/pool"
	"github.com/jtsearch/tfidxd/internal/tagset"
	"github.com/jtsearch/tfidxd/internal/tfvector"
	"github.com/jtsearch/tfidxd/internal/tokenizerclient"
	"github.com/jtsearch/tfidxd/internal/vectorizer"
)

type searchOptions struct {
	limit     int
	algo      string
	tags      string
	exclusive bool
	jsonOut   bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the shard pool and print ranked results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.algo, "algo", "a", "BM25(1.2,0.75)", "Similarity algorithm, e.g. BM25(1.2,0.75), Cosine, Dot")
	cmd.Flags().StringVar(&opts.tags, "tags", "", "Comma-separated tag filter")
	cmd.Flags().BoolVar(&opts.exclusive, "tags-exclusive", false, "Match only documents whose tags all appear in the list, instead of any listed tag")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	ctx := cmd.Context()

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return apperrors.IOFailure("load config", err)
	}

	p := pool.LoadOrNewWithIntervals(cfg.IndexDir, cfg.Pool.ShardCount, cfg.Pool.SaveInterval, cfg.Pool.SizeInterval)
	tok := tokenizerclient.New(tokenizerclient.Config{BaseURL: cfg.Tokenizer.BaseURL, Timeout: cfg.Tokenizer.Timeout})

	tokens, err := tok.Tokenize(ctx, query, tokenizerclient.ModeA, tokenizerclient.DefaultMaxChunk)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeInternal, "tokenize", err)
	}

	algo := vectorizer.ParseAlgorithm(opts.algo)

	tf := tfvector.New()
	corpus := p.Corpus()
	for _, t := range tokens {
		if id, ok := corpus.Lookup(t); ok {
			tf.Add(id, 1)
		}
	}

	var tagNames []string
	if opts.tags != "" {
		tagNames = strings.Split(opts.tags, ",")
	}
	filter := tagset.FromStrings(tagNames)

	limit := opts.limit
	if limit <= 0 {
		limit = cfg.Limits.DefaultSearchResults
	}

	entries := p.Search(ctx, tf, algo)
	hydrated := p.Hydrate(entries, 0, limit, filter, opts.exclusive)

	hits := make([]cliui.SearchHit, 0, len(hydrated))
	for i, h := range hydrated {
		hits = append(hits, cliui.SearchHit{
			Rank:        i + 1,
			URL:         h.URL,
			Title:       h.Title,
			Description: h.Description,
			Score:       h.Score,
			Tags:        h.Tags.ToNames(),
		})
	}

	out := cmd.OutOrStdout()
	noColor := !applog.IsColorTerminal(out)
	renderer := cliui.NewSearchRenderer(out, noColor)
	if opts.jsonOut {
		return renderer.RenderJSON(hits)
	}
	return renderer.Render(query, hits)
}
