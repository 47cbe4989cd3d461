package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jtsearch/tfidxd/internal/appconfig"
	"github.com/jtsearch/tfidxd/internal/apperrors"
	"github.com/jtsearch/tfidxd/internal/metastore"
	"github.com/jtsearch/tfidxd/internal/pool"
	"github.com/jtsearch/tfidxd/internal/scraperclient"
	"github.com/jtsearch/tfidxd/internal/tagset"
	"github.com/jtsearch/tfidxd/internal/tfvector"
	"github.com/jtsearch/tfidxd/internal/tokenizerclient"
)

func newAddCmd() *cobra.Command {
	var (
		title       string
		favicon     string
		tagsCSV     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Fetch (or accept) a page and index it into the shard pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, args[0], title, favicon, tagsCSV, description)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Override the page title")
	cmd.Flags().StringVar(&favicon, "favicon", "", "Override the favicon URL")
	cmd.Flags().StringVar(&tagsCSV, "tags", "", "Comma-separated domain tags")
	cmd.Flags().StringVar(&description, "description", "", "Skip scraping and index this text directly")

	return cmd
}

func runAdd(cmd *cobra.Command, target, title, favicon, tagsCSV, description string) error {
	ctx := cmd.Context()

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return apperrors.IOFailure("load config", err)
	}

	p := pool.LoadOrNewWithIntervals(cfg.IndexDir, cfg.Pool.ShardCount, cfg.Pool.SaveInterval, cfg.Pool.SizeInterval)
	tok := tokenizerclient.New(tokenizerclient.Config{BaseURL: cfg.Tokenizer.BaseURL, Timeout: cfg.Tokenizer.Timeout})

	var tags []string
	if tagsCSV != "" {
		tags = strings.Split(tagsCSV, ",")
	}

	if description == "" {
		scr := scraperclient.New(scraperclient.Config{BaseURL: cfg.Scraper.BaseURL, Timeout: cfg.Scraper.Timeout})
		page, err := scr.Fetch(ctx, target)
		if err != nil {
			return apperrors.IOFailure(fmt.Sprintf("scrape %s", target), err)
		}
		if len(page.Descriptions) == 0 {
			return apperrors.InvalidRequest(fmt.Sprintf("no description found for %s", target), nil)
		}
		description = page.Descriptions[0]
		if title == "" {
			title = page.Title
		}
		if favicon == "" {
			favicon = page.Favicon
		}
		if len(tags) == 0 {
			tags = page.Tags
		}
	}

	tokens, err := tok.Tokenize(ctx, description, tokenizerclient.ModeA, tokenizerclient.DefaultMaxChunk)
	if err != nil {
		return apperrors.New(apperrors.ErrCodeInternal, "tokenize", err)
	}

	tf := tfvector.New()
	for _, t := range tokens {
		id := p.Corpus().Intern(t)
		tf.Add(id, 1)
	}

	record := metastore.Record{
		URL:         target,
		Title:       trimRunes(title, cfg.Limits.MaxTitleChars),
		Description: trimRunes(description, cfg.Limits.MaxDescriptionChars),
		Favicon:     favicon,
		Timestamp:   time.Now(),
		Tags:        tagset.FromStrings(tags),
	}

	outcome, docID, shardID := p.Insert(tf, record)
	if outcome == pool.Failed {
		return apperrors.New(apperrors.ErrCodeInternal, fmt.Sprintf("insertion failed for %s", target), nil)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (shard %d, doc %d, %d tokens)\n", outcome, target, shardID, docID, len(tokens))

	if err := p.Save(); err != nil {
		return apperrors.IOFailure("save", err)
	}
	return nil
}

func trimRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max])
}
