package cliui

import (
	"encoding/json"
	"fmt"
	"io"
)

// StatusInfo summarizes a running pool for `tfidxd status`.
type StatusInfo struct {
	IndexDir     string `json:"index_dir"`
	Documents    int64  `json:"documents"`
	ShardCount   int    `json:"shard_count"`
	SaveInterval uint64 `json:"save_interval"`
	SizeInterval uint64 `json:"size_interval"`
}

// StatusRenderer writes a StatusInfo to a terminal or as JSON.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer builds a StatusRenderer writing to out, colorized
// unless noColor is set.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints a human-readable status summary.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("tfidxd status"))
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("Index dir:"), info.IndexDir)
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Documents:"), info.Documents)
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Shards:   "), info.ShardCount)
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Save every:"), info.SaveInterval)
	_, _ = fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("Size-check every:"), info.SizeInterval)
	return nil
}

// RenderJSON writes info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}
