package cliui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// SearchHit is one ranked, hydrated search result ready for display.
type SearchHit struct {
	Rank        int      `json:"rank"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Score       float64  `json:"score"`
	Tags        []string `json:"tags"`
}

// SearchRenderer writes ranked search results to a terminal or as JSON.
type SearchRenderer struct {
	out    io.Writer
	styles Styles
}

// NewSearchRenderer builds a SearchRenderer writing to out, colorized
// unless noColor is set.
func NewSearchRenderer(out io.Writer, noColor bool) *SearchRenderer {
	return &SearchRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints hits as a simple ranked list, one result per block.
func (r *SearchRenderer) Render(query string, hits []SearchHit) error {
	_, _ = fmt.Fprintf(r.out, "%s %q (%d results)\n\n", r.styles.Header.Render("Search:"), query, len(hits))
	if len(hits) == 0 {
		_, _ = fmt.Fprintln(r.out, r.styles.Dim.Render("  no results"))
		return nil
	}
	for _, h := range hits {
		_, _ = fmt.Fprintf(r.out, "  %s  %s\n", r.styles.Score.Render(fmt.Sprintf("%6.3f", h.Score)), h.Title)
		_, _ = fmt.Fprintf(r.out, "        %s\n", r.styles.Dim.Render(h.URL))
		if h.Description != "" {
			_, _ = fmt.Fprintf(r.out, "        %s\n", truncate(h.Description, 120))
		}
		if len(h.Tags) > 0 {
			_, _ = fmt.Fprintf(r.out, "        %s\n", r.styles.Label.Render(strings.Join(h.Tags, ", ")))
		}
		_, _ = fmt.Fprintln(r.out)
	}
	return nil
}

// RenderJSON writes hits as an indented JSON array.
func (r *SearchRenderer) RenderJSON(hits []SearchHit) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(hits)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
