package cliui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRendererRenderIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	r := NewStatusRenderer(&buf, true)
	require.NoError(t, r.Render(StatusInfo{IndexDir: "/data/index", Documents: 42, ShardCount: 16}))
	out := buf.String()
	assert.Contains(t, out, "/data/index")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "16")
}

func TestStatusRendererRenderJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	r := NewStatusRenderer(&buf, true)
	require.NoError(t, r.RenderJSON(StatusInfo{Documents: 3}))
	assert.Contains(t, buf.String(), `"documents": 3`)
}

func TestSearchRendererRenderEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	r := NewSearchRenderer(&buf, true)
	require.NoError(t, r.Render("cats", nil))
	assert.Contains(t, buf.String(), "no results")
}

func TestSearchRendererRenderListsHits(t *testing.T) {
	var buf bytes.Buffer
	r := NewSearchRenderer(&buf, true)
	hits := []SearchHit{{Rank: 1, URL: "https://a.example", Title: "A", Score: 1.23, Tags: []string{"news"}}}
	require.NoError(t, r.Render("a", hits))
	out := buf.String()
	assert.Contains(t, out, "https://a.example")
	assert.Contains(t, out, "1.230")
}
