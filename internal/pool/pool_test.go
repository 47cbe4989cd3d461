package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtsearch/tfidxd/internal/metastore"
	"github.com/jtsearch/tfidxd/internal/tagset"
	"github.com/jtsearch/tfidxd/internal/tfvector"
	"github.com/jtsearch/tfidxd/internal/vectorizer"
)

func tfOf(p *Pool, terms ...string) *tfvector.TF {
	tf := tfvector.New()
	for _, t := range terms {
		tf.Add(p.corpus.Intern(t), 1)
	}
	return tf
}

func TestInsertNewAssignsDocumentAndIncrementsCounter(t *testing.T) {
	p := New(t.TempDir(), 4)
	outcome, id, shardID := p.Insert(tfOf(p, "foo", "bar"), metastore.Record{URL: "https://a", Tags: tagset.Wiki})
	assert.Equal(t, Inserted, outcome)
	assert.Equal(t, 0, id)
	assert.GreaterOrEqual(t, shardID, 0)
	assert.EqualValues(t, 1, p.Documents())
}

func TestInsertSameURLUpdatesAndDoesNotIncrementCounter(t *testing.T) {
	p := New(t.TempDir(), 4)
	_, id1, shard1 := p.Insert(tfOf(p, "foo"), metastore.Record{URL: "https://b"})
	outcome, id2, shard2 := p.Insert(tfOf(p, "bar"), metastore.Record{URL: "https://b"})

	assert.Equal(t, Updated, outcome)
	assert.Equal(t, id1, id2)
	assert.Equal(t, shard1, shard2)
	assert.EqualValues(t, 1, p.Documents())
}

func TestDeleteRemovesFromSearchAndDecrementsCounter(t *testing.T) {
	p := New(t.TempDir(), 4)
	p.Insert(tfOf(p, "foo"), metastore.Record{URL: "https://c"})
	require.EqualValues(t, 1, p.Documents())

	id, found := p.Delete("https://c")
	assert.True(t, found)
	assert.Equal(t, 0, id)
	assert.EqualValues(t, 0, p.Documents())

	entries := p.Search(context.Background(), tfOf(p, "foo"), vectorizer.Dot{})
	results := p.Hydrate(entries, 0, 20, tagset.Set(0), false)
	for _, r := range results {
		assert.NotEqual(t, "https://c", r.URL)
	}
}

func TestSearchRanksByScoreDescending(t *testing.T) {
	p := New(t.TempDir(), 2)
	p.Insert(tfOf(p, "foo"), metastore.Record{URL: "https://d"})
	p.Insert(tfOf(p, "foo", "foo", "foo"), metastore.Record{URL: "https://e"})

	entries := p.Search(context.Background(), tfOf(p, "foo"), vectorizer.DefaultBM25())
	results := p.Hydrate(entries, 0, 20, tagset.Set(0), false)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestHydrateAppliesTagFilterAfterPagination(t *testing.T) {
	p := New(t.TempDir(), 2)
	p.Insert(tfOf(p, "foo"), metastore.Record{URL: "https://f", Tags: tagset.News | tagset.Blog})

	entries := p.Search(context.Background(), tfOf(p, "foo"), vectorizer.Dot{})

	inclusive := p.Hydrate(entries, 0, 20, tagset.News, false)
	assert.Len(t, inclusive, 1)

	exclusiveNewsOnly := p.Hydrate(entries, 0, 20, tagset.News, true)
	assert.Len(t, exclusiveNewsOnly, 0)

	exclusiveBoth := p.Hydrate(entries, 0, 20, tagset.News|tagset.Blog, true)
	assert.Len(t, exclusiveBoth, 1)
}

func TestHydrateEmptyWhenRangeCollapses(t *testing.T) {
	p := New(t.TempDir(), 2)
	p.Insert(tfOf(p, "foo"), metastore.Record{URL: "https://g"})
	entries := p.Search(context.Background(), tfOf(p, "foo"), vectorizer.Dot{})
	assert.Empty(t, p.Hydrate(entries, 10, 5, tagset.Set(0), false))
}

func TestSaveThenLoadReproducesSearchResults(t *testing.T) {
	dir := t.TempDir()
	p := New(dir, 2)
	p.Insert(tfOf(p, "foo", "foo"), metastore.Record{URL: "https://h", Title: "H"})
	p.Insert(tfOf(p, "bar"), metastore.Record{URL: "https://i", Title: "I"})
	require.NoError(t, p.Save())

	loaded, err := Load(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, p.Documents(), loaded.Documents())

	before := p.Hydrate(p.Search(context.Background(), tfOf(p, "foo"), vectorizer.DefaultBM25()), 0, 20, tagset.Set(0), false)
	after := loaded.Hydrate(loaded.Search(context.Background(), tfOf(loaded, "foo"), vectorizer.DefaultBM25()), 0, 20, tagset.Set(0), false)

	require.Len(t, before, len(after))
	for i := range before {
		assert.Equal(t, before[i].URL, after[i].URL)
	}
}

func TestLoadOrNewFallsBackOnEmptyDir(t *testing.T) {
	p := LoadOrNew(t.TempDir(), 4)
	assert.EqualValues(t, 0, p.Documents())
	outcome, _, _ := p.Insert(tfOf(p, "foo"), metastore.Record{URL: "https://j"})
	assert.Equal(t, Inserted, outcome)
}
