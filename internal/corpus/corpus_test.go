package corpus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternIsStableAndAppendOnly(t *testing.T) {
	c := New()
	id1 := c.Intern("foo")
	id2 := c.Intern("bar")
	id3 := c.Intern("foo")

	assert.Equal(t, id1, id3)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, c.Len())

	term, ok := c.Term(id1)
	require.True(t, ok)
	assert.Equal(t, "foo", term)
}

func TestInternConcurrentSameTerm(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	ids := make([]uint16, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = c.Intern("shared")
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, c.Len())
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := New()
	c.Intern("alpha")
	c.Intern("beta")
	c.Intern("gamma")

	snap := c.Snapshot()
	c2 := FromTerms(snap)

	for _, term := range snap {
		id1, ok1 := c.Lookup(term)
		id2, ok2 := c2.Lookup(term)
		require.True(t, ok1)
		require.True(t, ok2)
		assert.Equal(t, id1, id2)
	}
}

func TestLookupMissing(t *testing.T) {
	c := New()
	_, ok := c.Lookup("nope")
	assert.False(t, ok)

	_, ok = c.Term(999)
	assert.False(t, ok)
}
