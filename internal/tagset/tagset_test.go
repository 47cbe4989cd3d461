package tagset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStrings_CaseInsensitiveAndUnknownDropped(t *testing.T) {
	s := FromStrings([]string{"WIKI", "Blog", "not-a-tag", "", "news"})
	require.True(t, s.Contains(Wiki))
	require.True(t, s.Contains(Blog))
	require.True(t, s.Contains(News))
	assert.False(t, s.Contains(SNS))
}

func TestToNames_CanonicalOrder(t *testing.T) {
	s := FromStrings([]string{"tools", "wiki", "academic"})
	assert.Equal(t, []string{"WIKI", "ACADEMIC", "TOOLS"}, s.ToNames())
}

func TestContains_AnyOf(t *testing.T) {
	s := FromStrings([]string{"news", "blog"})
	assert.True(t, s.Contains(FromStrings([]string{"news"})))
	assert.True(t, s.Contains(FromStrings([]string{"news", "shopping"})))
	assert.False(t, s.Contains(FromStrings([]string{"shopping"})))
}

func TestEqualFilter_Superset(t *testing.T) {
	s := FromStrings([]string{"news", "blog"})

	// {news,blog} has every bit of {news} and of itself, but lacks
	// shopping, so only the last check fails.
	assert.True(t, s.EqualFilter(FromStrings([]string{"news"})))
	assert.True(t, s.EqualFilter(FromStrings([]string{"news", "blog"})))
	assert.False(t, s.EqualFilter(FromStrings([]string{"news", "shopping"})))
}

func TestEqualFilterImpliesContains(t *testing.T) {
	for _, tags := range [][]string{{"wiki"}, {"wiki", "news"}, {"academic", "tools"}} {
		s := FromStrings(tags)
		t2 := FromStrings(tags)
		if t2 != 0 {
			require.True(t, s.EqualFilter(t2))
			require.True(t, s.Contains(t2))
		}
	}
}

func TestIsEmpty(t *testing.T) {
	var s Set
	assert.True(t, s.IsEmpty())
	s = FromStrings([]string{"wiki"})
	assert.False(t, s.IsEmpty())
}
