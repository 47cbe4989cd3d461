package diskformat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtsearch/tfidxd/internal/corpus"
	"github.com/jtsearch/tfidxd/internal/metastore"
	"github.com/jtsearch/tfidxd/internal/tagset"
	"github.com/jtsearch/tfidxd/internal/tfvector"
	"github.com/jtsearch/tfidxd/internal/vectorizer"
)

func TestCorpusRoundTrip(t *testing.T) {
	c := corpus.New()
	c.Intern("foo")
	c.Intern("bar")
	c.Intern("baz")

	encoded := EncodeCorpus(c)
	decoded, err := DecodeCorpus(encoded)
	require.NoError(t, err)
	assert.Equal(t, c.Snapshot(), decoded.Snapshot())

	// serialize -> deserialize -> serialize is byte-identical
	reEncoded := EncodeCorpus(decoded)
	assert.Equal(t, encoded, reEncoded)
}

func TestVectorizerRoundTrip(t *testing.T) {
	c := corpus.New()
	v := vectorizer.New(c)
	tf := tfvector.New()
	tf.Add(c.Intern("foo"), 2)
	tf.Add(c.Intern("bar"), 1)
	v.AddDoc(0, tf)
	v.UpdateIDF()

	encoded := EncodeVectorizer(v)
	decoded, err := DecodeVectorizer(encoded, c)
	require.NoError(t, err)
	assert.Equal(t, v.DocCount(), decoded.DocCount())

	reEncoded := EncodeVectorizer(decoded)
	assert.Equal(t, encoded, reEncoded)
}

func TestMetadataRoundTrip(t *testing.T) {
	records := []metastore.Record{
		{
			ID:          0,
			URL:         "https://a",
			Title:       "A",
			Description: "desc",
			Favicon:     "https://a/favicon.ico",
			Timestamp:   time.Now().UTC().Truncate(time.Nanosecond),
			Points:      1.5,
			Tags:        tagset.FromStrings([]string{"wiki", "news"}),
		},
		{
			ID:  1,
			URL: "https://b",
		},
	}

	encoded := EncodeMetadata(records)
	decoded, err := DecodeMetadata(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, records[0].URL, decoded[0].URL)
	assert.Equal(t, records[0].Tags, decoded[0].Tags)
	assert.True(t, records[0].Timestamp.Equal(decoded[0].Timestamp))

	reEncoded := EncodeMetadata(decoded)
	assert.Equal(t, encoded, reEncoded)
}

func TestDecodeCorpusFailsOnTruncatedData(t *testing.T) {
	_, err := DecodeCorpus([]byte{1, 2})
	assert.Error(t, err)
}
