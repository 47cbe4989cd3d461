package metastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtsearch/tfidxd/internal/tagset"
)

func mkRecord(id int, url string) Record {
	return Record{ID: id, URL: url, Timestamp: time.Now().UTC(), Tags: tagset.FromStrings(nil)}
}

func TestNextIDStartsAtZero(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.NextID())
	s.Append(mkRecord(0, "https://a"))
	assert.Equal(t, 1, s.NextID())
}

func TestByURLFindsIdentityByURLOnly(t *testing.T) {
	s := New()
	s.Append(mkRecord(0, "https://a"))
	s.Append(mkRecord(1, "https://b"))

	r, ok := s.ByURL("https://b")
	require.True(t, ok)
	assert.Equal(t, 1, r.ID)

	_, ok = s.ByURL("https://missing")
	assert.False(t, ok)
}

func TestByIDAlignedAndOutOfRange(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Append(mkRecord(i, "https://"+string(rune('a'+i))))
	}
	r, ok := s.ByID(3)
	require.True(t, ok)
	assert.Equal(t, "https://d", r.URL)

	// id beyond len must return absent.
	_, ok = s.ByID(10)
	assert.False(t, ok)
}

func TestTombstoneKeepsPositionAndStaysVisibleToByURL(t *testing.T) {
	s := New()
	s.Append(mkRecord(0, "https://a"))
	s.Append(mkRecord(1, "https://b"))

	// Simulate a shard-level delete: metadata stays, caller stops treating
	// id 1 as live once the vectorizer entry is gone. The store itself
	// doesn't know about liveness; ByURL still finds the tombstoned
	// record's metadata (the Shard is responsible for checking vectorizer
	// membership before trusting it).
	r, ok := s.ByURL("https://b")
	require.True(t, ok)
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, 2, s.Len())
}

func TestByIDMutAllowsInPlaceEdit(t *testing.T) {
	s := New()
	s.Append(mkRecord(0, "https://a"))
	r, ok := s.ByIDMut(0)
	require.True(t, ok)
	r.Title = "A"

	r2, _ := s.ByID(0)
	assert.Equal(t, "A", r2.Title)
}

func TestFromRecordsPreservesOrderAndIDs(t *testing.T) {
	records := []Record{mkRecord(0, "https://a"), mkRecord(1, "https://b")}
	s := FromRecords(records)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.NextID()-1)
}
