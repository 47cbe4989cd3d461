// Package metastore implements the per-shard ordered sequence of document
// metadata records described in spec.md §4.2. Deletion never removes a
// record from the sequence; it only removes the corresponding vectorizer
// entry, leaving a tombstone behind. The Store itself has no locking of
// its own — the owning Shard serializes all access.
package metastore

import (
	"time"

	"github.com/jtsearch/tfidxd/internal/tagset"
)

// Record is one Index Metadata Record.
type Record struct {
	ID          int
	URL         string
	Title       string
	Description string
	Favicon     string
	Timestamp   time.Time
	Points      float64
	Tags        tagset.Set
}

// Store is the ordered, append-only-except-for-mutation sequence of
// Records for one shard.
type Store struct {
	records []Record
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Len returns the number of records, including tombstoned ones.
func (s *Store) Len() int { return len(s.records) }

// ByURL performs a linear scan for the first record whose URL matches.
// URL equality is the sole identity test, per spec.md §3.
func (s *Store) ByURL(url string) (*Record, bool) {
	for i := range s.records {
		if s.records[i].URL == url {
			return &s.records[i], true
		}
	}
	return nil, false
}

// ByID looks up the record with the given id. Ids are assigned
// monotonically, so a record with id k is expected at position k unless
// earlier inserts/deletes have shifted alignment; ByID scans backward from
// the tail after skipping len-id-1 positions, which is O(1) amortized when
// alignment holds and bounded by O(len) otherwise. Returns false when
// id > len or id < 0.
func (s *Store) ByID(id int) (*Record, bool) {
	n := len(s.records)
	if id < 0 || id > n {
		return nil, false
	}
	skip := n - id - 1
	if skip < 0 {
		skip = 0
	}
	for i := n - 1 - skip; i >= 0; i-- {
		if s.records[i].ID == id {
			return &s.records[i], true
		}
	}
	return nil, false
}

// ByIDMut is identical to ByID but returns a mutable pointer into the
// underlying slice, for in-place metadata updates during insert-or-update.
func (s *Store) ByIDMut(id int) (*Record, bool) {
	return s.ByID(id)
}

// NextID returns the id to assign to the next appended record: one past
// the last stored id, or 0 if the store is empty.
func (s *Store) NextID() int {
	if len(s.records) == 0 {
		return 0
	}
	return s.records[len(s.records)-1].ID + 1
}

// Append adds record to the tail of the sequence in constant time.
func (s *Store) Append(record Record) {
	s.records = append(s.records, record)
}

// All returns the full backing sequence, including tombstoned records
// (those whose id has no live vectorizer entry). Callers must not retain
// the returned slice across a mutation.
func (s *Store) All() []Record {
	return s.records
}

// FromRecords rebuilds a Store from a previously serialized sequence,
// preserving order and ids exactly. Used by the on-disk loader.
func FromRecords(records []Record) *Store {
	return &Store{records: records}
}
