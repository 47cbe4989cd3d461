// Package shard implements the TF-IDF Shard: a vectorizer and its metadata
// store, guarded by one reader-writer lock, tracking the byte-size estimates
// and mutation counter the Pool uses for load-balancing and persistence
// triggers.
package shard

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jtsearch/tfidxd/internal/corpus"
	"github.com/jtsearch/tfidxd/internal/diskformat"
	"github.com/jtsearch/tfidxd/internal/metastore"
	"github.com/jtsearch/tfidxd/internal/tfvector"
	"github.com/jtsearch/tfidxd/internal/vectorizer"
)

// ErrPoisoned is returned when a mutation is attempted on a shard whose
// write lock was last released by a recovered panic.
var ErrPoisoned = errors.New("shard: lock poisoned")

// Shard pairs a Vectorizer with its Metadata Store behind a single
// reader-writer lock. The zero value is not usable; construct with New.
type Shard struct {
	ID int

	mu        sync.RWMutex
	vectorizer *vectorizer.Vectorizer
	meta       *metastore.Store

	updateCount uint64
	vecBinSize  int64
	metaBinSize int64

	poisoned atomic.Bool
}

// New returns an empty shard with the given id, bound to c.
func New(id int, c *corpus.Corpus) *Shard {
	return &Shard{
		ID:         id,
		vectorizer: vectorizer.New(c),
		meta:       metastore.New(),
	}
}

// FromLoaded reconstructs a shard from data read off disk, seeding its
// cached bin sizes from the file sizes observed at load time.
func FromLoaded(id int, v *vectorizer.Vectorizer, records []metastore.Record, vecBinSize, metaBinSize int64) *Shard {
	return &Shard{
		ID:          id,
		vectorizer:  v,
		meta:        metastore.FromRecords(records),
		vecBinSize:  vecBinSize,
		metaBinSize: metaBinSize,
	}
}

// IsPoisoned reports whether a previous mutation panicked on this shard.
func (s *Shard) IsPoisoned() bool { return s.poisoned.Load() }

// TryRLock attempts to acquire the shard's read lock without blocking, as
// used by the Pool's fan-out similarity scan.
func (s *Shard) TryRLock() bool { return s.mu.TryRLock() }

// RLock acquires the shard's read lock.
func (s *Shard) RLock() { s.mu.RLock() }

// RUnlock releases the shard's read lock.
func (s *Shard) RUnlock() { s.mu.RUnlock() }

// guardMutation runs fn under the shard's write lock, translating any panic
// into a poisoned flag and an error, mirroring a Rust RwLock writer that
// panicked while holding the lock. Callers never see the panic; they see
// ErrPoisoned on this and every subsequent mutation attempt.
func (s *Shard) guardMutation(fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned.Load() {
		return ErrPoisoned
	}

	defer func() {
		if r := recover(); r != nil {
			s.poisoned.Store(true)
			err = fmt.Errorf("%w: panic in shard %d: %v", ErrPoisoned, s.ID, r)
		}
	}()

	return fn()
}

// insertOrUpdateLocked performs the insert-or-update mutation assuming the
// write lock is already held. Split out from InsertOrUpdate so the Pool can
// fold the SAVE_INTERVAL/SIZE_INTERVAL persistence trigger into the same
// lock acquisition (spec.md §4.4: "under the exclusive lock, capture
// update_count").
func (s *Shard) insertOrUpdateLocked(tf *tfvector.TF, meta metastore.Record) (id int, updated bool) {
	if existing, ok := s.meta.ByURL(meta.URL); ok {
		id = existing.ID
		updated = true

		s.vectorizer.DelDoc(id)
		s.vectorizer.AddDoc(id, tf)
		s.vectorizer.UpdateIDF()

		rec, _ := s.meta.ByIDMut(id)
		rec.URL = meta.URL
		rec.Title = meta.Title
		rec.Description = meta.Description
		rec.Favicon = meta.Favicon
		rec.Timestamp = meta.Timestamp
		rec.Points = meta.Points
		rec.Tags = meta.Tags
	} else {
		id = s.meta.NextID()
		updated = false

		s.vectorizer.AddDoc(id, tf)
		s.vectorizer.UpdateIDF()

		meta.ID = id
		s.meta.Append(meta)
	}

	s.updateCount++
	return id, updated
}

// InsertOrUpdate implements the TF-IDF Shard insert-or-update operation. If
// meta.URL already has a record in this shard, its vectorizer entry is
// replaced in place (id preserved) and its metadata fields are overwritten;
// otherwise a new id is assigned and appended. Returns the document id and
// whether this was an update of an existing document.
func (s *Shard) InsertOrUpdate(tf *tfvector.TF, meta metastore.Record) (id int, updated bool, err error) {
	err = s.guardMutation(func() error {
		id, updated = s.insertOrUpdateLocked(tf, meta)
		return nil
	})
	return id, updated, err
}

// InsertOrUpdateWithPersistTrigger performs the same mutation as
// InsertOrUpdate, then — still under the same write-lock acquisition —
// checks the SAVE_INTERVAL/SIZE_INTERVAL thresholds against the shard's
// updated mutation counter: on a SAVE_INTERVAL boundary it persists the
// shard and refreshes both cached bin sizes as a side effect of the write;
// on a SIZE_INTERVAL boundary (and not a save) it only recomputes them.
// saveInterval or sizeInterval of 0 disables that trigger.
func (s *Shard) InsertOrUpdateWithPersistTrigger(tf *tfvector.TF, meta metastore.Record, dir string, c *corpus.Corpus, saveInterval, sizeInterval uint64) (id int, updated, saved bool, err error) {
	err = s.guardMutation(func() error {
		id, updated = s.insertOrUpdateLocked(tf, meta)

		switch {
		case saveInterval > 0 && s.updateCount%saveInterval == 0:
			vecSize, metaSize, serr := diskformat.SaveShard(dir, c, s.ID, s.vectorizer, s.meta.All())
			if serr != nil {
				return serr
			}
			s.vecBinSize = vecSize
			s.metaBinSize = metaSize
			saved = true
		case sizeInterval > 0 && s.updateCount%sizeInterval == 0:
			s.vecBinSize = int64(len(diskformat.EncodeVectorizer(s.vectorizer)))
			s.metaBinSize = int64(len(diskformat.EncodeMetadata(s.meta.All())))
		}
		return nil
	})
	return id, updated, saved, err
}

// Delete removes url's vectorizer entry, tombstoning its metadata record in
// place. Returns the tombstoned document id and whether url was found in
// this shard.
func (s *Shard) Delete(url string) (id int, found bool, err error) {
	err = s.guardMutation(func() error {
		rec, ok := s.meta.ByURL(url)
		if !ok {
			return nil
		}
		id = rec.ID
		found = true
		s.vectorizer.DelDoc(id)
		s.vectorizer.UpdateIDF()
		s.updateCount++
		return nil
	})
	return id, found, err
}

// HasURL reports whether url has a live (non-tombstoned) entry in this
// shard. Callers must hold at least a read lock.
func (s *Shard) HasURL(url string) (id int, ok bool) {
	rec, found := s.meta.ByURL(url)
	if !found || !s.vectorizer.ContainsDoc(rec.ID) {
		return 0, false
	}
	return rec.ID, true
}

// Similarity scores query against every live document in this shard.
// Callers must hold at least a read lock.
func (s *Shard) Similarity(query *tfvector.TF, algo vectorizer.Algorithm) []vectorizer.Hit {
	return s.vectorizer.Similarity(query, algo)
}

// MetadataByID looks up a document's metadata record. Callers must hold at
// least a read lock. Returns false for tombstoned or out-of-range ids.
func (s *Shard) MetadataByID(id int) (*metastore.Record, bool) {
	rec, ok := s.meta.ByID(id)
	if !ok || !s.vectorizer.ContainsDoc(id) {
		return nil, false
	}
	return rec, true
}

// UpdateCount returns the number of mutating operations applied since load.
// Callers must hold at least a read lock.
func (s *Shard) UpdateCount() uint64 { return s.updateCount }

// BinSizes returns the cached serialized byte sizes of the vectorizer and
// metadata store, as of the last refresh or save. Callers must hold at
// least a read lock.
func (s *Shard) BinSizes() (vecSize, metaSize int64) { return s.vecBinSize, s.metaBinSize }

// MaxBinSize returns the larger of the two cached bin sizes, the quantity
// the Pool uses to pick an insert-new target shard. Callers must hold at
// least a read lock.
func (s *Shard) MaxBinSize() int64 {
	if s.vecBinSize > s.metaBinSize {
		return s.vecBinSize
	}
	return s.metaBinSize
}

// RefreshBinSizes recomputes the serialized byte sizes of the vectorizer
// and metadata store without writing them anywhere. Callers must hold the
// write lock.
func (s *Shard) RefreshBinSizes() (vecSize, metaSize int64) {
	s.vecBinSize = int64(len(diskformat.EncodeVectorizer(s.vectorizer)))
	s.metaBinSize = int64(len(diskformat.EncodeMetadata(s.meta.All())))
	return s.vecBinSize, s.metaBinSize
}

// Save persists this shard's index and meta files (and rewrites the shared
// corpus) under dir, caching the resulting file sizes as the new bin sizes.
// Callers must hold at least the read lock. The auto-persistence path in
// InsertOrUpdateWithPersistTrigger does not call Save; it writes through
// diskformat.SaveShard directly under the write lock.
func (s *Shard) Save(dir string, c *corpus.Corpus) error {
	vecSize, metaSize, err := diskformat.SaveShard(dir, c, s.ID, s.vectorizer, s.meta.All())
	if err != nil {
		return err
	}
	s.vecBinSize = vecSize
	s.metaBinSize = metaSize
	return nil
}

// Vectorizer returns the shard's vectorizer. Callers must hold at least a
// read lock and must not retain it across a mutation.
func (s *Shard) Vectorizer() *vectorizer.Vectorizer { return s.vectorizer }

// MetadataRecords returns the full, tombstone-included metadata sequence.
// Callers must hold at least a read lock and must not retain the slice
// across a mutation.
func (s *Shard) MetadataRecords() []metastore.Record { return s.meta.All() }

// ReplaceMetadata swaps in a freshly compacted metadata store. Used only by
// the offline compaction path; callers must hold the write lock.
func (s *Shard) ReplaceMetadata(records []metastore.Record) {
	s.meta = metastore.FromRecords(records)
}

// Compact drops every tombstoned record and renumbers the remaining ones
// densely from 0, rebuilding the vectorizer's doc table under the new ids.
// It is an offline, opt-in rewrite: spec.md never calls for automatic
// tombstone reclamation, and Compact takes the exclusive lock for its
// entire duration rather than interleaving with inserts. Returns the
// number of tombstones dropped.
func (s *Shard) Compact() (dropped int, err error) {
	err = s.guardMutation(func() error {
		live := make([]metastore.Record, 0, s.meta.Len())
		next := vectorizer.New(s.vectorizer.Corpus())

		for _, rec := range s.meta.All() {
			tf, ok := s.vectorizer.DocTF(rec.ID)
			if !ok {
				dropped++
				continue
			}
			newID := len(live)
			rec.ID = newID
			live = append(live, rec)
			next.AddDoc(newID, tf)
		}
		next.UpdateIDF()

		s.meta = metastore.FromRecords(live)
		s.vectorizer = next
		return nil
	})
	return dropped, err
}
