// Package pool implements the Shard Pool: N independent TF-IDF shards over
// one shared Corpus, insert/delete routing, parallel similarity fan-out,
// global ranking, and result hydration.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jtsearch/tfidxd/internal/corpus"
	"github.com/jtsearch/tfidxd/internal/diskformat"
	"github.com/jtsearch/tfidxd/internal/metastore"
	"github.com/jtsearch/tfidxd/internal/shard"
	"github.com/jtsearch/tfidxd/internal/tagset"
	"github.com/jtsearch/tfidxd/internal/tfvector"
	"github.com/jtsearch/tfidxd/internal/vectorizer"
)

// DefaultSaveInterval and DefaultSizeInterval are the compile-time
// mutation-count thresholds from spec.md §6.5.
const (
	DefaultSaveInterval = 100
	DefaultSizeInterval = 20
	DefaultShardCount   = 16
)

// Outcome is the three-valued result of an Insert call.
type Outcome int

const (
	Inserted Outcome = iota
	Updated
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "failed"
	}
}

// ScoredEntry is one shard's similarity hit, tagged with the shard it came
// from so it can be re-located for hydration after global ranking.
type ScoredEntry struct {
	Score   float64
	DocID   int
	Length  uint64
	ShardID int
}

// Result is one hydrated, tag-filtered search result in final ranking
// order.
type Result struct {
	URL         string
	Title       string
	Description string
	Favicon     string
	Tags        tagset.Set
	Score       float64
	Length      uint64
	Points      float64
	Timestamp   time.Time
	ShardID     int
	DocID       int
}

// Pool owns a fixed-size sequence of shards over one shared Corpus.
type Pool struct {
	corpus *corpus.Corpus
	shards []*shard.Shard

	indexDir string
	counter  atomic.Int64

	saveInterval uint64
	sizeInterval uint64
}

// New returns an empty pool of shardCount shards rooted at indexDir, with
// the default SAVE_INTERVAL/SIZE_INTERVAL.
func New(indexDir string, shardCount int) *Pool {
	return NewWithIntervals(indexDir, shardCount, DefaultSaveInterval, DefaultSizeInterval)
}

// NewWithIntervals is New with explicit persistence-trigger thresholds.
func NewWithIntervals(indexDir string, shardCount int, saveInterval, sizeInterval uint64) *Pool {
	c := corpus.New()
	shards := make([]*shard.Shard, shardCount)
	for i := range shards {
		shards[i] = shard.New(i, c)
	}
	return &Pool{
		corpus:       c,
		shards:       shards,
		indexDir:     indexDir,
		saveInterval: saveInterval,
		sizeInterval: sizeInterval,
	}
}

// Load reads a pool's full on-disk state from indexDir. Every shard id in
// [0, shardCount) must have a complete, deserializable index and meta file;
// any failure fails the whole load, per spec.md §4.5.
func Load(indexDir string, shardCount int) (*Pool, error) {
	return LoadWithIntervals(indexDir, shardCount, DefaultSaveInterval, DefaultSizeInterval)
}

// LoadWithIntervals is Load with explicit persistence-trigger thresholds.
func LoadWithIntervals(indexDir string, shardCount int, saveInterval, sizeInterval uint64) (*Pool, error) {
	c, loaded, err := diskformat.Load(indexDir, shardCount)
	if err != nil {
		return nil, err
	}

	shards := make([]*shard.Shard, shardCount)
	var total int64
	for _, ls := range loaded {
		shards[ls.ID] = shard.FromLoaded(ls.ID, ls.Vectorizer, ls.Records, ls.VectorizerBinSize, ls.MetaBinSize)
		total += int64(ls.Vectorizer.DocCount())
	}

	p := &Pool{
		corpus:       c,
		shards:       shards,
		indexDir:     indexDir,
		saveInterval: saveInterval,
		sizeInterval: sizeInterval,
	}
	p.counter.Store(total)
	return p, nil
}

// LoadOrNew tries Load and falls back to a fresh empty pool, logging the
// reason, on any failure — spec.md §4.5's "load-or-new downgrades to new".
func LoadOrNew(indexDir string, shardCount int) *Pool {
	return LoadOrNewWithIntervals(indexDir, shardCount, DefaultSaveInterval, DefaultSizeInterval)
}

// LoadOrNewWithIntervals is LoadOrNew with explicit persistence-trigger
// thresholds.
func LoadOrNewWithIntervals(indexDir string, shardCount int, saveInterval, sizeInterval uint64) *Pool {
	p, err := LoadWithIntervals(indexDir, shardCount, saveInterval, sizeInterval)
	if err != nil {
		slog.Info("pool: load failed, starting fresh", slog.String("index_dir", indexDir), slog.Any("error", err))
		return NewWithIntervals(indexDir, shardCount, saveInterval, sizeInterval)
	}
	return p
}

// Documents returns the approximate total document count, an eventually
// consistent lock-free read of the pool counter.
func (p *Pool) Documents() int64 { return p.counter.Load() }

// ShardCount returns the fixed number of shards in this pool.
func (p *Pool) ShardCount() int { return len(p.shards) }

// Corpus returns the pool's shared Corpus.
func (p *Pool) Corpus() *corpus.Corpus { return p.corpus }

// Insert performs the routing protocol of spec.md §4.4: a single read-lock
// pass over all shards finds an existing URL (first hit wins) and tracks
// the shard with the largest cached bin size as the insert-new target; the
// scan's read locks are all released before the chosen shard's write lock
// is taken, so a concurrent writer could in principle race the same URL
// into two shards (the documented lock-upgrade hazard, see DESIGN.md).
func (p *Pool) Insert(tf *tfvector.TF, meta metastore.Record) (Outcome, int, int) {
	var (
		updateTarget *shard.Shard
		bestShard    *shard.Shard
		bestSize     int64 = -1
	)

	for _, sh := range p.shards {
		sh.RLock()
		if updateTarget == nil {
			if _, ok := sh.HasURL(meta.URL); ok {
				updateTarget = sh
			}
		}
		if sz := sh.MaxBinSize(); sz > bestSize {
			bestSize = sz
			bestShard = sh
		}
		sh.RUnlock()
	}

	target := updateTarget
	if target == nil {
		target = bestShard
	}
	if target == nil {
		return Failed, 0, -1
	}

	id, updated, _, err := target.InsertOrUpdateWithPersistTrigger(tf, meta, p.indexDir, p.corpus, p.saveInterval, p.sizeInterval)
	if err != nil {
		slog.Warn("pool: insert failed", slog.Int("shard", target.ID), slog.Any("error", err))
		return Failed, 0, target.ID
	}

	if !updated {
		p.counter.Add(1)
	}

	outcome := Updated
	if !updated {
		outcome = Inserted
	}
	return outcome, id, target.ID
}

// Delete scans shards under read locks to find url (skipping poisoned
// shards with a warning), then performs the tombstoning delete under the
// owning shard's write lock.
func (p *Pool) Delete(url string) (id int, found bool) {
	var owner *shard.Shard
	for _, sh := range p.shards {
		if sh.IsPoisoned() {
			slog.Warn("pool: skipping poisoned shard during delete scan", slog.Int("shard", sh.ID))
			continue
		}
		sh.RLock()
		_, ok := sh.HasURL(url)
		sh.RUnlock()
		if ok {
			owner = sh
			break
		}
	}
	if owner == nil {
		return 0, false
	}

	id, found, err := owner.Delete(url)
	if err != nil {
		slog.Warn("pool: delete failed", slog.Int("shard", owner.ID), slog.Any("error", err))
		return 0, false
	}
	if found {
		p.counter.Add(-1)
	}
	return id, found
}

// Search fans out query across every shard that is not poisoned and not
// currently write-locked (try_read; contended shards are silently skipped,
// trading staleness for latency), then globally ranks the flattened hits.
func (p *Pool) Search(ctx context.Context, query *tfvector.TF, algo vectorizer.Algorithm) []ScoredEntry {
	var mu sync.Mutex
	var all []ScoredEntry

	g, _ := errgroup.WithContext(ctx)
	for _, sh := range p.shards {
		sh := sh
		if sh.IsPoisoned() {
			continue
		}
		if !sh.TryRLock() {
			continue
		}
		g.Go(func() error {
			defer sh.RUnlock()
			hits := sh.Similarity(query, algo)
			entries := make([]ScoredEntry, len(hits))
			for i, h := range hits {
				entries[i] = ScoredEntry{Score: h.Score, DocID: h.DocID, Length: h.Length, ShardID: sh.ID}
			}
			mu.Lock()
			all = append(all, entries...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(all, func(i, j int) bool {
		si, sj := all[i].Score, all[j].Score
		iNaN, jNaN := math.IsNaN(si), math.IsNaN(sj)
		switch {
		case iNaN && jNaN:
			return false
		case iNaN:
			return false
		case jNaN:
			return true
		default:
			return si > sj
		}
	})

	return all
}

// Hydrate clamps [start, end) to the ranked entries' bounds, then for each
// entry in the window looks up its shard (skipping poisoned shards),
// fetches metadata by id (skipping tombstoned/missing ids), and applies the
// tag filter. Filtering happens after the pagination window is selected, so
// the returned slice may be shorter than end-start — intentional per
// spec.md §4.4.
func (p *Pool) Hydrate(entries []ScoredEntry, start, end int, filter tagset.Set, tagExclusive bool) []Result {
	n := len(entries)
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > n {
		start = n
	}
	if start >= end {
		return nil
	}

	window := entries[start:end]
	results := make([]Result, 0, len(window))
	for _, e := range window {
		if e.ShardID < 0 || e.ShardID >= len(p.shards) {
			continue
		}
		sh := p.shards[e.ShardID]
		if sh.IsPoisoned() {
			continue
		}

		sh.RLock()
		rec, ok := sh.MetadataByID(e.DocID)
		var result Result
		pass := false
		if ok && passesTagFilter(rec.Tags, filter, tagExclusive) {
			pass = true
			result = Result{
				URL:         rec.URL,
				Title:       rec.Title,
				Description: rec.Description,
				Favicon:     rec.Favicon,
				Tags:        rec.Tags,
				Score:       e.Score,
				Length:      e.Length,
				Points:      rec.Points,
				Timestamp:   rec.Timestamp,
				ShardID:     e.ShardID,
				DocID:       e.DocID,
			}
		}
		sh.RUnlock()

		if pass {
			results = append(results, result)
		}
	}
	return results
}

func passesTagFilter(recTags, filter tagset.Set, exclusive bool) bool {
	if filter.IsEmpty() {
		return true
	}
	if exclusive {
		// Every tag on the record must be among the filter's tags.
		return filter.EqualFilter(recTags)
	}
	return recTags.Contains(filter)
}

// CompactShard rewrites shard id's metadata sequence densely, dropping
// tombstones accumulated by Delete, then persists the shard immediately so
// the rewrite isn't lost on a later crash. It is an offline, opt-in
// operation: spec.md never calls for it to run automatically, and the
// caller is expected to hold the pool idle (no concurrent Insert/Delete
// against this shard) for the duration, since Compact itself only
// serializes against other mutations on this one shard.
func (p *Pool) CompactShard(id int) (dropped int, err error) {
	if id < 0 || id >= len(p.shards) {
		return 0, fmt.Errorf("pool: shard id %d out of range [0,%d)", id, len(p.shards))
	}
	sh := p.shards[id]
	dropped, err = sh.Compact()
	if err != nil {
		return dropped, err
	}
	sh.RLock()
	err = sh.Save(p.indexDir, p.corpus)
	sh.RUnlock()
	if err != nil {
		return dropped, fmt.Errorf("pool: save after compact: %w", err)
	}
	return dropped, nil
}

// Save persists the whole pool: the shared corpus plus every shard's index
// and meta files. Save order is unspecified. A poisoned shard fails the
// whole save, per spec.md §4.5.
func (p *Pool) Save() error {
	shardData := make([]diskformat.ShardData, 0, len(p.shards))
	for _, sh := range p.shards {
		if sh.IsPoisoned() {
			return fmt.Errorf("pool: shard %d is poisoned, save aborted", sh.ID)
		}
		// Read locks stay held until SavePool returns, so no shard mutates
		// while its vectorizer and records are being encoded.
		sh.RLock()
		defer sh.RUnlock()
		shardData = append(shardData, diskformat.ShardData{
			ID:         sh.ID,
			Vectorizer: sh.Vectorizer(),
			Records:    sh.MetadataRecords(),
		})
	}
	return diskformat.SavePool(p.indexDir, p.corpus, shardData)
}
