package diskformat

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/jtsearch/tfidxd/internal/corpus"
	"github.com/jtsearch/tfidxd/internal/metastore"
	"github.com/jtsearch/tfidxd/internal/vectorizer"
)

// CorpusFileName is the fixed name of the shared corpus file within an
// index directory.
const CorpusFileName = "global.corpus"

// lockFileName is the advisory cross-process lock guarding an index
// directory. It serializes SavePool/SaveShard/Load against a second
// tfidxd process (or CLI invocation) pointed at the same directory; the
// in-process Pool/Shard locks only protect concurrent goroutines within
// one process.
const lockFileName = ".tfidxd.lock"

// withDirLock creates dir if needed and runs fn while holding an advisory
// lock on it, exclusive for writers and shared for readers.
func withDirLock(dir string, exclusive bool, fn func() error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("diskformat: create index dir: %w", err)
	}
	fl := flock.New(filepath.Join(dir, lockFileName))
	var err error
	if exclusive {
		err = fl.Lock()
	} else {
		err = fl.RLock()
	}
	if err != nil {
		return fmt.Errorf("diskformat: lock %s: %w", dir, err)
	}
	defer func() { _ = fl.Unlock() }()
	return fn()
}

var numericStem = regexp.MustCompile(`^[0-9]+$`)

// ShardData bundles one shard's in-memory state for writing to disk.
type ShardData struct {
	ID         int
	Vectorizer *vectorizer.Vectorizer
	Records    []metastore.Record
}

// LoadedShard is one shard's state as read back from disk, plus the
// on-disk byte sizes of its two files (used by the caller as the initial
// cached bin sizes).
type LoadedShard struct {
	ID                int
	Vectorizer        *vectorizer.Vectorizer
	Records           []metastore.Record
	VectorizerBinSize int64
	MetaBinSize       int64
}

func indexFileName(id int) string { return fmt.Sprintf("%d.index", id) }
func metaFileName(id int) string  { return fmt.Sprintf("%d.meta", id) }

// SavePool writes the shared corpus and every shard's files to dir,
// creating dir if it does not yet exist. Save order is unspecified; the
// caller is responsible for holding whatever locks are needed to obtain a
// consistent snapshot of each shard before calling SavePool.
func SavePool(dir string, c *corpus.Corpus, shards []ShardData) error {
	return withDirLock(dir, true, func() error {
		if err := os.WriteFile(filepath.Join(dir, CorpusFileName), EncodeCorpus(c), 0o644); err != nil {
			return fmt.Errorf("diskformat: write corpus: %w", err)
		}
		for _, sd := range shards {
			if _, _, err := saveShardLocked(dir, c, sd.ID, sd.Vectorizer, sd.Records); err != nil {
				return fmt.Errorf("diskformat: save shard %d: %w", sd.ID, err)
			}
		}
		return nil
	})
}

// SaveShard writes one shard's index and meta files, and rewrites the
// shared corpus (which may have grown since the last save). It returns
// the post-write byte sizes of the index and meta files, which the caller
// caches as the shard's new bin sizes.
func SaveShard(dir string, c *corpus.Corpus, id int, v *vectorizer.Vectorizer, records []metastore.Record) (vecSize, metaSize int64, err error) {
	err = withDirLock(dir, true, func() error {
		var ierr error
		vecSize, metaSize, ierr = saveShardLocked(dir, c, id, v, records)
		return ierr
	})
	return vecSize, metaSize, err
}

// saveShardLocked is SaveShard's body, assuming the caller already holds
// dir's exclusive lock (SavePool iterating over several shards).
func saveShardLocked(dir string, c *corpus.Corpus, id int, v *vectorizer.Vectorizer, records []metastore.Record) (vecSize, metaSize int64, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("diskformat: create index dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, CorpusFileName), EncodeCorpus(c), 0o644); err != nil {
		return 0, 0, fmt.Errorf("diskformat: write corpus: %w", err)
	}

	vecData := EncodeVectorizer(v)
	if err := os.WriteFile(filepath.Join(dir, indexFileName(id)), vecData, 0o644); err != nil {
		return 0, 0, fmt.Errorf("diskformat: write index: %w", err)
	}

	metaData := EncodeMetadata(records)
	if err := os.WriteFile(filepath.Join(dir, metaFileName(id)), metaData, 0o644); err != nil {
		return 0, 0, fmt.Errorf("diskformat: write meta: %w", err)
	}

	return int64(len(vecData)), int64(len(metaData)), nil
}

// Load reads a pool's on-disk state from dir. It requires a *.corpus file
// (the first one listed is used if there are several), and every shard id
// in [0, shardCount) to have both a
// complete, deserializable .index and .meta file; any failure anywhere
// fails the whole load, since a partially loaded pool would violate the
// "every shard complete" invariant.
func Load(dir string, shardCount int) (c *corpus.Corpus, shards []LoadedShard, err error) {
	lockErr := withDirLock(dir, false, func() error {
		c, shards, err = loadLocked(dir, shardCount)
		return nil
	})
	if lockErr != nil {
		return nil, nil, lockErr
	}
	return c, shards, err
}

func loadLocked(dir string, shardCount int) (*corpus.Corpus, []LoadedShard, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("diskformat: read index dir: %w", err)
	}

	var corpusPath string
	indexByID := make(map[int]string)
	metaByID := make(map[int]string)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		stem := name[:len(name)-len(ext)]

		switch ext {
		case ".corpus":
			if corpusPath == "" {
				corpusPath = filepath.Join(dir, name)
			}
		case ".index":
			id, err := parseStem(stem)
			if err != nil {
				slog.Warn("diskformat: ignoring non-numeric index file", slog.String("file", name))
				continue
			}
			indexByID[id] = filepath.Join(dir, name)
		case ".meta":
			id, err := parseStem(stem)
			if err != nil {
				slog.Warn("diskformat: ignoring non-numeric meta file", slog.String("file", name))
				continue
			}
			metaByID[id] = filepath.Join(dir, name)
		}
	}

	if corpusPath == "" {
		return nil, nil, fmt.Errorf("diskformat: no .corpus file found in %s", dir)
	}

	corpusData, err := os.ReadFile(corpusPath)
	if err != nil {
		return nil, nil, fmt.Errorf("diskformat: read corpus: %w", err)
	}
	c, err := DecodeCorpus(corpusData)
	if err != nil {
		return nil, nil, fmt.Errorf("diskformat: decode corpus: %w", err)
	}

	shards := make([]LoadedShard, 0, shardCount)
	for i := 0; i < shardCount; i++ {
		indexPath, ok := indexByID[i]
		if !ok {
			return nil, nil, fmt.Errorf("diskformat: missing %d.index", i)
		}
		metaPath, ok := metaByID[i]
		if !ok {
			return nil, nil, fmt.Errorf("diskformat: missing %d.meta", i)
		}

		indexData, err := os.ReadFile(indexPath)
		if err != nil {
			return nil, nil, fmt.Errorf("diskformat: read %d.index: %w", i, err)
		}
		v, err := DecodeVectorizer(indexData, c)
		if err != nil {
			return nil, nil, fmt.Errorf("diskformat: decode %d.index: %w", i, err)
		}

		metaData, err := os.ReadFile(metaPath)
		if err != nil {
			return nil, nil, fmt.Errorf("diskformat: read %d.meta: %w", i, err)
		}
		records, err := DecodeMetadata(metaData)
		if err != nil {
			return nil, nil, fmt.Errorf("diskformat: decode %d.meta: %w", i, err)
		}

		shards = append(shards, LoadedShard{
			ID:                i,
			Vectorizer:        v,
			Records:           records,
			VectorizerBinSize: int64(len(indexData)),
			MetaBinSize:       int64(len(metaData)),
		})
	}

	return c, shards, nil
}

func parseStem(stem string) (int, error) {
	if !numericStem.MatchString(stem) {
		return 0, fmt.Errorf("non-numeric stem %q", stem)
	}
	return strconv.Atoi(stem)
}
