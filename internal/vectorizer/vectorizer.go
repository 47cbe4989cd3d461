// Package vectorizer implements the TF table and IDF cache bound to a
// shared Corpus, plus the similarity algorithms scored against it.
package vectorizer

import (
	"math"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jtsearch/tfidxd/internal/corpus"
	"github.com/jtsearch/tfidxd/internal/tfvector"
)

// queryNormCacheSize bounds the number of distinct query vectors whose
// cosine norm is kept between UpdateIDF calls; cosine and the BM25/cosine
// hybrids all reuse it for repeat queries against an otherwise-unchanged
// shard.
const queryNormCacheSize = 256

// Hit is a single scored document returned by Similarity.
type Hit struct {
	DocID  int
	Score  float64
	Length uint64
}

// Vectorizer holds the per-document term-frequency table for one shard,
// bound to the pool's shared Corpus. It is not itself safe for concurrent
// mutation; the owning Shard serializes access with its own lock, exactly
// as spec.md requires ("all require exclusive access to the shard").
type Vectorizer struct {
	corpus *corpus.Corpus

	docs   map[int]*tfvector.TF
	df     map[uint16]int // document frequency per term, refreshed by UpdateIDF
	idf    map[uint16]float64
	idfBM  map[uint16]float64
	norm   map[int]float64 // cached TF-IDF vector norm per doc, for cosine
	avgLen float64

	idfGen     uint64 // bumped on every UpdateIDF, folded into normCache keys
	normCache  *lru.Cache[string, float64]
}

// New returns an empty Vectorizer bound to c.
func New(c *corpus.Corpus) *Vectorizer {
	cache, _ := lru.New[string, float64](queryNormCacheSize)
	return &Vectorizer{
		corpus:    c,
		docs:      make(map[int]*tfvector.TF),
		df:        make(map[uint16]int),
		idf:       make(map[uint16]float64),
		idfBM:     make(map[uint16]float64),
		norm:      make(map[int]float64),
		normCache: cache,
	}
}

// Corpus returns the vectorizer's bound corpus.
func (v *Vectorizer) Corpus() *corpus.Corpus { return v.corpus }

// DocCount returns the number of live documents.
func (v *Vectorizer) DocCount() int { return len(v.docs) }

// ContainsDoc reports whether id currently has a vectorizer entry.
func (v *Vectorizer) ContainsDoc(id int) bool {
	_, ok := v.docs[id]
	return ok
}

// DocTF returns the raw term-frequency table stored for id, for callers
// (compaction) that need to re-home a document under a new id.
func (v *Vectorizer) DocTF(id int) (*tfvector.TF, bool) {
	tf, ok := v.docs[id]
	return tf, ok
}

// AddDoc inserts or replaces the term-frequency table for id. Callers must
// call UpdateIDF afterward; the vectorizer does not auto-refresh so that
// batch callers can defer the O(docs*terms) recompute.
func (v *Vectorizer) AddDoc(id int, tf *tfvector.TF) {
	v.docs[id] = tf
}

// DelDoc removes the vectorizer entry for id, if present. Callers must
// call UpdateIDF afterward.
func (v *Vectorizer) DelDoc(id int) {
	delete(v.docs, id)
}

// UpdateIDF recomputes document frequencies, the plain and BM25 IDF
// caches, the average document length, and the cached TF-IDF norm for
// every live document. It must run synchronously after every structural
// change, per spec.md ("the vectorizer internally recomputes IDF over the
// shard's current document set").
func (v *Vectorizer) UpdateIDF() {
	v.idfGen++
	df := make(map[uint16]int)
	var totalLen uint64
	for _, tf := range v.docs {
		totalLen += tf.Total
		for term := range tf.Counts {
			df[term]++
		}
	}
	v.df = df

	n := len(v.docs)
	idf := make(map[uint16]float64, len(df))
	idfBM := make(map[uint16]float64, len(df))
	for term, d := range df {
		idf[term] = math.Log(float64(n) / float64(d))
		idfBM[term] = math.Log((float64(n)-float64(d)+0.5)/(float64(d)+0.5) + 1)
	}
	v.idf = idf
	v.idfBM = idfBM

	if n > 0 {
		v.avgLen = float64(totalLen) / float64(n)
	} else {
		v.avgLen = 0
	}

	norm := make(map[int]float64, n)
	for id, tf := range v.docs {
		var sumSq float64
		for term, count := range tf.Counts {
			w := float64(count) * v.idf[term]
			sumSq += w * w
		}
		norm[id] = math.Sqrt(sumSq)
	}
	v.norm = norm
}

// Similarity scores every live document against query using algorithm and
// returns the hits in no particular order; ranking/sorting is the Shard
// Pool's responsibility (spec.md §4.4). Reads only: multiple readers may
// call Similarity concurrently once the owning Shard's read lock is held.
func (v *Vectorizer) Similarity(query *tfvector.TF, algorithm Algorithm) []Hit {
	switch a := algorithm.(type) {
	case Dot:
		return v.similarityDot(query)
	case Cosine:
		return v.similarityCosine(query)
	case BM25:
		return v.similarityBM25(query, a.K1, a.B)
	case BM25L:
		return v.similarityBM25L(query, a.K1, a.B)
	case BM25Plus:
		return v.similarityBM25Plus(query, a.K1, a.B, a.Delta)
	case BM25CosineCombo:
		return v.similarityBM25CosineCombo(query, a)
	case BM25CosineFilter:
		return v.similarityBM25CosineFilter(query, a)
	case BM25PRFCosine:
		return v.similarityBM25PRFCosine(query, a)
	default:
		return nil
	}
}

func (v *Vectorizer) docLength(id int) uint64 {
	if tf, ok := v.docs[id]; ok {
		return tf.Total
	}
	return 0
}

func (v *Vectorizer) similarityDot(query *tfvector.TF) []Hit {
	hits := make([]Hit, 0, len(v.docs))
	for id, tf := range v.docs {
		var score float64
		for term, qc := range query.Counts {
			dc, ok := tf.Counts[term]
			if !ok {
				continue
			}
			score += float64(qc) * v.idf[term] * float64(dc) * v.idf[term]
		}
		hits = append(hits, Hit{DocID: id, Score: score, Length: tf.Total})
	}
	return hits
}

func (v *Vectorizer) queryNorm(query *tfvector.TF) float64 {
	key := v.queryNormCacheKey(query)
	if n, ok := v.normCache.Get(key); ok {
		return n
	}

	var sumSq float64
	for term, qc := range query.Counts {
		w := float64(qc) * v.idf[term]
		sumSq += w * w
	}
	n := math.Sqrt(sumSq)
	v.normCache.Add(key, n)
	return n
}

// queryNormCacheKey fingerprints query's term/count pairs together with the
// current IDF generation, so a stale entry from before the last UpdateIDF
// never collides with a fresh one.
func (v *Vectorizer) queryNormCacheKey(query *tfvector.TF) string {
	terms := make([]uint16, 0, len(query.Counts))
	for term := range query.Counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })

	var b strings.Builder
	b.WriteString(strconv.FormatUint(v.idfGen, 36))
	for _, term := range terms {
		b.WriteByte('|')
		b.WriteString(strconv.FormatUint(uint64(term), 36))
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(uint64(query.Counts[term]), 36))
	}
	return b.String()
}

func (v *Vectorizer) cosineScore(id int, tf *tfvector.TF, query *tfvector.TF, qNorm float64) float64 {
	var dot float64
	for term, qc := range query.Counts {
		dc, ok := tf.Counts[term]
		if !ok {
			continue
		}
		dot += float64(qc) * v.idf[term] * float64(dc) * v.idf[term]
	}
	denom := v.norm[id] * qNorm
	if denom == 0 {
		return 0
	}
	return dot / denom
}

func (v *Vectorizer) similarityCosine(query *tfvector.TF) []Hit {
	qNorm := v.queryNorm(query)
	hits := make([]Hit, 0, len(v.docs))
	for id, tf := range v.docs {
		hits = append(hits, Hit{DocID: id, Score: v.cosineScore(id, tf, query, qNorm), Length: tf.Total})
	}
	return hits
}

func (v *Vectorizer) bm25Score(id int, tf *tfvector.TF, query *tfvector.TF, k1, b float64) float64 {
	var score float64
	docLen := float64(tf.Total)
	for term, qc := range query.Counts {
		dc, ok := tf.Counts[term]
		if !ok || dc == 0 {
			continue
		}
		idf := v.idfBM[term]
		tfTerm := float64(dc)
		denom := tfTerm + k1*(1-b+b*docLen/v.safeAvgLen())
		score += idf * (tfTerm * (k1 + 1)) / denom * float64(qc)
	}
	return score
}

func (v *Vectorizer) safeAvgLen() float64 {
	if v.avgLen == 0 {
		return 1
	}
	return v.avgLen
}

func (v *Vectorizer) similarityBM25(query *tfvector.TF, k1, b float64) []Hit {
	hits := make([]Hit, 0, len(v.docs))
	for id, tf := range v.docs {
		hits = append(hits, Hit{DocID: id, Score: v.bm25Score(id, tf, query, k1, b), Length: tf.Total})
	}
	return hits
}

// bm25LScore applies BM25L's length-normalized term frequency before the
// saturation curve.
func (v *Vectorizer) bm25LScore(id int, tf *tfvector.TF, query *tfvector.TF, k1, b float64) float64 {
	var score float64
	docLen := float64(tf.Total)
	for term, qc := range query.Counts {
		dc, ok := tf.Counts[term]
		if !ok || dc == 0 {
			continue
		}
		idf := v.idfBM[term]
		ctd := float64(dc) / (1 - b + b*docLen/v.safeAvgLen())
		score += idf * ((k1 + 1) * ctd) / (k1 + ctd) * float64(qc)
	}
	return score
}

func (v *Vectorizer) similarityBM25L(query *tfvector.TF, k1, b float64) []Hit {
	hits := make([]Hit, 0, len(v.docs))
	for id, tf := range v.docs {
		hits = append(hits, Hit{DocID: id, Score: v.bm25LScore(id, tf, query, k1, b), Length: tf.Total})
	}
	return hits
}

func (v *Vectorizer) bm25PlusScore(id int, tf *tfvector.TF, query *tfvector.TF, k1, b, delta float64) float64 {
	var score float64
	docLen := float64(tf.Total)
	for term, qc := range query.Counts {
		dc, ok := tf.Counts[term]
		if !ok || dc == 0 {
			continue
		}
		idf := v.idfBM[term]
		tfTerm := float64(dc)
		denom := tfTerm + k1*(1-b+b*docLen/v.safeAvgLen())
		score += idf * ((tfTerm*(k1+1))/denom + delta) * float64(qc)
	}
	return score
}

func (v *Vectorizer) similarityBM25Plus(query *tfvector.TF, k1, b, delta float64) []Hit {
	hits := make([]Hit, 0, len(v.docs))
	for id, tf := range v.docs {
		hits = append(hits, Hit{DocID: id, Score: v.bm25PlusScore(id, tf, query, k1, b, delta), Length: tf.Total})
	}
	return hits
}

// normalize squashes an unbounded non-negative score into [0,1) so it can
// be linearly combined with a cosine similarity already in that range.
func normalize(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (1 + score)
}

func (v *Vectorizer) similarityBM25CosineCombo(query *tfvector.TF, a BM25CosineCombo) []Hit {
	qNorm := v.queryNorm(query)
	hits := make([]Hit, 0, len(v.docs))
	for id, tf := range v.docs {
		bm := v.bm25Score(id, tf, query, a.K1, a.B)
		cos := v.cosineScore(id, tf, query, qNorm)
		score := a.Alpha*normalize(bm) + (1-a.Alpha)*cos
		hits = append(hits, Hit{DocID: id, Score: score, Length: tf.Total})
	}
	return hits
}

func (v *Vectorizer) similarityBM25CosineFilter(query *tfvector.TF, a BM25CosineFilter) []Hit {
	qNorm := v.queryNorm(query)
	hits := make([]Hit, 0, len(v.docs))
	for id, tf := range v.docs {
		cos := v.cosineScore(id, tf, query, qNorm)
		if cos <= 0 {
			continue
		}
		bm := v.bm25Score(id, tf, query, a.K1, a.B)
		hits = append(hits, Hit{DocID: id, Score: bm, Length: tf.Total})
	}
	return hits
}

func (v *Vectorizer) similarityBM25PRFCosine(query *tfvector.TF, a BM25PRFCosine) []Hit {
	initial := v.similarityBM25(query, a.K1, a.B)
	sort.Slice(initial, func(i, j int) bool { return initial[i].Score > initial[j].Score })

	topN := a.TopN
	if topN > len(initial) {
		topN = len(initial)
	}

	feedback := tfvector.New()
	for _, h := range initial[:topN] {
		tf, ok := v.docs[h.DocID]
		if !ok {
			continue
		}
		for term, count := range tf.Counts {
			feedback.Add(term, count)
		}
	}

	expanded := tfvector.New()
	for term, count := range query.Counts {
		expanded.Add(term, count)
	}
	if topN > 0 {
		for term, count := range feedback.Counts {
			expanded.Add(term, count/uint32(topN))
		}
	}

	qNorm := v.queryNorm(expanded)
	hits := make([]Hit, 0, len(v.docs))
	for id, tf := range v.docs {
		bm := v.bm25Score(id, tf, query, a.K1, a.B)
		cos := v.cosineScore(id, tf, expanded, qNorm)
		score := a.Alpha*normalize(bm) + (1-a.Alpha)*cos
		hits = append(hits, Hit{DocID: id, Score: score, Length: tf.Total})
	}
	return hits
}

// Snapshot is the plain, serializable shape of a Vectorizer's document
// table, independent of the bound Corpus. internal/diskformat encodes and
// decodes this shape directly.
type Snapshot struct {
	DocIDs    []int
	TermIDs   [][]uint16
	TermCount [][]uint32
	Totals    []uint64
}

// Export returns a Snapshot of the current document table in a stable
// order (ascending doc id), suitable for serialization.
func (v *Vectorizer) Export() Snapshot {
	ids := make([]int, 0, len(v.docs))
	for id := range v.docs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	s := Snapshot{
		DocIDs:    make([]int, len(ids)),
		TermIDs:   make([][]uint16, len(ids)),
		TermCount: make([][]uint32, len(ids)),
		Totals:    make([]uint64, len(ids)),
	}
	for i, id := range ids {
		tf := v.docs[id]
		terms := make([]uint16, 0, len(tf.Counts))
		for term := range tf.Counts {
			terms = append(terms, term)
		}
		sort.Slice(terms, func(a, b int) bool { return terms[a] < terms[b] })
		counts := make([]uint32, len(terms))
		for j, term := range terms {
			counts[j] = tf.Counts[term]
		}
		s.DocIDs[i] = id
		s.TermIDs[i] = terms
		s.TermCount[i] = counts
		s.Totals[i] = tf.Total
	}
	return s
}

// FromSnapshot rebuilds a Vectorizer bound to c from a previously exported
// Snapshot and refreshes its IDF cache before returning.
func FromSnapshot(c *corpus.Corpus, s Snapshot) *Vectorizer {
	v := New(c)
	for i, id := range s.DocIDs {
		tf := tfvector.New()
		terms := s.TermIDs[i]
		counts := s.TermCount[i]
		for j, term := range terms {
			tf.Counts[term] = counts[j]
		}
		tf.Total = s.Totals[i]
		v.docs[id] = tf
	}
	v.UpdateIDF()
	return v
}
