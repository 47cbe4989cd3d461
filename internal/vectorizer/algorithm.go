package vectorizer

// Algorithm is a tagged union of the similarity scoring strategies a shard
// can be asked to run. Each concrete type below implements Algorithm via
// its unexported kind method; callers construct one of the typed values
// directly (e.g. BM25{K1: 1.2, B: 0.75}) rather than going through an
// interface constructor.
type Algorithm interface {
	kind() algoKind
}

type algoKind int

const (
	kindDot algoKind = iota
	kindCosine
	kindBM25
	kindBM25L
	kindBM25Plus
	kindBM25CosineCombo
	kindBM25CosineFilter
	kindBM25PRFCosine
)

// Dot scores by the raw TF-IDF dot product between query and document.
type Dot struct{}

func (Dot) kind() algoKind { return kindDot }

// Cosine scores by the cosine similarity between TF-IDF weighted vectors.
type Cosine struct{}

func (Cosine) kind() algoKind { return kindCosine }

// BM25 is the classic Okapi BM25 ranking function.
type BM25 struct {
	K1 float64
	B  float64
}

func (BM25) kind() algoKind { return kindBM25 }

// DefaultBM25 returns BM25 with the spec's documented defaults.
func DefaultBM25() BM25 { return BM25{K1: 1.2, B: 0.75} }

// BM25L applies length-normalized term frequency before the saturation
// curve, reducing bias against long documents.
type BM25L struct {
	K1 float64
	B  float64
}

func (BM25L) kind() algoKind { return kindBM25L }

// DefaultBM25L returns BM25L with the spec's documented defaults.
func DefaultBM25L() BM25L { return BM25L{K1: 1.2, B: 0.75} }

// BM25Plus adds a lower-bound term-frequency boost (delta) so very rare
// matches are never scored at zero.
type BM25Plus struct {
	K1    float64
	B     float64
	Delta float64
}

func (BM25Plus) kind() algoKind { return kindBM25Plus }

// DefaultBM25Plus returns BM25+ with the spec's documented defaults.
func DefaultBM25Plus() BM25Plus { return BM25Plus{K1: 1.2, B: 0.75, Delta: 0.5} }

// BM25CosineCombo linearly combines a normalized BM25 score with cosine
// similarity: score = alpha*bm25Norm + (1-alpha)*cosine.
type BM25CosineCombo struct {
	K1    float64
	B     float64
	Alpha float64
}

func (BM25CosineCombo) kind() algoKind { return kindBM25CosineCombo }

// DefaultBM25CosineCombo returns the combo algorithm with spec defaults.
func DefaultBM25CosineCombo() BM25CosineCombo {
	return BM25CosineCombo{K1: 1.2, B: 0.75, Alpha: 0.5}
}

// BM25CosineFilter ranks by BM25 but drops any document whose cosine
// similarity to the query is not strictly positive, filtering out matches
// that only share terms too common to carry TF-IDF weight.
type BM25CosineFilter struct {
	K1 float64
	B  float64
}

func (BM25CosineFilter) kind() algoKind { return kindBM25CosineFilter }

// DefaultBM25CosineFilter returns the filter algorithm with spec defaults.
func DefaultBM25CosineFilter() BM25CosineFilter { return BM25CosineFilter{K1: 1.2, B: 0.75} }

// BM25PRFCosine performs Rocchio-style pseudo-relevance feedback: the
// top_n BM25 hits are used to build a feedback vector, the query is
// expanded with it, and the final score blends BM25 with cosine against
// the expanded query.
type BM25PRFCosine struct {
	K1    float64
	B     float64
	TopN  int
	Alpha float64
}

func (BM25PRFCosine) kind() algoKind { return kindBM25PRFCosine }

// DefaultBM25PRFCosine returns the PRF algorithm with spec defaults.
func DefaultBM25PRFCosine() BM25PRFCosine {
	return BM25PRFCosine{K1: 1.2, B: 0.75, TopN: 10, Alpha: 0.5}
}
