package vectorizer

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAlgorithm parses the free-form "name(params...)" query-string
// representation accepted by the HTTP façade's algo= parameter, e.g.
// "BM25(1.2,0.75)" or "cosine". Unknown or malformed input falls back to
// DefaultBM25, matching the upstream client's own default.
func ParseAlgorithm(s string) Algorithm {
	lower := strings.ToLower(strings.TrimSpace(s))
	nums := parseParams(lower)

	switch {
	case strings.HasPrefix(lower, "dot"):
		return Dot{}
	case strings.HasPrefix(lower, "cosine"):
		return Cosine{}
	case strings.HasPrefix(lower, "bm25plus"):
		return BM25Plus{
			K1:    numOr(nums, 0, 1.2),
			B:     numOr(nums, 1, 0.75),
			Delta: numOr(nums, 2, 0.5),
		}
	case strings.HasPrefix(lower, "bm25l"):
		return BM25L{
			K1: numOr(nums, 0, 1.2),
			B:  numOr(nums, 1, 0.75),
		}
	case strings.HasPrefix(lower, "bm25cosinenormalizedlinearcombination"):
		return BM25CosineCombo{
			K1:    numOr(nums, 0, 1.2),
			B:     numOr(nums, 1, 0.75),
			Alpha: numOr(nums, 2, 0.5),
		}
	case strings.HasPrefix(lower, "bm25cosinefilter"):
		return BM25CosineFilter{
			K1: numOr(nums, 0, 1.2),
			B:  numOr(nums, 1, 0.75),
		}
	case strings.HasPrefix(lower, "bm25prfcosinesimilarity"):
		return BM25PRFCosine{
			K1:    numOr(nums, 0, 1.2),
			B:     numOr(nums, 1, 0.75),
			TopN:  int(numOr(nums, 2, 10)),
			Alpha: numOr(nums, 3, 0.5),
		}
	case strings.HasPrefix(lower, "bm25"):
		return BM25{
			K1: numOr(nums, 0, 1.2),
			B:  numOr(nums, 1, 0.75),
		}
	default:
		return DefaultBM25()
	}
}

// parseParams extracts the comma-separated numeric parameters between the
// first '(' and last ')' in src, if present.
func parseParams(src string) []float64 {
	l := strings.Index(src, "(")
	r := strings.LastIndex(src, ")")
	if l == -1 || r == -1 || r <= l {
		return nil
	}
	parts := strings.Split(src[l+1:r], ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func numOr(nums []float64, idx int, def float64) float64 {
	if idx < len(nums) {
		return nums[idx]
	}
	return def
}

// FormatAlgorithm renders a as the "name(params...)" string ParseAlgorithm
// accepts, for echoing the resolved algorithm back in a search response.
func FormatAlgorithm(a Algorithm) string {
	switch v := a.(type) {
	case Dot:
		return "Dot"
	case Cosine:
		return "Cosine"
	case BM25:
		return fmt.Sprintf("BM25(%g,%g)", v.K1, v.B)
	case BM25L:
		return fmt.Sprintf("BM25L(%g,%g)", v.K1, v.B)
	case BM25Plus:
		return fmt.Sprintf("BM25Plus(%g,%g,%g)", v.K1, v.B, v.Delta)
	case BM25CosineCombo:
		return fmt.Sprintf("BM25CosineNormalizedLinearCombination(%g,%g,%g)", v.K1, v.B, v.Alpha)
	case BM25CosineFilter:
		return fmt.Sprintf("BM25CosineFilter(%g,%g)", v.K1, v.B)
	case BM25PRFCosine:
		return fmt.Sprintf("BM25PrfCosineSimilarity(%g,%g,%d,%g)", v.K1, v.B, v.TopN, v.Alpha)
	default:
		return "BM25(1.2,0.75)"
	}
}
