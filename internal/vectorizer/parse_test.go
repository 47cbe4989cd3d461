package vectorizer

import "testing"

func TestParseAlgorithmRecognizesEachFamily(t *testing.T) {
	cases := []struct {
		in   string
		want algoKind
	}{
		{"dot", kindDot},
		{"cosine", kindCosine},
		{"CosineSimilarity", kindCosine},
		{"BM25(1.5,0.8)", kindBM25},
		{"bm25l(1.2,0.75)", kindBM25L},
		{"BM25Plus(1.2,0.75,0.5)", kindBM25Plus},
		{"bm25cosinenormalizedlinearcombination(1.2,0.75,0.3)", kindBM25CosineCombo},
		{"BM25CosineFilter(1.2,0.75)", kindBM25CosineFilter},
		{"bm25prfcosinesimilarity(1.2,0.75,10,0.5)", kindBM25PRFCosine},
		{"", kindBM25},
		{"unknownalgo", kindBM25},
	}
	for _, tc := range cases {
		got := ParseAlgorithm(tc.in).kind()
		if got != tc.want {
			t.Errorf("ParseAlgorithm(%q).kind() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseAlgorithmExtractsParameters(t *testing.T) {
	a := ParseAlgorithm("BM25(2,0.5)")
	bm25, ok := a.(BM25)
	if !ok {
		t.Fatalf("expected BM25, got %T", a)
	}
	if bm25.K1 != 2 || bm25.B != 0.5 {
		t.Errorf("got K1=%v B=%v, want K1=2 B=0.5", bm25.K1, bm25.B)
	}
}

func TestFormatAlgorithmRoundTripsKind(t *testing.T) {
	for _, a := range []Algorithm{
		Dot{}, Cosine{}, DefaultBM25(), DefaultBM25L(), DefaultBM25Plus(),
		DefaultBM25CosineCombo(), DefaultBM25CosineFilter(), DefaultBM25PRFCosine(),
	} {
		s := FormatAlgorithm(a)
		reparsed := ParseAlgorithm(s)
		if reparsed.kind() != a.kind() {
			t.Errorf("FormatAlgorithm(%v) = %q, reparsed kind %v, want %v", a, s, reparsed.kind(), a.kind())
		}
	}
}
