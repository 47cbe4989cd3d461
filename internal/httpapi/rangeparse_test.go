package httpapi

import "testing"

func TestParseRangeCases(t *testing.T) {
	cases := []struct {
		in         string
		start, end int
	}{
		{"", 0, 20},
		{"50..10", 10, 50},
		{"..5", 0, 5},
		{"5..", 5, 25},
		{"7", 0, 7},
		{"0..100000", 0, 1000},
		{"garbage", 0, 20},
		{"10..20", 10, 20},
	}
	for _, tc := range cases {
		start, end := ParseRange(tc.in)
		if start != tc.start || end != tc.end {
			t.Errorf("ParseRange(%q) = (%d,%d), want (%d,%d)", tc.in, start, end, tc.start, tc.end)
		}
	}
}

func TestParseTagExclusive(t *testing.T) {
	cases := map[string]bool{
		"true": true, "TRUE": true, "1": true,
		"false": false, "0": false, "": false, "yes": false,
	}
	for in, want := range cases {
		if got := ParseTagExclusive(in); got != want {
			t.Errorf("ParseTagExclusive(%q) = %v, want %v", in, got, want)
		}
	}
}
