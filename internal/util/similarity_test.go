package util

import (
	"strings"
	"testing"
)

func TestSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want int
	}{
		{name: "identical", a: "MH1234567890123", b: "MH1234567890123", want: 100},
		{name: "both empty", a: "", b: "", want: 100},
		{name: "one empty", a: "MH12", b: "", want: 0},
		{name: "one substitution of fifteen", a: "MH1234567890123", b: "MH1234567890124", want: 93},
		{name: "one substitution of twenty", a: "MH123456789012345678", b: "MH123456789012345679", want: 95},
		{name: "transposed digits", a: "MH1234567890123", b: "MH1234567809123", want: 87},
		{name: "disjoint", a: "AAAA", b: "BBBB", want: 0},
		{name: "extra digit", a: "MH123456789012", b: "MH1234567890123", want: 93},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Similarity(tc.a, tc.b); got != tc.want {
				t.Fatalf("Similarity(%q,%q)=%d want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestSimilarityProperties(t *testing.T) {
	words := []string{"", "M", "MH", "MH1234567890", "MH1234567890123", "HM0987654321", "XYZ", "MH12345678901234567"}
	for _, a := range words {
		if got := Similarity(a, a); got != 100 {
			t.Fatalf("Similarity(%q,%q)=%d", a, a, got)
		}
		for _, b := range words {
			ab, ba := Similarity(a, b), Similarity(b, a)
			if ab != ba {
				t.Fatalf("asymmetric %q %q: %d vs %d", a, b, ab, ba)
			}
			if ab < 0 || ab > 100 {
				t.Fatalf("out of range %q %q: %d", a, b, ab)
			}
			if a != b && ab == 100 {
				t.Fatalf("non-equal strings scored 100: %q %q", a, b)
			}
		}
	}
}

func TestSimilarityNeverRoundsUpToHundred(t *testing.T) {
	a := "MH" + strings.Repeat("1", 248)
	b := a[:len(a)-1] + "2"
	if got := Similarity(a, b); got != 99 {
		t.Fatalf("got %d", got)
	}
}

func TestTrigrams(t *testing.T) {
	got := Trigrams("MH1MH1")
	want := []string{"MH1", "H1M", "1MH"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if g := Trigrams("AB"); len(g) != 1 || g[0] != "AB" {
		t.Fatalf("short: %v", g)
	}
	if g := Trigrams(""); g != nil {
		t.Fatalf("empty: %v", g)
	}
}
