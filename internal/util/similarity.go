package util

import (
	"math"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// Similarity scores two strings on 0..100 as
// round(100 * (1 - distance/max(len(a), len(b)))). Only equal strings score
// 100; a near miss that would round up is held at 99.
func Similarity(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	longest := max(la, lb)
	dist := levenshtein.Distance(a, b, nil)
	score := int(math.Round(100 * (1 - float64(dist)/float64(longest))))
	if score >= 100 {
		return 99
	}
	if score < 0 {
		return 0
	}
	return score
}

// Trigrams returns the distinct rune trigrams of s. Strings shorter than
// three runes yield themselves as a single gram.
func Trigrams(s string) []string {
	r := []rune(s)
	if len(r) == 0 {
		return nil
	}
	if len(r) < 3 {
		return []string{s}
	}
	seen := make(map[string]struct{}, len(r)-2)
	out := make([]string, 0, len(r)-2)
	for i := 0; i+3 <= len(r); i++ {
		g := string(r[i : i+3])
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
