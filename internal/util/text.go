package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeForSearch folds OCR text into the canonical form used for
// identifier search: upper case, letter O read as digit zero, and only
// letters and digits kept. Applying it twice yields the same string.
func NormalizeForSearch(input string) string {
	s := cases.Upper(language.Und).String(input)
	s = strings.ReplaceAll(s, "O", "0")
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// NormalizeForDates only swaps the letter O for digit zero. Case, spacing
// and punctuation survive so that labels and date separators stay intact.
func NormalizeForDates(input string) string {
	return strings.ReplaceAll(input, "O", "0")
}

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }
