package pipeline

import (
	"fmt"
	"regexp"

	"dlscan/internal/util"
)

// CandidateExtractor finds the first identifier-shaped span: a fixed prefix
// followed by a bounded run of decimal digits.
type CandidateExtractor struct {
	pattern *regexp.Regexp
}

func NewCandidateExtractor(prefix string, minDigits, maxDigits int) *CandidateExtractor {
	expr := fmt.Sprintf("%s[0-9]{%d,%d}", regexp.QuoteMeta(util.NormalizeForSearch(prefix)), minDigits, maxDigits)
	return &CandidateExtractor{pattern: regexp.MustCompile(expr)}
}

// Find returns the leftmost match, greedy toward the longer digit run.
func (c *CandidateExtractor) Find(text NormalizedText) (string, bool) {
	loc := c.pattern.FindStringIndex(string(text))
	if loc == nil {
		return "", false
	}
	return string(text)[loc[0]:loc[1]], true
}
