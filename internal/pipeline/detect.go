package pipeline

import (
	"regexp"
	"strings"

	"dlscan/internal/util"
)

type DetectResult struct {
	IsLicense bool
	Score     float64
	Reason    string
}

var (
	detectKeywords = []string{"DRIVING", "LICENCE", "LICENSE", "DL N0", "TRANSP0RT", "VALID", "AUTH0RISATI0N", "UNI0N 0F INDIA", "F0RM 7"}
	datePattern    = regexp.MustCompile(`\d{2}[-/]\d{2}[-/]\d{4}`)
	labelPattern   = regexp.MustCompile(`D0[BI]`)
)

// DetectLicense scores how much a recognized text looks like a driving
// licence. It is used to skip unrelated documents dropped into the inbox.
// Text the resolver could act on, an identifier or a labelled DOB/DOI date,
// is always a licence whatever the score.
func DetectLicense(text string, candidate *CandidateExtractor) DetectResult {
	upper := strings.ToUpper(text)
	upper = strings.ReplaceAll(upper, "O", "0")

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(upper, kw) {
			score += 0.15
		}
	}

	if hits := len(labelPattern.FindAllStringIndex(upper, -1)); hits >= 2 {
		score += 0.3
	} else if hits == 1 {
		score += 0.15
	}
	if dates := len(datePattern.FindAllStringIndex(upper, -1)); dates >= 2 {
		score += 0.2
	} else if dates == 1 {
		score += 0.1
	}

	hasIdentifier := false
	if candidate != nil {
		if _, ok := candidate.Find(Normalize(text)); ok {
			hasIdentifier = true
			score += 0.5
		}
	}
	if score > 1 {
		score = 1
	}

	dated := util.NormalizeForDates(text)
	hasLabelledDate := dobPattern.MatchString(dated) || doiPattern.MatchString(dated)

	isLicense := score >= 0.45
	reason := "rules_negative"
	switch {
	case hasIdentifier:
		isLicense, reason = true, "identifier"
	case hasLabelledDate:
		isLicense, reason = true, "labelled_date"
	case isLicense:
		reason = "rules_positive"
	}

	return DetectResult{IsLicense: isLicense, Score: score, Reason: reason}
}
