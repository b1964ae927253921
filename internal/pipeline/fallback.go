package pipeline

import (
	"regexp"
	"strings"
	"time"

	"dlscan/internal"
	"dlscan/internal/util"
)

var (
	dobPattern = regexp.MustCompile(`(?:DOB|D0B)\s*[:;]?\s*(\d{2}[-/]\d{2}[-/]\d{4})`)
	doiPattern = regexp.MustCompile(`(?:DOI|D0I)\s*[:;]?\s*(\d{2}[-/]\d{2}[-/]\d{4})`)
)

const dateLayout = "02-01-2006"

// FallbackExtractor reads labelled birth and issue dates straight from the
// OCR text and buckets them into age and driving experience ranges.
type FallbackExtractor struct {
	now func() time.Time
}

func NewFallbackExtractor(now func() time.Time) *FallbackExtractor {
	if now == nil {
		now = time.Now
	}
	return &FallbackExtractor{now: now}
}

// Extract never fails. A label whose date does not parse, or whose value
// lands outside every bucket, is left out of the result.
func (f *FallbackExtractor) Extract(raw string) internal.FallbackFields {
	text := util.NormalizeForDates(raw)
	now := f.now()
	fields := internal.FallbackFields{}

	if dob, ok := findDate(dobPattern, text); ok {
		if bucket, ok := AgeBucket(wholeYears(dob, now)); ok {
			fields[internal.FieldAge] = bucket
		}
	}
	if doi, ok := findDate(doiPattern, text); ok {
		if bucket, ok := ExperienceBucket(wholeYears(doi, now)); ok {
			fields[internal.FieldDrivingExperience] = bucket
		}
	}
	return fields
}

func findDate(pattern *regexp.Regexp, text string) (time.Time, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.Parse(dateLayout, strings.ReplaceAll(m[1], "/", "-"))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// wholeYears counts completed years from since to now.
func wholeYears(since, now time.Time) int {
	years := now.Year() - since.Year()
	if now.Month() < since.Month() || (now.Month() == since.Month() && now.Day() < since.Day()) {
		years--
	}
	return years
}

func AgeBucket(age int) (string, bool) {
	switch {
	case age < 16:
		return "", false
	case age <= 25:
		return "16-25", true
	case age <= 39:
		return "26-39", true
	case age <= 64:
		return "40-64", true
	default:
		return "65+", true
	}
}

func ExperienceBucket(years int) (string, bool) {
	switch {
	case years < 0:
		return "", false
	case years <= 9:
		return "0-9y", true
	case years <= 19:
		return "10-19y", true
	case years <= 29:
		return "20-29y", true
	default:
		return "30+ y", true
	}
}
