package pipeline

import "dlscan/internal/util"

// NormalizedText is OCR text in the canonical search form. Only Normalize
// produces it, so the candidate search never sees raw text.
type NormalizedText string

func Normalize(raw string) NormalizedText {
	return NormalizedText(util.NormalizeForSearch(raw))
}
