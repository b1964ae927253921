package pipeline

import (
	"dlscan/internal"
	"dlscan/internal/config"
	"dlscan/internal/refdata"
	"dlscan/internal/util"
)

// Matcher finds the reference record whose identifier is most similar to a
// candidate. ok is false only when there is nothing to compare against.
type Matcher interface {
	FindBest(candidate string) (result internal.MatchResult, ok bool)
}

// NewMatcher picks the matcher for a snapshot: a full scan for small
// datasets, the trigram index once the dataset reaches
// cfg.MatchIndexMinRecords. A nil dataset yields a nil Matcher.
func NewMatcher(cfg config.Config, ds *refdata.Dataset) Matcher {
	if ds == nil {
		return nil
	}
	linear := NewLinearMatcher(ds.Records)
	if cfg.MatchIndexMinRecords > 0 && ds.Len() >= cfg.MatchIndexMinRecords {
		return &IndexedMatcher{linear: linear, index: ds.Index()}
	}
	return linear
}

type LinearMatcher struct {
	records []internal.ReferenceRecord
	keys    []string
}

func NewLinearMatcher(records []internal.ReferenceRecord) *LinearMatcher {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = util.NormalizeForSearch(r.Identifier)
	}
	return &LinearMatcher{records: records, keys: keys}
}

func (m *LinearMatcher) FindBest(candidate string) (internal.MatchResult, bool) {
	if len(m.records) == 0 {
		return internal.MatchResult{}, false
	}
	best := internal.MatchResult{Record: m.records[0], Score: util.Similarity(candidate, m.keys[0])}
	for i := 1; i < len(m.records); i++ {
		// strictly greater keeps the earliest record on ties
		if score := util.Similarity(candidate, m.keys[i]); score > best.Score {
			best = internal.MatchResult{Record: m.records[i], Score: score}
		}
	}
	return best, true
}

// bestOf scores only the given positions, which must be ascending.
func (m *LinearMatcher) bestOf(candidate string, positions []int) internal.MatchResult {
	best := internal.MatchResult{Record: m.records[positions[0]], Score: util.Similarity(candidate, m.keys[positions[0]])}
	for _, pos := range positions[1:] {
		if score := util.Similarity(candidate, m.keys[pos]); score > best.Score {
			best = internal.MatchResult{Record: m.records[pos], Score: score}
		}
	}
	return best
}

// IndexedMatcher narrows the search with the trigram index. Records that
// pass the filter are ranked with the same exact score and tie-break as
// LinearMatcher; with no shared trigram it falls back to a full scan.
type IndexedMatcher struct {
	linear *LinearMatcher
	index  *refdata.Index
}

func (m *IndexedMatcher) FindBest(candidate string) (internal.MatchResult, bool) {
	if len(m.linear.records) == 0 {
		return internal.MatchResult{}, false
	}
	if exact := m.index.ByIdentifier[candidate]; len(exact) > 0 {
		return internal.MatchResult{Record: m.linear.records[exact[0]], Score: 100}, true
	}
	positions := m.index.Candidates(candidate)
	if len(positions) == 0 {
		return m.linear.FindBest(candidate)
	}
	return m.linear.bestOf(candidate, positions), true
}
