package refdata

import (
	"sort"

	"dlscan/internal"
	"dlscan/internal/util"
)

// Index is a trigram blocking index over normalized record identifiers.
// Position lists are kept in ascending dataset order.
type Index struct {
	ByIdentifier    map[string][]int
	GramToPositions map[string][]int
}

func BuildIndex(records []internal.ReferenceRecord) *Index {
	idx := &Index{
		ByIdentifier:    map[string][]int{},
		GramToPositions: map[string][]int{},
	}

	for _, r := range records {
		key := util.NormalizeForSearch(r.Identifier)
		idx.ByIdentifier[key] = append(idx.ByIdentifier[key], r.Position)
		for _, gram := range util.Trigrams(key) {
			idx.GramToPositions[gram] = append(idx.GramToPositions[gram], r.Position)
		}
	}

	return idx
}

// Candidates returns the positions of records sharing at least one trigram
// with query, ascending. A nil result means nothing passed the filter.
func (idx *Index) Candidates(query string) []int {
	seen := map[int]struct{}{}
	for _, gram := range util.Trigrams(query) {
		for _, pos := range idx.GramToPositions[gram] {
			seen[pos] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	out := make([]int, 0, len(seen))
	for pos := range seen {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}
