package pipeline

import "dlscan/internal"

// Decider accepts a match only when its score strictly exceeds Threshold.
type Decider struct {
	Threshold int
}

func (d Decider) Accept(m *internal.MatchResult) bool {
	return m != nil && m.Score > d.Threshold
}
