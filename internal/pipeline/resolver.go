package pipeline

import (
	"log/slog"
	"time"

	"dlscan/internal"
	"dlscan/internal/config"
)

const reasonNoFields = "no identifiable fields"

// Resolver runs one document through candidate search, matching, the
// threshold decision and, failing that, fallback field extraction. It has no
// error path: every input ends in exactly one Outcome.
type Resolver struct {
	candidates *CandidateExtractor
	decider    Decider
	fallback   *FallbackExtractor
	logger     *slog.Logger
}

func NewResolver(cfg config.Config, now func() time.Time, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		candidates: NewCandidateExtractor(cfg.IdentifierPrefix, cfg.IdentifierMinDigits, cfg.IdentifierMaxDigits),
		decider:    Decider{Threshold: cfg.MatchThreshold},
		fallback:   NewFallbackExtractor(now),
		logger:     logger,
	}
}

// Resolve treats a nil matcher as an unavailable dataset.
func (r *Resolver) Resolve(raw string, matcher Matcher) internal.Outcome {
	normalized := Normalize(raw)

	candidate, found := r.candidates.Find(normalized)
	if !found {
		r.logger.Debug("no identifier candidate", "normalized_len", len(normalized))
		return r.fallbackOutcome(raw, internal.Outcome{Cause: internal.CauseNoCandidate})
	}
	r.logger.Debug("identifier candidate found", "candidate", candidate)

	partial := internal.Outcome{Candidate: &candidate}
	if matcher == nil {
		partial.Cause = internal.CauseDatasetUnavailable
		return r.fallbackOutcome(raw, partial)
	}

	best, ok := matcher.FindBest(candidate)
	if !ok {
		partial.Cause = internal.CauseDatasetUnavailable
		return r.fallbackOutcome(raw, partial)
	}
	r.logger.Debug("best reference match", "candidate", candidate, "identifier", best.Record.Identifier, "score", best.Score)

	partial.Match = &best
	if !r.decider.Accept(&best) {
		partial.Cause = internal.CauseNoConfidentMatch
		return r.fallbackOutcome(raw, partial)
	}

	record := best.Record
	partial.Kind = internal.OutcomeResolved
	partial.Record = &record
	r.logger.Info("document resolved", "identifier", record.Identifier, "score", best.Score)
	return partial
}

func (r *Resolver) fallbackOutcome(raw string, out internal.Outcome) internal.Outcome {
	fields := r.fallback.Extract(raw)
	if len(fields) == 0 {
		out.Kind = internal.OutcomeExtractionFailed
		out.Reason = reasonNoFields
		r.logger.Info("extraction failed", "cause", out.Cause)
		return out
	}
	out.Kind = internal.OutcomeFallbackExtracted
	out.Fields = fields
	r.logger.Info("fallback fields extracted", "cause", out.Cause, "fields", len(fields))
	return out
}
