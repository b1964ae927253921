package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"dlscan/internal"
	"dlscan/internal/config"
	"dlscan/internal/ocr"
	"dlscan/internal/refdata"
	"dlscan/internal/storage"
	"dlscan/internal/util"
)

const (
	SourceHTTP  = "http"
	SourceCLI   = "cli"
	SourceInbox = "inbox"
)

// ScanService wires the OCR boundary, the resolver and scan history. Each
// call pins the dataset snapshot that is current when it starts.
type ScanService struct {
	db        *storage.DB
	cfg       config.Config
	store     *refdata.Store
	extractor *ocr.Extractor
	resolver  *Resolver
	logger    *slog.Logger

	mu            sync.Mutex
	cachedDataset *refdata.Dataset
	cachedMatcher Matcher
}

func NewScanService(db *storage.DB, cfg config.Config, store *refdata.Store, extractor *ocr.Extractor, resolver *Resolver, logger *slog.Logger) *ScanService {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = NewResolver(cfg, nil, logger)
	}
	return &ScanService{db: db, cfg: cfg, store: store, extractor: extractor, resolver: resolver, logger: logger}
}

type ScanResult struct {
	ID      string
	Outcome internal.Outcome
	RawText string
}

func (s *ScanService) ScanFile(ctx context.Context, path, source string) (ScanResult, error) {
	start := time.Now()
	text, err := s.extractor.ExtractFile(ctx, path)
	if err != nil {
		s.RecordError(ctx, source, err, time.Since(start))
		return ScanResult{}, err
	}
	return s.resolve(ctx, text, source, start)
}

func (s *ScanService) ScanBytes(ctx context.Context, name string, data []byte, source string) (ScanResult, error) {
	start := time.Now()
	text, err := s.extractor.ExtractBytes(ctx, name, data)
	if err != nil {
		s.RecordError(ctx, source, err, time.Since(start))
		return ScanResult{}, err
	}
	return s.resolve(ctx, text, source, start)
}

// ResolveText runs already recognized text through the pipeline.
func (s *ScanService) ResolveText(ctx context.Context, raw, source string) (ScanResult, error) {
	return s.resolve(ctx, raw, source, time.Now())
}

// RecordSkipped stores a document that was not run through the pipeline.
func (s *ScanService) RecordSkipped(ctx context.Context, raw, source, reason string) (string, error) {
	id := uuid.NewString()
	if s.db == nil {
		return id, nil
	}
	return id, s.db.InsertScan(ctx, internal.ScanRow{
		ID:         id,
		Source:     source,
		Status:     internal.StatusSkipped,
		Cause:      reason,
		ParsedJSON: "{}",
		RawText:    raw,
		CreatedAt:  time.Now().UTC(),
	})
}

func (s *ScanService) resolve(ctx context.Context, raw, source string, start time.Time) (ScanResult, error) {
	var ds *refdata.Dataset
	if s.store != nil {
		ds = s.store.Current()
	}
	outcome := s.resolver.Resolve(raw, s.matcherFor(ds))
	if ds != nil {
		outcome.IDColumn = ds.IDColumn
	}

	res := ScanResult{ID: uuid.NewString(), Outcome: outcome, RawText: raw}
	if s.db == nil {
		return res, nil
	}
	// a history write failure does not discard the outcome
	row, err := scanRowFor(res, source, time.Since(start))
	if err == nil {
		err = s.db.InsertScan(ctx, row)
	}
	if err != nil {
		s.logger.Error("record scan failed", "scan_id", res.ID, "source", source, "error", err)
	}
	return res, nil
}

// matcherFor reuses the matcher while the snapshot stays the same.
func (s *ScanService) matcherFor(ds *refdata.Dataset) Matcher {
	if ds == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cachedDataset != ds {
		s.cachedDataset = ds
		s.cachedMatcher = NewMatcher(s.cfg, ds)
	}
	return s.cachedMatcher
}

// RecordError stores a document that could not be turned into text.
func (s *ScanService) RecordError(ctx context.Context, source string, cause error, elapsed time.Duration) {
	if s.db == nil {
		return
	}
	row := internal.ScanRow{
		ID:         uuid.NewString(),
		Source:     source,
		Status:     internal.StatusError,
		ParsedJSON: "{}",
		Error:      util.StringPtr(cause.Error()),
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.InsertScan(ctx, row); err != nil {
		s.logger.Warn("record failed scan", "error", err)
	}
}

func scanRowFor(res ScanResult, source string, elapsed time.Duration) (internal.ScanRow, error) {
	resp := res.Outcome.Response()
	parsed := resp.ParsedData
	if parsed == nil {
		parsed = map[string]any{}
	}
	blob, err := json.Marshal(parsed)
	if err != nil {
		return internal.ScanRow{}, err
	}

	row := internal.ScanRow{
		ID:         res.ID,
		Source:     source,
		Status:     resp.Status,
		Candidate:  res.Outcome.Candidate,
		Cause:      string(res.Outcome.Cause),
		ParsedJSON: string(blob),
		RawText:    res.RawText,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if m := res.Outcome.Match; m != nil {
		row.Score = util.IntPtr(m.Score)
		row.MatchedIdentifier = util.StringPtr(m.Record.Identifier)
	}
	if resp.Error != "" {
		row.Error = util.StringPtr(resp.Error)
	}
	return row, nil
}
