package listener

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dlscan/internal/config"
	"dlscan/internal/connectors"
	gmailconnector "dlscan/internal/connectors/gmail"
	imapconnector "dlscan/internal/connectors/imap"
	"dlscan/internal/ocr"
	"dlscan/internal/pipeline"
)

const settleDelay = 500 * time.Millisecond

// Service scans documents dropped into the inbox directory and moves them to
// the done directory afterwards. When a mail provider is configured each
// cycle first spools new messages into the inbox.
type Service struct {
	cfg        config.Config
	scanner    *pipeline.ScanService
	extractor  *ocr.Extractor
	candidates *pipeline.CandidateExtractor
	fetch      *connectors.FetchService
	logger     *slog.Logger
}

type CycleResult struct {
	Fetched   int
	Processed int
	Skipped   int
	Failed    int
}

func NewService(cfg config.Config, scanner *pipeline.ScanService, extractor *ocr.Extractor, fetch *connectors.FetchService, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		scanner:    scanner,
		extractor:  extractor,
		candidates: pipeline.NewCandidateExtractor(cfg.IdentifierPrefix, cfg.IdentifierMinDigits, cfg.IdentifierMaxDigits),
		fetch:      fetch,
		logger:     logger,
	}
}

func (s *Service) Run(ctx context.Context) error {
	for _, dir := range []string{s.cfg.InboxDir, s.cfg.InboxDoneDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	events, err := watch(ctx, s.cfg.InboxDir, settleDelay, s.logger)
	if err != nil {
		s.logger.Warn("inbox watcher unavailable, polling only", "dir", s.cfg.InboxDir, "error", err)
	}

	interval := time.Duration(s.cfg.InboxIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.processFile(ctx, path, &CycleResult{})
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	res, err := s.RunCycle(ctx)
	if err != nil {
		s.logger.Error("inbox cycle error", "error", err)
		return
	}
	s.logger.Info("inbox cycle done", "fetched", res.Fetched, "processed", res.Processed, "skipped", res.Skipped, "failed", res.Failed)
}

// RunCycle fetches mail when configured and then processes every supported
// file currently in the inbox.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	if s.fetch != nil {
		fetched, err := s.fetch.FetchAndStore(ctx, s.cfg.MailLabel, s.cfg.MailFetchMax)
		if err != nil {
			s.logger.Warn("mail fetch failed", "provider", s.cfg.MailProvider, "error", err)
		} else {
			res.Fetched = fetched.Stored
		}
	}

	entries, err := os.ReadDir(s.cfg.InboxDir)
	if err != nil {
		return res, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && candidateFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, nil
		}
		s.processFile(ctx, filepath.Join(s.cfg.InboxDir, name), &res)
	}
	return res, nil
}

func (s *Service) processFile(ctx context.Context, path string, res *CycleResult) {
	if _, err := os.Stat(path); err != nil {
		// already handled by an earlier event or rescan
		return
	}

	start := time.Now()
	text, err := s.extractor.ExtractFile(ctx, path)
	switch {
	case err != nil:
		res.Failed++
		s.logger.Warn("inbox document unreadable", "path", path, "error", err)
		s.scanner.RecordError(ctx, pipeline.SourceInbox, fmt.Errorf("%s: %w", filepath.Base(path), err), time.Since(start))
	default:
		det := pipeline.DetectLicense(text, s.candidates)
		if !det.IsLicense {
			res.Skipped++
			s.logger.Info("inbox document skipped", "path", path, "score", det.Score)
			if _, err := s.scanner.RecordSkipped(ctx, text, pipeline.SourceInbox, det.Reason); err != nil {
				s.logger.Warn("record skipped document", "path", path, "error", err)
			}
			break
		}
		scan, err := s.scanner.ResolveText(ctx, text, pipeline.SourceInbox)
		if err != nil {
			res.Failed++
			s.logger.Error("inbox scan failed", "path", path, "error", err)
			return
		}
		res.Processed++
		s.logger.Info("inbox document scanned", "path", path, "scan_id", scan.ID, "status", scan.Outcome.Status())
	}

	if err := s.moveToDone(path); err != nil {
		s.logger.Error("move to done failed", "path", path, "error", err)
	}
}

func (s *Service) moveToDone(path string) error {
	if err := os.MkdirAll(s.cfg.InboxDoneDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(s.cfg.InboxDoneDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(s.cfg.InboxDoneDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	return os.Rename(path, dest)
}

// NewMailConnector builds the connector for cfg.MailProvider.
func NewMailConnector(ctx context.Context, cfg config.Config) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.MailProvider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", cfg.MailProvider)
	}
}
