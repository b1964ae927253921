package refdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dlscan/internal/config"
	"dlscan/internal/storage"
)

const (
	metaLastImport   = "refdata.last_import"
	metaImportSource = "refdata.source"
)

type SyncService struct {
	db     *storage.DB
	cfg    config.Config
	remote *RemoteClient
	logger *slog.Logger
}

func NewSyncService(db *storage.DB, cfg config.Config, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{db: db, cfg: cfg, remote: NewRemoteClient(cfg), logger: logger}
}

// ImportFile replaces the persisted reference records with the contents of path.
func (s *SyncService) ImportFile(ctx context.Context, path string) (*Dataset, error) {
	ds, err := LoadFile(path, s.cfg.ReferenceIDColumn, s.cfg.ReferenceSheet)
	if err != nil {
		return nil, err
	}
	return ds, s.persist(ctx, ds)
}

// ImportURL downloads REFERENCE_URL and persists it like ImportFile.
func (s *SyncService) ImportURL(ctx context.Context) (*Dataset, error) {
	ds, err := s.remote.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ds, s.persist(ctx, ds)
}

func (s *SyncService) persist(ctx context.Context, ds *Dataset) error {
	if err := s.db.ReplaceReferenceRecords(ctx, ds.IDColumn, ds.Columns, ds.Records); err != nil {
		return fmt.Errorf("persist reference records: %w", err)
	}
	_ = s.db.SetMetadata(metaLastImport, time.Now().UTC().Format(time.RFC3339))
	_ = s.db.SetMetadata(metaImportSource, ds.Source)
	s.logger.Info("reference dataset imported", "source", ds.Source, "records", ds.Len())
	return nil
}

// Load prefers the configured dataset file and falls back to the last import.
func (s *SyncService) Load(ctx context.Context) (*Dataset, error) {
	if s.cfg.ReferenceDataset != "" {
		return LoadFile(s.cfg.ReferenceDataset, s.cfg.ReferenceIDColumn, s.cfg.ReferenceSheet)
	}

	idColumn, columns, records, err := s.db.ListReferenceRecords(ctx)
	if errors.Is(err, storage.ErrNoReferenceData) {
		return nil, ErrNoDataset
	}
	if err != nil {
		return nil, err
	}
	source := "sqlite"
	if v, _ := s.db.GetMetadata(metaImportSource); v != nil {
		source = *v
	}
	return NewDataset(idColumn, columns, records, source), nil
}

func (s *SyncService) LastImport() (*time.Time, error) {
	v, err := s.db.GetMetadata(metaLastImport)
	if err != nil || v == nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
