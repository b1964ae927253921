package refdata

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

type LoadFunc func(ctx context.Context) (*Dataset, error)

// Store holds the current dataset snapshot. Readers take the pointer once per
// resolution; Reload swaps in a fresh snapshot without touching the old one.
type Store struct {
	current atomic.Pointer[Dataset]
	load    LoadFunc
	mu      sync.Mutex
	logger  *slog.Logger
}

func NewStore(load LoadFunc, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{load: load, logger: logger}
}

// Current returns the active snapshot, or nil when no dataset is loaded.
func (s *Store) Current() *Dataset {
	return s.current.Load()
}

func (s *Store) Swap(ds *Dataset) {
	s.current.Store(ds)
}

// Reload runs the loader and swaps the result in. On failure the previous
// snapshot stays active.
func (s *Store) Reload(ctx context.Context) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("reference dataset reload failed", "error", err, "active_records", s.Current().Len())
		return nil, err
	}
	s.current.Store(ds)
	s.logger.Info("reference dataset loaded", "source", ds.Source, "records", ds.Len())
	return ds, nil
}
