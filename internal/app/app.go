// Package app assembles the services shared by the command line tools.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"dlscan/internal/config"
	"dlscan/internal/connectors"
	"dlscan/internal/listener"
	"dlscan/internal/ocr"
	"dlscan/internal/pipeline"
	"dlscan/internal/refdata"
	"dlscan/internal/storage"
)

type App struct {
	Cfg       config.Config
	Logger    *slog.Logger
	DB        *storage.DB
	Sync      *refdata.SyncService
	Store     *refdata.Store
	Extractor *ocr.Extractor
	Scanner   *pipeline.ScanService
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Open connects storage, loads the reference dataset and wires the scan
// pipeline. A missing dataset is not fatal; scans fall back until one is
// imported and reloaded.
func Open(ctx context.Context, cfg config.Config, engine ocr.Engine) (*App, error) {
	logger := NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	sync := refdata.NewSyncService(db, cfg, logger)
	store := refdata.NewStore(sync.Load, logger)
	if _, err := store.Reload(ctx); errors.Is(err, refdata.ErrNoDataset) {
		logger.Info("no reference dataset imported yet")
	} else if err != nil {
		logger.Warn("starting without reference dataset", "error", err)
	}

	extractor := ocr.NewExtractor(engine, ocr.Config{
		Languages:   strings.FieldsFunc(cfg.OCRLanguage, func(r rune) bool { return r == '+' || r == ',' }),
		PageSegMode: cfg.OCRPSM,
		Preprocess:  ocr.PreprocessOptions{Contrast: cfg.OCRContrast, Sharpen: cfg.OCRSharpen},
	}, logger)
	resolver := pipeline.NewResolver(cfg, nil, logger)
	scanner := pipeline.NewScanService(db, cfg, store, extractor, resolver, logger)

	return &App{
		Cfg:       cfg,
		Logger:    logger,
		DB:        db,
		Sync:      sync,
		Store:     store,
		Extractor: extractor,
		Scanner:   scanner,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Inbox builds the inbox listener, with mail intake when MAIL_PROVIDER is set.
func (a *App) Inbox(ctx context.Context) (*listener.Service, error) {
	var fetch *connectors.FetchService
	if strings.TrimSpace(a.Cfg.MailProvider) != "" {
		conn, err := listener.NewMailConnector(ctx, a.Cfg)
		if err != nil {
			return nil, err
		}
		fetch = connectors.NewFetchService(a.DB, a.Cfg.InboxDir, conn, a.Logger)
	}
	return listener.NewService(a.Cfg, a.Scanner, a.Extractor, fetch, a.Logger), nil
}
