package connectors

import (
	"context"
	"log/slog"

	"dlscan/internal/storage"
)

type FetchService struct {
	connector MailConnector
	spool     *MailSpool
	logger    *slog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, inboxDir string, connector MailConnector, logger *slog.Logger) *FetchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchService{
		connector: connector,
		spool:     NewMailSpool(db, inboxDir),
		logger:    logger,
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		path, ok, err := s.spool.Store(ctx, msg)
		if err != nil {
			return FetchResult{}, err
		}
		if ok {
			stored++
			s.logger.Debug("message spooled", "provider", msg.Provider, "message_id", msg.MessageID, "path", path)
		}
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
