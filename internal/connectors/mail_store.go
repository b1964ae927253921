package connectors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"dlscan/internal"
	"dlscan/internal/storage"
)

// MailSpool drops raw messages into the inbox directory as .eml files,
// where the inbox listener picks them up like any other document.
type MailSpool struct {
	db  *storage.DB
	dir string
}

func NewMailSpool(db *storage.DB, dir string) *MailSpool {
	return &MailSpool{db: db, dir: dir}
}

// Store writes msg once. stored is false for a message already spooled.
func (s *MailSpool) Store(ctx context.Context, msg internal.FetchedMessage) (string, bool, error) {
	seen, err := s.db.MailMessageSeen(ctx, msg.Provider, msg.MessageID)
	if err != nil || seen {
		return "", false, err
	}

	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", false, err
	}

	// written under a dot name first so the listener never sees a partial file
	rawPath := filepath.Join(s.dir, hash+".eml")
	tmpPath := filepath.Join(s.dir, "."+hash+".eml.part")
	if err := os.WriteFile(tmpPath, msg.Raw, 0o644); err != nil {
		return "", false, err
	}
	if err := os.Rename(tmpPath, rawPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", false, err
	}

	inserted, err := s.db.RecordMailMessage(ctx, msg, hash, rawPath)
	if err != nil {
		return "", false, err
	}
	return rawPath, inserted, nil
}
