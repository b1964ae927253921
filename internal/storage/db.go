package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dlscan/internal"
)

var (
	ErrNoReferenceData = errors.New("no reference records imported")
	ErrScanNotFound    = errors.New("scan not found")
)

const (
	metaIDColumn = "refdata.id_column"
	metaColumns  = "refdata.columns"

	// fixed width so createdAt sorts lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS reference_records (
  position INTEGER PRIMARY KEY,
  identifier TEXT NOT NULL,
  attributes_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reference_identifier ON reference_records(identifier);

CREATE TABLE IF NOT EXISTS scans (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  candidate TEXT,
  score INTEGER,
  matchedIdentifier TEXT,
  cause TEXT NOT NULL DEFAULT '',
  parsedJson TEXT NOT NULL,
  error TEXT,
  rawText TEXT NOT NULL,
  durationMs INTEGER NOT NULL,
  createdAt TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_createdAt ON scans(createdAt);

CREATE TABLE IF NOT EXISTS mail_messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  fromAddr TEXT,
  receivedAt TEXT,
  rawHash TEXT NOT NULL,
  spoolPath TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceReferenceRecords swaps the stored dataset in a single transaction.
func (d *DB) ReplaceReferenceRecords(ctx context.Context, idColumn string, columns []internal.Column, records []internal.ReferenceRecord) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_records`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO reference_records (position, identifier, attributes_json) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		attrs, err := json.Marshal(r.Attributes)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", r.Position, err)
		}
		if _, err := stmt.ExecContext(ctx, r.Position, r.Identifier, string(attrs)); err != nil {
			return err
		}
	}

	columnsJSON, _ := json.Marshal(columns)
	upsert := `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`
	if _, err := tx.ExecContext(ctx, upsert, metaIDColumn, idColumn); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsert, metaColumns, string(columnsJSON)); err != nil {
		return err
	}

	return tx.Commit()
}

// ListReferenceRecords returns the stored dataset in position order.
func (d *DB) ListReferenceRecords(ctx context.Context) (string, []internal.Column, []internal.ReferenceRecord, error) {
	idColumn, err := d.GetMetadata(metaIDColumn)
	if err != nil {
		return "", nil, nil, err
	}
	columnsJSON, err := d.GetMetadata(metaColumns)
	if err != nil {
		return "", nil, nil, err
	}
	if idColumn == nil || columnsJSON == nil {
		return "", nil, nil, ErrNoReferenceData
	}

	var columns []internal.Column
	if err := json.Unmarshal([]byte(*columnsJSON), &columns); err != nil {
		return "", nil, nil, fmt.Errorf("decode column schema: %w", err)
	}
	kinds := make(map[string]internal.ColumnKind, len(columns))
	for _, c := range columns {
		kinds[c.Name] = c.Kind
	}

	rows, err := d.conn.QueryContext(ctx, `SELECT position, identifier, attributes_json FROM reference_records ORDER BY position ASC`)
	if err != nil {
		return "", nil, nil, err
	}
	defer rows.Close()

	var out []internal.ReferenceRecord
	for rows.Next() {
		var r internal.ReferenceRecord
		var attrsJSON string
		if err := rows.Scan(&r.Position, &r.Identifier, &attrsJSON); err != nil {
			return "", nil, nil, err
		}
		attrs, err := decodeAttributes(attrsJSON, kinds)
		if err != nil {
			return "", nil, nil, fmt.Errorf("decode record %d: %w", r.Position, err)
		}
		r.Attributes = attrs
		out = append(out, r)
	}

	return *idColumn, columns, out, rows.Err()
}

func decodeAttributes(blob string, kinds map[string]internal.ColumnKind) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(blob)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		num, ok := v.(json.Number)
		if !ok {
			out[k] = v
			continue
		}
		if kinds[k] == internal.ColumnInteger {
			if i, err := num.Int64(); err == nil {
				out[k] = i
				continue
			}
		}
		f, err := num.Float64()
		if err != nil {
			return nil, err
		}
		out[k] = f
	}
	return out, nil
}

func (d *DB) InsertScan(ctx context.Context, row internal.ScanRow) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO scans (id, source, status, candidate, score, matchedIdentifier, cause, parsedJson, error, rawText, durationMs, createdAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, row.ID, row.Source, row.Status, row.Candidate, row.Score, row.MatchedIdentifier, row.Cause, row.ParsedJSON, row.Error, row.RawText, row.DurationMs, row.CreatedAt.UTC().Format(timeLayout))
	return err
}

func (d *DB) GetScan(ctx context.Context, id string) (internal.ScanRow, error) {
	row := d.conn.QueryRowContext(ctx, `
SELECT id, source, status, candidate, score, matchedIdentifier, cause, parsedJson, error, rawText, durationMs, createdAt
FROM scans WHERE id = ?
`, id)
	scan, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.ScanRow{}, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	return scan, err
}

// ListScans returns the most recent scans first. limit <= 0 lists everything.
func (d *DB) ListScans(ctx context.Context, limit int) ([]internal.ScanRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.QueryContext(ctx, `
SELECT id, source, status, candidate, score, matchedIdentifier, cause, parsedJson, error, rawText, durationMs, createdAt
FROM scans ORDER BY createdAt DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ScanRow
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, scan)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(r rowScanner) (internal.ScanRow, error) {
	var row internal.ScanRow
	var createdAt string
	if err := r.Scan(
		&row.ID, &row.Source, &row.Status, &row.Candidate, &row.Score, &row.MatchedIdentifier,
		&row.Cause, &row.ParsedJSON, &row.Error, &row.RawText, &row.DurationMs, &createdAt,
	); err != nil {
		return internal.ScanRow{}, err
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		row.CreatedAt = t
	}
	return row, nil
}

// RecordMailMessage stores a fetched message once per provider and message
// id. inserted is false when the message was seen before.
func (d *DB) RecordMailMessage(ctx context.Context, msg internal.FetchedMessage, rawHash, spoolPath string) (bool, error) {
	res, err := d.conn.ExecContext(ctx, `
INSERT INTO mail_messages (provider, messageId, subject, fromAddr, receivedAt, rawHash, spoolPath)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO NOTHING
`, msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, rawHash, spoolPath)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DB) MailMessageSeen(ctx context.Context, provider, messageID string) (bool, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM mail_messages WHERE provider = ? AND messageId = ?`, provider, messageID).Scan(&n)
	return n > 0, err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
