// Package history persists the local upload ledger.
//
// Every successful artifact upload appends one record; the My Uploads view
// lists them newest first and re-resolves the selected entry against the
// backend. The ledger is a single-table SQLite database owned by this
// package.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scrivano/precis/safeid"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("history: store closed")

// Record is one completed upload.
type Record struct {
	// ID is the locally generated identifier the task was enqueued under.
	ID string `json:"id"`

	// Title shown in the uploads list.
	Title string `json:"title"`

	// FileName is the original file's base name.
	FileName string `json:"file_name,omitempty"`

	// Fingerprint is the content fingerprint submitted with the task.
	Fingerprint string `json:"fingerprint,omitempty"`

	// ObjectURL is where the artifact was stored.
	ObjectURL string `json:"object_url,omitempty"`

	// UploadedAt is when the upload completed.
	UploadedAt time.Time `json:"uploaded_at"`
}

// Config configures the ledger.
type Config struct {
	// Path is the database file. ":memory:" is accepted for tests.
	Path string

	// MaxRecords caps the ledger; the oldest records beyond it are pruned
	// on append. Default 200.
	MaxRecords int

	// Logger for diagnostics.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxRecords <= 0 {
		c.MaxRecords = 200
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS uploads (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	file_name   TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	object_url  TEXT NOT NULL DEFAULT '',
	uploaded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at DESC);
`

// Store is the upload ledger.
type Store struct {
	db     *sql.DB
	max    int
	logger *slog.Logger
	closed atomic.Bool
}

// Open opens (and if needed creates) the ledger at cfg.Path.
func Open(cfg Config) (*Store, error) {
	cfg.defaults()
	if cfg.Path == "" {
		return nil, errors.New("history: path required")
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}

	return &Store{db: db, max: cfg.MaxRecords, logger: cfg.Logger}, nil
}

// Append inserts a record and prunes the ledger down to the configured
// maximum, oldest first.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := safeid.ValidateIdentifier(rec.ID); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO uploads (id, title, file_name, fingerprint, object_url, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.FileName, rec.Fingerprint, rec.ObjectURL,
		rec.UploadedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM uploads WHERE id NOT IN (
			SELECT id FROM uploads ORDER BY uploaded_at DESC, id DESC LIMIT ?
		)`, s.max)
	if err != nil {
		return fmt.Errorf("history: prune: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	s.logger.Debug("history: appended", "id", rec.ID, "title", rec.Title)
	return nil
}

// List returns all records, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, file_name, fingerprint, object_url, uploaded_at
		FROM uploads ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var at int64
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.FileName, &rec.Fingerprint,
			&rec.ObjectURL, &at); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		rec.UploadedAt = time.UnixMilli(at)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Get returns a single record by identifier, or sql.ErrNoRows wrapped.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, file_name, fingerprint, object_url, uploaded_at
		FROM uploads WHERE id = ?`, id)

	var rec Record
	var at int64
	err := row.Scan(&rec.ID, &rec.Title, &rec.FileName, &rec.Fingerprint,
		&rec.ObjectURL, &at)
	if err != nil {
		return nil, fmt.Errorf("history: get %q: %w", id, err)
	}
	rec.UploadedAt = time.UnixMilli(at)
	return &rec, nil
}

// Close closes the underlying database. Further calls return ErrClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
