// Package ledger is the durable record of which videos have completed
// processing. It exists solely for deduplication: a video id present here is
// never reprocessed, a video id absent here is retried on the next run.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"investment-digest/internal/digest"
)

// Entry is one processed-video record.
type Entry struct {
	VideoID     string
	ChannelID   string
	Title       string
	PublishedAt string
	ProcessedAt time.Time
}

// Store is the sqlite-backed ledger. Single writer; open it once per run and
// close it at run end. The store itself offers no transactional coupling to
// document writes; the orchestrator sequences the two.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the ledger database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, &digest.StorageError{Op: "ledger: mkdir", Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &digest.StorageError{Op: "ledger: open", Err: err}
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS episodes (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id   TEXT NOT NULL,
		video_id     TEXT NOT NULL UNIQUE,
		title        TEXT,
		published_at TEXT,
		processed_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, &digest.StorageError{Op: "ledger: init schema", Err: err}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Has reports whether videoID has already been fully processed.
func (s *Store) Has(ctx context.Context, videoID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM episodes WHERE video_id = ?`, videoID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &digest.StorageError{Op: "ledger: has", Err: err}
	}
	return true, nil
}

// MarkProcessed records a completed video. Idempotent: marking the same
// video id twice is a no-op, not an error.
func (s *Store) MarkProcessed(ctx context.Context, e Entry) error {
	if e.VideoID == "" {
		return &digest.StorageError{Op: "ledger: mark", Err: fmt.Errorf("empty video id")}
	}
	processed := e.ProcessedAt
	if processed.IsZero() {
		processed = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO episodes (channel_id, video_id, title, published_at, processed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ChannelID, e.VideoID, e.Title, e.PublishedAt, processed.Format(time.RFC3339),
	)
	if err != nil {
		return &digest.StorageError{Op: "ledger: mark", Err: err}
	}
	return nil
}

// Recent returns the newest entries, most recently processed first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, video_id, title, published_at, processed_at
		 FROM episodes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &digest.StorageError{Op: "ledger: recent", Err: err}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var title, published sql.NullString
		var processed string
		if err := rows.Scan(&e.ChannelID, &e.VideoID, &title, &published, &processed); err != nil {
			return nil, &digest.StorageError{Op: "ledger: scan", Err: err}
		}
		e.Title = title.String
		e.PublishedAt = published.String
		e.ProcessedAt, _ = time.Parse(time.RFC3339, processed)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
