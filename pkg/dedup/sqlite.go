package dedup

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Schema creates the processed_files table.
const Schema = `
CREATE TABLE IF NOT EXISTS processed_files (
	fingerprint TEXT PRIMARY KEY,
	file_key TEXT NOT NULL,
	processed_at INTEGER NOT NULL
);
`

// SQLite keeps fingerprints in a processed_files table.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite opens path (":memory:" works) and creates the schema.
func NewSQLite(ctx context.Context, path string, ttl time.Duration) (store *SQLite, err error) {
	var db *sql.DB
	db, err = sql.Open("sqlite", path)
	if err != nil {
		err = errors.Wrapf(err, "failed to open sqlite database %s", path)
		return store, err
	}

	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, "PRAGMA busy_timeout=5000")
	if err == nil {
		_, err = db.ExecContext(ctx, Schema)
	}
	if err != nil {
		_ = db.Close()
		err = errors.Wrap(err, "failed to initialize sqlite schema")
		return store, err
	}

	store = &SQLite{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}
	return store, err
}

// Seen reports whether fingerprint has a row younger than ttl.
func (s *SQLite) Seen(ctx context.Context, _, fingerprint string) (seen bool, err error) {
	var processedAt int64
	err = s.db.QueryRowContext(ctx,
		"SELECT processed_at FROM processed_files WHERE fingerprint = ?", fingerprint,
	).Scan(&processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return seen, err
	}
	if err != nil {
		err = errors.Wrap(err, "failed to query processed_files")
		return seen, err
	}

	if s.ttl > 0 && s.now().Sub(time.Unix(processedAt, 0)) >= s.ttl {
		return seen, err
	}

	seen = true
	return seen, err
}

// Mark inserts or refreshes the fingerprint row.
func (s *SQLite) Mark(ctx context.Context, fileKey, fingerprint string) (err error) {
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO processed_files (fingerprint, file_key, processed_at) VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET file_key = excluded.file_key, processed_at = excluded.processed_at`,
		fingerprint, fileKey, s.now().Unix(),
	)
	if err != nil {
		err = errors.Wrap(err, "failed to record processed file")
		return err
	}
	return err
}

// Close closes the database.
func (s *SQLite) Close() (err error) {
	err = s.db.Close()
	return err
}
