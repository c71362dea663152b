// Package dedup answers "has this file content been processed before?".
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/nikogura/resume-analyzer/pkg/config"
	"github.com/pkg/errors"
)

// Store remembers processed fingerprints.
type Store interface {
	// Seen reports whether fingerprint was marked and has not expired.
	Seen(ctx context.Context, fileKey, fingerprint string) (seen bool, err error)
	// Mark records fingerprint as processed.
	Mark(ctx context.Context, fileKey, fingerprint string) (err error)
	Close() (err error)
}

// Fingerprint is the hex SHA-256 of the file content.
func Fingerprint(content []byte) (fp string) {
	sum := sha256.Sum256(content)
	fp = hex.EncodeToString(sum[:])
	return fp
}

// New opens the store selected by cfg.Dedup.Backend.
func New(ctx context.Context, cfg config.Config) (store Store, err error) {
	switch cfg.Dedup.Backend {
	case config.DedupNone, "":
		store = None{}
	case config.DedupMemory:
		store = NewMemory(cfg.DedupTTL())
	case config.DedupRedis:
		store, err = NewRedis(ctx, cfg.Dedup.RedisAddr, cfg.DedupTTL())
	case config.DedupSQLite:
		store, err = NewSQLite(ctx, cfg.Dedup.SQLitePath, cfg.DedupTTL())
	default:
		err = errors.Errorf("unknown dedup backend: %s", cfg.Dedup.Backend)
	}
	return store, err
}

// None never reports a file as seen.
type None struct{}

// Seen always returns false.
func (None) Seen(context.Context, string, string) (seen bool, err error) {
	return seen, err
}

// Mark does nothing.
func (None) Mark(context.Context, string, string) (err error) {
	return err
}

// Close does nothing.
func (None) Close() (err error) {
	return err
}

// Memory keeps fingerprints in process memory. Entries expire after ttl; zero keeps them forever.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory(ttl time.Duration) (m *Memory) {
	m = &Memory{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
	return m
}

// Seen reports whether fingerprint was marked within ttl.
func (m *Memory) Seen(_ context.Context, _, fingerprint string) (seen bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	markedAt, ok := m.entries[fingerprint]
	if !ok {
		return seen, err
	}

	if m.ttl > 0 && m.now().Sub(markedAt) >= m.ttl {
		delete(m.entries, fingerprint)
		return seen, err
	}

	seen = true
	return seen, err
}

// Mark records fingerprint at the current time.
func (m *Memory) Mark(_ context.Context, _, fingerprint string) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[fingerprint] = m.now()
	return err
}

// Close does nothing.
func (m *Memory) Close() (err error) {
	return err
}
