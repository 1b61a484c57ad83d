package lookup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Cache stores successful lookup responses in SQLite so repeated runs over
// the same input do not hit the network again.
type Cache struct {
	db *sql.DB
}

// OpenCache opens or creates a cache database at the given path.
func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createCacheSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func createCacheSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS lookups (
			key TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}

// get decodes the cached payload for key into out. It reports false when
// nothing is cached.
func (c *Cache) get(ctx context.Context, key string, out any) (bool, error) {
	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM lookups WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading cache: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) put(ctx context.Context, key, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO lookups (key, kind, payload, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`, key, kind, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return nil
}

// Count returns the number of cached responses.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lookups`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// CachedService answers from the cache when it can and records every
// successful response from the wrapped service. Cache failures are logged
// and the lookup falls through to the wrapped service.
type CachedService struct {
	inner  Service
	cache  *Cache
	logger *slog.Logger
}

// CachedOption configures a CachedService.
type CachedOption func(*CachedService)

// WithCacheLogger sets the logger used for cache read and write failures.
func WithCacheLogger(l *slog.Logger) CachedOption {
	return func(s *CachedService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewCachedService wraps inner with cache.
func NewCachedService(inner Service, cache *Cache, opts ...CachedOption) *CachedService {
	s := &CachedService{inner: inner, cache: cache, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LookupByTitleOrDOI implements Service.
func (s *CachedService) LookupByTitleOrDOI(ctx context.Context, doi, title string) (*Work, error) {
	key := workCacheKey(doi, title)

	var w Work
	if s.lookupCached(ctx, key, &w) {
		return &w, nil
	}

	work, err := s.inner.LookupByTitleOrDOI(ctx, doi, title)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, "work", work)
	return work, nil
}

// LookupByISBN implements Service.
func (s *CachedService) LookupByISBN(ctx context.Context, isbn string) (*Book, error) {
	key := "book:isbn:" + strings.TrimSpace(isbn)

	var b Book
	if s.lookupCached(ctx, key, &b) {
		return &b, nil
	}

	book, err := s.inner.LookupByISBN(ctx, isbn)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, "book", book)
	return book, nil
}

func (s *CachedService) lookupCached(ctx context.Context, key string, out any) bool {
	ok, err := s.cache.get(ctx, key, out)
	if err != nil {
		s.logger.Warn("lookup cache read failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (s *CachedService) store(ctx context.Context, key, kind string, v any) {
	if err := s.cache.put(ctx, key, kind, v); err != nil {
		s.logger.Warn("lookup cache write failed", "key", key, "error", err)
	}
}

func workCacheKey(doi, title string) string {
	if doi = strings.TrimSpace(doi); doi != "" {
		return "work:doi:" + strings.ToLower(doi)
	}
	return "work:title:" + strings.ToLower(strings.TrimSpace(title))
}
