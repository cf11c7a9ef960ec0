package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/core"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	db       *sql.DB
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	cache, err := newSQLiteCache(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	go startCleanupTask(cache, cleanupFreq, cache.stopCh, logger)

	return cache, nil
}

func newSQLiteCache(db *sql.DB, logger *zap.Logger) (*SQLiteCache, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS spam_cache (
			fingerprint TEXT PRIMARY KEY,
			is_spam BOOLEAN,
			score REAL,
			last_seen TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_expires_at ON spam_cache(expires_at)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteCache{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get retrieves a cached entry for a message fingerprint
func (c *SQLiteCache) Get(ctx context.Context, fingerprint string) (*core.CacheEntry, error) {
	var entry core.CacheEntry
	var lastSeen, expiresAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT fingerprint, is_spam, score, last_seen, expires_at
		FROM spam_cache
		WHERE fingerprint = ? AND expires_at > ?
	`, fingerprint, time.Now().UTC().Format(time.RFC3339)).Scan(
		&entry.Fingerprint, &entry.IsSpam, &entry.Score, &lastSeen, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	if entry.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
		return nil, fmt.Errorf("failed to parse last_seen timestamp: %w", err)
	}
	if entry.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to parse expires_at timestamp: %w", err)
	}

	return &entry, nil
}

// Set stores a cache entry
func (c *SQLiteCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO spam_cache (fingerprint, is_spam, score, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Fingerprint, entry.IsSpam, entry.Score,
		entry.LastSeen.UTC().Format(time.RFC3339), entry.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Delete removes a cache entry
func (c *SQLiteCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM spam_cache WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM spam_cache WHERE expires_at <= ?`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close SQLite database", zap.Error(err))
		}
	})
}
