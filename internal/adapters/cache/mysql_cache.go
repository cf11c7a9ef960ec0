package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/core"
)

const mysqlTimeLayout = "2006-01-02 15:04:05"

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	db       *sql.DB
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	cache, err := newMySQLCache(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	go startCleanupTask(cache, cleanupFreq, cache.stopCh, logger)

	return cache, nil
}

func newMySQLCache(db *sql.DB, logger *zap.Logger) (*MySQLCache, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS spam_cache (
			fingerprint CHAR(64) PRIMARY KEY,
			is_spam BOOLEAN,
			score DOUBLE,
			last_seen DATETIME,
			expires_at DATETIME,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLCache{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Get retrieves a cached entry for a message fingerprint
func (c *MySQLCache) Get(ctx context.Context, fingerprint string) (*core.CacheEntry, error) {
	var entry core.CacheEntry
	var lastSeen, expiresAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT fingerprint, is_spam, score, last_seen, expires_at
		FROM spam_cache
		WHERE fingerprint = ? AND expires_at > UTC_TIMESTAMP()
	`, fingerprint).Scan(&entry.Fingerprint, &entry.IsSpam, &entry.Score, &lastSeen, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	if entry.LastSeen, err = time.Parse(mysqlTimeLayout, lastSeen); err != nil {
		return nil, fmt.Errorf("failed to parse last_seen timestamp: %w", err)
	}
	if entry.ExpiresAt, err = time.Parse(mysqlTimeLayout, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to parse expires_at timestamp: %w", err)
	}

	return &entry, nil
}

// Set stores a cache entry
func (c *MySQLCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO spam_cache (fingerprint, is_spam, score, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			is_spam = VALUES(is_spam),
			score = VALUES(score),
			last_seen = VALUES(last_seen),
			expires_at = VALUES(expires_at)
	`, entry.Fingerprint, entry.IsSpam, entry.Score,
		entry.LastSeen.UTC().Format(mysqlTimeLayout), entry.ExpiresAt.UTC().Format(mysqlTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// Delete removes a cache entry
func (c *MySQLCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM spam_cache WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM spam_cache WHERE expires_at <= UTC_TIMESTAMP()`)
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
func (c *MySQLCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close MySQL database", zap.Error(err))
		}
	})
}
