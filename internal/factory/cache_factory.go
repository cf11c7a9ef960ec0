package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/adapters/cache"
	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/core"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *CacheFactory) cacheConfig() (config.CacheConfig, error) {
	cacheConfig, err := f.cfg.GetCache()
	if err != nil {
		return config.CacheConfig{}, err
	}
	if err := config.Validate(cacheConfig); err != nil {
		return config.CacheConfig{}, err
	}
	return cacheConfig, nil
}

// CreateCacheRepository creates a cache repository based on the configuration
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	cacheConfig, err := f.cacheConfig()
	if err != nil {
		return nil, err
	}

	switch cacheConfig.Type {
	case "memory":
		return cache.NewMemoryCache(f.logger, cacheConfig.CleanupFrequency), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cacheConfig.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(cacheConfig.SQLitePath, f.logger, cacheConfig.CleanupFrequency)
	case "mysql":
		return cache.NewMySQLCache(cacheConfig.MySQLDSN, f.logger, cacheConfig.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheConfig.Type)
	}
}

// GetCacheTTL returns the configured cache TTL
func (f *CacheFactory) GetCacheTTL() (time.Duration, error) {
	cacheConfig, err := f.cacheConfig()
	if err != nil {
		return 0, err
	}
	return cacheConfig.TTL, nil
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}
