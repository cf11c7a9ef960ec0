package factory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/adapters/cache"
	"github.com/mikey/knn-spam-filter/internal/adapters/filter"
	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/utils"
)

func newConfig(settings map[string]any) *config.Config {
	v := config.NewEmptyViper()
	for key, value := range settings {
		v.Set(key, value)
	}
	return config.NewFromViper(v)
}

func TestCacheFactory(t *testing.T) {
	f := NewCacheFactory(newConfig(nil), zap.NewNop())

	repo, err := f.CreateCacheRepository()
	require.NoError(t, err)
	memory, ok := repo.(*cache.MemoryCache)
	require.True(t, ok)
	memory.Stop()

	ttl, err := f.GetCacheTTL()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, ttl)
	require.True(t, f.IsCacheEnabled())
}

func TestCacheFactory_Invalid(t *testing.T) {
	_, err := NewCacheFactory(newConfig(map[string]any{"cache.type": "redis"}), zap.NewNop()).CreateCacheRepository()
	require.Error(t, err)

	_, err = NewCacheFactory(newConfig(map[string]any{"cache.ttl": "soon"}), zap.NewNop()).GetCacheTTL()
	require.Error(t, err)
}

func TestCacheFactory_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	f := NewCacheFactory(newConfig(map[string]any{
		"cache.type":        "sqlite",
		"cache.sqlite_path": path,
	}), zap.NewNop())

	repo, err := f.CreateCacheRepository()
	require.NoError(t, err)
	sqlite, ok := repo.(*cache.SQLiteCache)
	require.True(t, ok)
	sqlite.Stop()
}

func TestFilterFactory(t *testing.T) {
	service := core.NewSpamFilterService(nil, nil, zap.NewNop(), false, 0, nil)

	emailFilter, err := NewFilterFactory(newConfig(nil), zap.NewNop(), service).CreateEmailFilter()
	require.NoError(t, err)
	require.IsType(t, &filter.PostfixFilter{}, emailFilter)

	emailFilter, err = NewFilterFactory(newConfig(map[string]any{"server.filter_type": "cli"}), zap.NewNop(), service).CreateEmailFilter()
	require.NoError(t, err)
	require.IsType(t, &filter.CliFilter{}, emailFilter)

	_, err = NewFilterFactory(newConfig(map[string]any{"server.filter_type": "milter"}), zap.NewNop(), service).CreateEmailFilter()
	require.Error(t, err)
}

func TestClassifierFactory(t *testing.T) {
	dir := t.TempDir()
	spamPath := filepath.Join(dir, "spam.csv")
	hamPath := filepath.Join(dir, "ham.csv")
	require.NoError(t, os.WriteFile(spamPath, []byte("Subject,Message\nbuy now,cheap pills\n"), 0o600))
	require.NoError(t, os.WriteFile(hamPath, []byte("Subject,Message\nmeeting notes,project plan\n"), 0o600))

	cfg := newConfig(map[string]any{
		"dataset.spam_path":   spamPath,
		"dataset.ham_path":    hamPath,
		"classifier.k":        1,
		"classifier.features": 4,
	})
	logger := zap.NewNop()
	f := NewClassifierFactory(cfg, logger, utils.NewTextProcessor(logger))

	reader, err := f.CreateReader()
	require.NoError(t, err)

	model, err := f.CreateModel(reader)
	require.NoError(t, err)
	require.Equal(t, 4, model.Vocabulary().Len())

	classification, err := model.Classify("cheap", "pills")
	require.NoError(t, err)
	require.True(t, classification.IsSpam)
}

func TestClassifierFactory_Errors(t *testing.T) {
	logger := zap.NewNop()

	f := NewClassifierFactory(newConfig(map[string]any{"classifier.k": 4}), logger, nil)
	_, err := f.Params()
	require.Error(t, err)

	f = NewClassifierFactory(newConfig(map[string]any{
		"dataset.spam_path": filepath.Join(t.TempDir(), "missing.csv"),
	}), logger, nil)
	reader, err := f.CreateReader()
	require.NoError(t, err)
	_, err = f.CreateModel(reader)
	require.ErrorIs(t, err, core.ErrDataSource)

	f = NewClassifierFactory(newConfig(map[string]any{"dataset.spam_path": ""}), logger, nil)
	_, err = f.CreateReader()
	require.Error(t, err)
}
