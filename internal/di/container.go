package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/adapters/knnmodel"
	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/dataset"
	"github.com/mikey/knn-spam-filter/internal/factory"
	"github.com/mikey/knn-spam-filter/internal/logging"
	"github.com/mikey/knn-spam-filter/internal/ports"
	"github.com/mikey/knn-spam-filter/internal/utils"
	"github.com/mikey/knn-spam-filter/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	return buildContainer(config.New)
}

func buildContainer(loadConfig func() (*config.Config, error)) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(loadConfig); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register cache factory and repository
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	// Register cache TTL and enabled flag
	if err := container.Provide(func(f *factory.CacheFactory) (time.Duration, error) {
		return f.GetCacheTTL()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) bool {
		return f.IsCacheEnabled()
	}); err != nil {
		return nil, err
	}

	// Register whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		checker := whitelist.NewChecker(cfg.GetStringSlice("spam.whitelisted_domains"), logger)
		if domains := checker.Domains(); len(domains) > 0 {
			logger.Info("Loaded whitelisted domains", zap.Strings("domains", domains))
		}
		return checker
	}); err != nil {
		return nil, err
	}

	// Register spam filter service
	if err := container.Provide(core.NewSpamFilterService); err != nil {
		return nil, err
	}

	if err := provideEmailFilter(container); err != nil {
		return nil, err
	}

	return container, nil
}

// provideClassifier registers the dataset reader and the trained model
func provideClassifier(container *dig.Container) error {
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory) (*dataset.Reader, error) {
		return f.CreateReader()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory, reader *dataset.Reader) (*knnmodel.Model, error) {
		return f.CreateModel(reader)
	}); err != nil {
		return err
	}
	return container.Provide(func(m *knnmodel.Model) core.EmailClassifier {
		return m
	})
}

func provideEmailFilter(container *dig.Container) error {
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return err
	}
	return container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	})
}
