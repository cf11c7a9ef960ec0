package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/adapters/filter"
	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/ports"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg         *config.Config
	logger      *zap.Logger
	spamService *core.SpamFilterService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, spamService *core.SpamFilterService) *FilterFactory {
	return &FilterFactory{
		cfg:         cfg,
		logger:      logger,
		spamService: spamService,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	serverConfig := f.cfg.GetServer()
	if err := config.Validate(serverConfig); err != nil {
		return nil, err
	}

	switch serverConfig.FilterType {
	case "postfix":
		return filter.NewPostfixFilter(f.spamService, f.logger, serverConfig), nil
	case "cli":
		return filter.NewCliFilter(f.spamService, f.logger, serverConfig.Verbose)
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", serverConfig.FilterType)
	}
}
