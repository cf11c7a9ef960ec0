package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/adapters/knnmodel"
	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/dataset"
	"github.com/mikey/knn-spam-filter/internal/di"
	"github.com/mikey/knn-spam-filter/internal/factory"
	"github.com/mikey/knn-spam-filter/internal/ports"
)

func main() {
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	model *knnmodel.Model,
	reader *dataset.Reader,
	classifierFactory *factory.ClassifierFactory,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	logger.Info("Classifier ready", zap.String("model", model.Name()))

	if err := emailFilter.Start(); err != nil {
		logger.Error("Failed to start filter", zap.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			break
		}
		retrain(logger, model, reader, classifierFactory)
	}
	logger.Info("Shutting down...")

	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}

// retrain reloads the training files. A failed reload keeps the current model.
func retrain(logger *zap.Logger, model *knnmodel.Model, reader *dataset.Reader, f *factory.ClassifierFactory) {
	logger.Info("Reloading training data")

	params, err := f.Params()
	if err != nil {
		logger.Error("Invalid classifier configuration", zap.Error(err))
		return
	}
	records, err := reader.ReadTraining()
	if err != nil {
		logger.Error("Failed to reload training data", zap.Error(err))
		return
	}
	if err := model.Retrain(records, params); err != nil {
		logger.Error("Failed to retrain classifier", zap.Error(err))
		return
	}

	logger.Info("Classifier retrained", zap.String("model", model.Name()))
}
