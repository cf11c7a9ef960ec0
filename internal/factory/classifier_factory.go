package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/adapters/knnmodel"
	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/dataset"
	"github.com/mikey/knn-spam-filter/internal/utils"
)

// ClassifierFactory trains k-NN models from the configured dataset
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Params returns the validated model parameters
func (f *ClassifierFactory) Params() (knnmodel.Params, error) {
	classifierConfig := f.cfg.GetClassifier()
	if err := config.Validate(classifierConfig); err != nil {
		return knnmodel.Params{}, err
	}
	return knnmodel.ParamsFromConfig(classifierConfig), nil
}

// CreateReader creates a dataset reader for the configured files
func (f *ClassifierFactory) CreateReader() (*dataset.Reader, error) {
	datasetConfig := f.cfg.GetDataset()
	if err := config.Validate(datasetConfig); err != nil {
		return nil, err
	}
	return dataset.NewReader(dataset.Paths{
		Spam: datasetConfig.SpamPath,
		Ham:  datasetConfig.HamPath,
		Test: datasetConfig.TestPath,
	}, f.logger), nil
}

// CreateModel reads the training files and trains a model on them
func (f *ClassifierFactory) CreateModel(reader *dataset.Reader) (*knnmodel.Model, error) {
	params, err := f.Params()
	if err != nil {
		return nil, err
	}

	records, err := reader.ReadTraining()
	if err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}

	model, err := knnmodel.Train(records, params, f.logger, f.textProcessor)
	if err != nil {
		return nil, fmt.Errorf("failed to train classifier: %w", err)
	}
	return model, nil
}
