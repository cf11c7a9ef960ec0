// Package knnmodel adapts the vocabulary builder and the k-NN classifier
// into a trained model that the spam filter service can query.
package knnmodel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/features"
	"github.com/mikey/knn-spam-filter/internal/knn"
	"github.com/mikey/knn-spam-filter/internal/utils"
)

// ErrNotTrained is returned when a model is queried before training
var ErrNotTrained = errors.New("model has not been trained")

// Params controls how a model is built
type Params struct {
	K           int
	Features    int
	Stopwords   features.Stopwords
	MaxBodySize int
}

// ParamsFromConfig converts the classifier configuration. An empty stopword
// list selects the built-in one.
func ParamsFromConfig(cfg config.ClassifierConfig) Params {
	stopwords := features.DefaultStopwords()
	if len(cfg.Stopwords) > 0 {
		stopwords = features.NewStopwords(cfg.Stopwords)
	}
	return Params{
		K:           cfg.K,
		Features:    cfg.Features,
		Stopwords:   stopwords,
		MaxBodySize: cfg.MaxBodySize,
	}
}

// Classification is the full outcome of classifying one message
type Classification struct {
	IsSpam          bool
	Score           float64
	Neighbors       []knn.NeighborTrace
	MatchedFeatures []string
}

// Model is a vocabulary paired with a classifier trained on it.
// It is safe for concurrent use.
type Model struct {
	mu            sync.RWMutex
	vocabulary    features.Vocabulary
	classifier    *knn.Classifier
	params        Params
	revision      string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewModel creates an untrained model
func NewModel(logger *zap.Logger, textProcessor *utils.TextProcessor) *Model {
	return &Model{
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Train creates a model trained on the labelled records
func Train(records []core.Record, params Params, logger *zap.Logger, textProcessor *utils.TextProcessor) (*Model, error) {
	m := NewModel(logger, textProcessor)
	if err := m.Retrain(records, params); err != nil {
		return nil, err
	}
	return m, nil
}

// Retrain rebuilds the vocabulary and training set from scratch. On error
// the current model is left as it was.
func (m *Model) Retrain(records []core.Record, params Params) error {
	classifier, err := knn.NewClassifier(params.K)
	if err != nil {
		return err
	}

	vocabulary, err := features.BuildBalancedVocabulary(records, params.Features, params.Stopwords)
	if err != nil {
		return err
	}

	labelled := lo.Filter(records, func(r core.Record, _ int) bool {
		return r.IsLabeled()
	})
	vectors := lo.Map(labelled, func(r core.Record, _ int) []float64 {
		return vocabulary.Encode(r.Subject, r.Message)
	})
	labels := lo.Map(labelled, func(r core.Record, _ int) bool {
		return r.IsSpam()
	})

	if err := classifier.Train(vectors, labels); err != nil {
		return err
	}

	m.mu.Lock()
	m.vocabulary = vocabulary
	m.classifier = classifier
	m.params = params
	m.revision = uuid.NewString()
	m.mu.Unlock()

	m.logger.Info("Trained k-NN model",
		zap.Int("k", params.K),
		zap.Int("requested_features", params.Features),
		zap.Int("vocabulary_size", vocabulary.Len()),
		zap.Int("training_size", len(labelled)),
		zap.Int("spam_count", lo.Count(labels, true)))

	return nil
}

// Vocabulary returns a copy of the features the model was built with
func (m *Model) Vocabulary() features.Vocabulary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(features.Vocabulary(nil), m.vocabulary...)
}

// Revision changes on every successful retrain. It is empty until the
// model is first trained.
func (m *Model) Revision() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

// K returns the number of neighbours consulted, 0 when untrained
func (m *Model) K() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.classifier == nil {
		return 0
	}
	return m.classifier.K()
}

// Name identifies the model in analysis results
func (m *Model) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nameLocked()
}

func (m *Model) nameLocked() string {
	if m.classifier == nil {
		return "knn(untrained)"
	}
	return fmt.Sprintf("knn(k=%d,n=%d)", m.classifier.K(), m.vocabulary.Len())
}

// Classify encodes a message and lets its nearest neighbours vote
func (m *Model) Classify(subject, message string) (*Classification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.classifyLocked(subject, message)
}

func (m *Model) classifyLocked(subject, message string) (*Classification, error) {
	if m.classifier == nil {
		return nil, ErrNotTrained
	}

	vector := m.vocabulary.Encode(subject, message)
	isSpam, neighbors, err := m.classifier.PredictAnalyze(vector)
	if err != nil {
		return nil, fmt.Errorf("failed to classify message: %w", err)
	}

	matched, err := m.vocabulary.Matched(vector)
	if err != nil {
		return nil, err
	}

	score := 0.0
	if len(neighbors) > 0 {
		spamNeighbors := lo.CountBy(neighbors, func(n knn.NeighborTrace) bool {
			return n.Spam
		})
		score = float64(spamNeighbors) / float64(len(neighbors))
	}

	return &Classification{
		IsSpam:          isSpam,
		Score:           score,
		Neighbors:       neighbors,
		MatchedFeatures: matched,
	}, nil
}

// AnalyzeEmail classifies an email for the spam filter service
func (m *Model) AnalyzeEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	body := email.Body
	if m.textProcessor != nil {
		body = m.textProcessor.ProcessText(body, m.params.MaxBodySize)
	}

	classification, err := m.classifyLocked(email.Subject, body)
	if err != nil {
		return nil, err
	}

	confidence := 0.0
	if len(classification.Neighbors) > 0 {
		confidence = math.Abs(2*classification.Score - 1)
	}

	result := &core.SpamAnalysisResult{
		IsSpam:       classification.IsSpam,
		Score:        classification.Score,
		Confidence:   confidence,
		Explanation:  explain(classification),
		AnalyzedAt:   time.Now(),
		ModelUsed:    m.nameLocked(),
		ProcessingID: uuid.NewString(),
		Neighbors: lo.Map(classification.Neighbors, func(n knn.NeighborTrace, _ int) core.Neighbor {
			return core.Neighbor{
				TrainingIndex: n.TrainingIndex,
				Distance:      n.Distance,
				Spam:          n.Spam,
			}
		}),
		MatchedFeatures: classification.MatchedFeatures,
	}

	m.logger.Debug("Classified email",
		zap.String("processing_id", result.ProcessingID),
		zap.String("sender", email.From),
		zap.Bool("is_spam", result.IsSpam),
		zap.Float64("score", result.Score),
		zap.Strings("matched_features", result.MatchedFeatures))

	return result, nil
}

func explain(c *Classification) string {
	spamNeighbors := lo.CountBy(c.Neighbors, func(n knn.NeighborTrace) bool {
		return n.Spam
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d nearest neighbours are spam", spamNeighbors, len(c.Neighbors))
	if len(c.MatchedFeatures) == 0 {
		b.WriteString("; no vocabulary words matched")
	} else {
		fmt.Fprintf(&b, "; matched words: %s", strings.Join(c.MatchedFeatures, ", "))
	}
	return b.String()
}
