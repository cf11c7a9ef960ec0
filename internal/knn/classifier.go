// Package knn implements a k-nearest-neighbours binary classifier over
// dense feature vectors with an unweighted majority vote.
//
// A Classifier is not safe for concurrent use; callers sharing one must
// serialize Train and Predict.
package knn

import (
	"fmt"

	"github.com/mikey/knn-spam-filter/internal/core"
)

// NeighborTrace describes one neighbour retained for a vote
type NeighborTrace struct {
	TrainingIndex int
	Distance      float64
	Spam          bool
}

// Classifier labels a vector by the majority label of its k nearest
// training vectors under Euclidean distance.
type Classifier struct {
	k        int
	features [][]float64
	labels   []bool
}

// NewClassifier creates a classifier. k must be positive and odd so that a
// vote can never tie.
func NewClassifier(k int) (*Classifier, error) {
	if k <= 0 || k%2 == 0 {
		return nil, fmt.Errorf("%w: k must be a positive odd number, got %d", core.ErrInvalidParameter, k)
	}
	return &Classifier{k: k}, nil
}

// K returns the number of neighbours consulted per prediction
func (c *Classifier) K() int {
	return c.k
}

// Size returns the number of stored training vectors
func (c *Classifier) Size() int {
	return len(c.features)
}

// Dimension returns the length of the stored vectors, 0 when untrained
func (c *Classifier) Dimension() int {
	if len(c.features) == 0 {
		return 0
	}
	return len(c.features[0])
}

// Train replaces the stored training set. On error the previous training
// set is kept.
func (c *Classifier) Train(features [][]float64, labels []bool) error {
	if len(features) != len(labels) {
		return fmt.Errorf("%w: %d feature vectors but %d labels",
			core.ErrInvalidTrainingSet, len(features), len(labels))
	}

	stored := make([][]float64, len(features))
	for i, vector := range features {
		if len(vector) != len(features[0]) {
			return fmt.Errorf("%w: vector %d has %d entries, expected %d",
				core.ErrDimensionMismatch, i, len(vector), len(features[0]))
		}
		stored[i] = append([]float64(nil), vector...)
	}

	c.features = stored
	c.labels = append([]bool(nil), labels...)
	return nil
}

// Predict reports whether the query is spam. When fewer than k training
// vectors are stored, all of them vote.
func (c *Classifier) Predict(query []float64) (bool, error) {
	nearest, err := c.nearest(query)
	if err != nil {
		return false, err
	}
	return c.vote(nearest), nil
}

// PredictAnalyze is Predict plus a trace of the neighbours that voted,
// nearest first.
func (c *Classifier) PredictAnalyze(query []float64) (bool, []NeighborTrace, error) {
	nearest, err := c.nearest(query)
	if err != nil {
		return false, nil, err
	}

	traces := make([]NeighborTrace, len(nearest))
	for i, n := range nearest {
		traces[i] = NeighborTrace{
			TrainingIndex: n.index,
			Distance:      n.distance,
			Spam:          c.labels[n.index],
		}
	}
	return c.vote(nearest), traces, nil
}

func (c *Classifier) nearest(query []float64) ([]candidate, error) {
	if len(c.features) > 0 && len(query) != len(c.features[0]) {
		return nil, fmt.Errorf("%w: query has %d entries, training vectors have %d",
			core.ErrDimensionMismatch, len(query), len(c.features[0]))
	}

	neighbors := newBoundedNeighbors(c.k)
	for i, vector := range c.features {
		neighbors.offer(euclidean(query, vector), i)
	}
	return neighbors.drain(), nil
}

// vote is a strict majority over k, not over the neighbours found
func (c *Classifier) vote(nearest []candidate) bool {
	spamCount := 0
	for _, n := range nearest {
		if c.labels[n.index] {
			spamCount++
		}
	}
	return spamCount > c.k/2
}
