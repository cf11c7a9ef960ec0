package knn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/mikey/knn-spam-filter/internal/core"
)

// Distance computes the Euclidean distance between two feature vectors
func Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", core.ErrDimensionMismatch, len(a), len(b))
	}
	return euclidean(a, b), nil
}

// euclidean assumes equal lengths
func euclidean(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, 2)
}
