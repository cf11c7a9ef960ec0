package core

import "errors"

var (
	// ErrDimensionMismatch is returned when vectors of different lengths are compared
	ErrDimensionMismatch = errors.New("feature vector dimension mismatch")
	// ErrInvalidTrainingSet is returned when features and labels are not index-aligned
	ErrInvalidTrainingSet = errors.New("invalid training set")
	// ErrInvalidParameter is returned for a non-positive or even k, or a non-positive N
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDataSource is returned by dataset readers for unreadable or malformed input
	ErrDataSource = errors.New("data source error")
	// ErrMalformedRecord is returned for a dataset line without a subject/message separator
	ErrMalformedRecord = errors.New("malformed record")
)
