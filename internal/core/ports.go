package core

import (
	"context"
)

// EmailClassifier defines the interface for the model that labels emails
type EmailClassifier interface {
	// AnalyzeEmail analyzes an email to determine if it's spam
	AnalyzeEmail(ctx context.Context, email *Email) (*SpamAnalysisResult, error)
}

// CacheRepository defines the interface for caching spam analysis results
type CacheRepository interface {
	// Get retrieves a cached entry for a message fingerprint
	Get(ctx context.Context, fingerprint string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, fingerprint string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// RevisionedClassifier is a classifier whose verdicts can change when it is
// retrained. Cached verdicts are scoped to the current revision.
type RevisionedClassifier interface {
	EmailClassifier

	// Revision identifies the current training state
	Revision() string
}
