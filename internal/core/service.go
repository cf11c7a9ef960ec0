package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/whitelist"
)

// SpamFilterService is the core service for spam detection
type SpamFilterService struct {
	classifier   EmailClassifier
	cache        CacheRepository
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	whitelist    *whitelist.Checker
}

// NewSpamFilterService creates a new spam filter service
func NewSpamFilterService(
	classifier EmailClassifier,
	cache CacheRepository,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	checker *whitelist.Checker,
) *SpamFilterService {
	if checker == nil {
		checker = whitelist.NewChecker(nil, logger)
	}
	return &SpamFilterService{
		classifier:   classifier,
		cache:        cache,
		logger:       logger,
		cacheEnabled: cacheEnabled && cache != nil,
		cacheTTL:     cacheTTL,
		whitelist:    checker,
	}
}

// Fingerprint identifies an email by its content so identical messages
// from different senders share a cached verdict.
func Fingerprint(email *Email) string {
	return fingerprint("", email)
}

func fingerprint(revision string, email *Email) string {
	h := sha256.New()
	if revision != "" {
		h.Write([]byte(revision))
		h.Write([]byte{0})
	}
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email.Subject))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email.Body))))
	return hex.EncodeToString(h.Sum(nil))
}

// cacheKey scopes the fingerprint to the classifier's revision so a
// retrained model never serves verdicts from its predecessor
func (s *SpamFilterService) cacheKey(email *Email) string {
	if rc, ok := s.classifier.(RevisionedClassifier); ok {
		return fingerprint(rc.Revision(), email)
	}
	return Fingerprint(email)
}

// AnalyzeEmail checks if an email is spam
func (s *SpamFilterService) AnalyzeEmail(ctx context.Context, email *Email) (*SpamAnalysisResult, error) {
	if s.whitelist.IsWhitelisted(email.From) {
		s.logger.Info("Skipping spam check for whitelisted domain",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))

		return &SpamAnalysisResult{
			IsSpam:      false,
			Score:       0.0,
			Confidence:  1.0,
			Explanation: "Sender domain is whitelisted",
			AnalyzedAt:  time.Now(),
			ModelUsed:   "whitelist",
		}, nil
	}

	key := s.cacheKey(email)

	if s.cacheEnabled {
		if entry, err := s.cache.Get(ctx, key); err == nil {
			s.logger.Debug("Cache hit for message", zap.String("fingerprint", key))
			return &SpamAnalysisResult{
				IsSpam:      entry.IsSpam,
				Score:       entry.Score,
				Confidence:  1.0,
				Explanation: "Result from cache",
				AnalyzedAt:  time.Now(),
				ModelUsed:   "cache",
			}, nil
		}
	}

	result, err := s.classifier.AnalyzeEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled {
		now := time.Now()
		entry := &CacheEntry{
			Fingerprint: key,
			IsSpam:      result.IsSpam,
			Score:       result.Score,
			LastSeen:    now,
			ExpiresAt:   now.Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return result, nil
}
