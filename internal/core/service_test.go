package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/adapters/knnmodel"
	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/features"
	"github.com/mikey/knn-spam-filter/internal/whitelist"
)

type fakeClassifier struct {
	calls  int
	result *core.SpamAnalysisResult
	err    error
}

func (f *fakeClassifier) AnalyzeEmail(_ context.Context, _ *core.Email) (*core.SpamAnalysisResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeCache struct {
	entries map[string]*core.CacheEntry
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*core.CacheEntry{}}
}

func (c *fakeCache) Get(_ context.Context, fingerprint string) (*core.CacheEntry, error) {
	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil, errors.New("not found")
	}
	return entry, nil
}

func (c *fakeCache) Set(_ context.Context, entry *core.CacheEntry) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[entry.Fingerprint] = entry
	return nil
}

func (c *fakeCache) Delete(_ context.Context, fingerprint string) error {
	delete(c.entries, fingerprint)
	return nil
}

func (c *fakeCache) Cleanup(context.Context) error { return nil }

func spamEmail() *core.Email {
	return &core.Email{
		From:    "promo@deals.example",
		Subject: "Win cash now",
		Body:    "Claim your free prize today",
	}
}

func TestAnalyzeEmail_Whitelisted(t *testing.T) {
	classifier := &fakeClassifier{}
	checker := whitelist.NewChecker([]string{"trusted.org"}, zap.NewNop())
	svc := core.NewSpamFilterService(classifier, nil, zap.NewNop(), false, time.Hour, checker)

	email := spamEmail()
	email.From = "Alice <alice@mail.trusted.org>"

	result, err := svc.AnalyzeEmail(context.Background(), email)
	require.NoError(t, err)
	require.False(t, result.IsSpam)
	require.Equal(t, "whitelist", result.ModelUsed)
	require.Zero(t, classifier.calls)
}

func TestAnalyzeEmail_CachesVerdict(t *testing.T) {
	req := require.New(t)
	classifier := &fakeClassifier{result: &core.SpamAnalysisResult{IsSpam: true, Score: 2.0 / 3.0, ModelUsed: "knn(k=3,n=50)"}}
	cache := newFakeCache()
	svc := core.NewSpamFilterService(classifier, cache, zap.NewNop(), true, time.Hour, nil)

	first, err := svc.AnalyzeEmail(context.Background(), spamEmail())
	req.NoError(err)
	req.True(first.IsSpam)
	req.Equal("knn(k=3,n=50)", first.ModelUsed)
	req.Len(cache.entries, 1)

	entry := cache.entries[core.Fingerprint(spamEmail())]
	req.NotNil(entry)
	req.True(entry.ExpiresAt.After(entry.LastSeen))

	second, err := svc.AnalyzeEmail(context.Background(), spamEmail())
	req.NoError(err)
	req.True(second.IsSpam)
	req.Equal("cache", second.ModelUsed)
	req.InDelta(2.0/3.0, second.Score, 1e-9)
	req.Equal(1, classifier.calls)
}

func TestAnalyzeEmail_CacheDisabled(t *testing.T) {
	classifier := &fakeClassifier{result: &core.SpamAnalysisResult{IsSpam: false}}
	cache := newFakeCache()
	svc := core.NewSpamFilterService(classifier, cache, zap.NewNop(), false, time.Hour, nil)

	for range 2 {
		_, err := svc.AnalyzeEmail(context.Background(), spamEmail())
		require.NoError(t, err)
	}
	require.Equal(t, 2, classifier.calls)
	require.Empty(t, cache.entries)
}

func TestAnalyzeEmail_CacheWriteFailureIsNotFatal(t *testing.T) {
	classifier := &fakeClassifier{result: &core.SpamAnalysisResult{IsSpam: true}}
	cache := newFakeCache()
	cache.setErr = errors.New("disk full")
	svc := core.NewSpamFilterService(classifier, cache, zap.NewNop(), true, time.Hour, nil)

	result, err := svc.AnalyzeEmail(context.Background(), spamEmail())
	require.NoError(t, err)
	require.True(t, result.IsSpam)
}

func TestAnalyzeEmail_ClassifierError(t *testing.T) {
	classifier := &fakeClassifier{err: core.ErrInvalidTrainingSet}
	svc := core.NewSpamFilterService(classifier, newFakeCache(), zap.NewNop(), true, time.Hour, nil)

	_, err := svc.AnalyzeEmail(context.Background(), spamEmail())
	require.ErrorIs(t, err, core.ErrInvalidTrainingSet)
}

func TestFingerprint(t *testing.T) {
	a := &core.Email{From: "a@x.com", Subject: "  Hello ", Body: "World"}
	b := &core.Email{From: "b@y.com", Subject: "hello", Body: "WORLD  "}
	c := &core.Email{Subject: "hello world", Body: ""}

	require.Equal(t, core.Fingerprint(a), core.Fingerprint(b))
	require.NotEqual(t, core.Fingerprint(b), core.Fingerprint(c))
	require.Len(t, core.Fingerprint(a), 64)
}

func labelledExample(flip bool) []core.Record {
	return []core.Record{
		core.LabeledRecord("buy now", "", !flip),
		core.LabeledRecord("cheap pills", "", !flip),
		core.LabeledRecord("meeting notes", "", flip),
		core.LabeledRecord("project plan", "", flip),
	}
}

func TestAnalyzeEmail_RetrainInvalidatesCachedVerdicts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	params := knnmodel.Params{K: 1, Features: 4, Stopwords: features.DefaultStopwords()}

	model, err := knnmodel.Train(labelledExample(false), params, zap.NewNop(), nil)
	req.NoError(err)

	cache := newFakeCache()
	svc := core.NewSpamFilterService(model, cache, zap.NewNop(), true, time.Hour, nil)
	email := &core.Email{From: "a@example.net", Subject: "buy meeting"}

	before, err := svc.AnalyzeEmail(ctx, email)
	req.NoError(err)
	req.True(before.IsSpam)

	cached, err := svc.AnalyzeEmail(ctx, email)
	req.NoError(err)
	req.Equal("cache", cached.ModelUsed)

	req.NoError(model.Retrain(labelledExample(true), params))

	after, err := svc.AnalyzeEmail(ctx, email)
	req.NoError(err)
	req.False(after.IsSpam)
	req.NotEqual("cache", after.ModelUsed)
	req.Len(cache.entries, 2)
}
