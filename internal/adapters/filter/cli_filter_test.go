package filter

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/core"
)

func TestCliFilter_ProcessEmail(t *testing.T) {
	classifier := &stubClassifier{result: &core.SpamAnalysisResult{
		IsSpam:      true,
		Score:       2.0 / 3.0,
		Confidence:  1.0 / 3.0,
		Explanation: "2 of 3 nearest neighbours are spam; matched words: cash",
		ModelUsed:   "knn(k=3,n=50)",
		Neighbors: []core.Neighbor{
			{TrainingIndex: 4, Distance: 1, Spam: true},
			{TrainingIndex: 9, Distance: 1.7321, Spam: false},
		},
	}}
	service := core.NewSpamFilterService(classifier, nil, zap.NewNop(), false, time.Hour, nil)
	f, err := NewCliFilter(service, zap.NewNop(), true)
	require.NoError(t, err)

	var out bytes.Buffer
	f.SetOutput(&out)

	result, err := f.ProcessEmail(context.Background(), &core.Email{
		From:    "promo@deals.example",
		To:      []string{"a@example.org"},
		Subject: "Win cash",
		Body:    "Claim your cash",
	})
	require.NoError(t, err)
	require.True(t, result.IsSpam)

	text := out.String()
	require.Contains(t, text, "Subject: Win cash")
	require.Contains(t, text, "Body preview:\nClaim your cash")
	require.Contains(t, text, "Classification: Spam")
	require.Contains(t, text, "Model used: knn(k=3,n=50)")
	require.Contains(t, text, "1.7321")
}

func TestCliFilter_Error(t *testing.T) {
	service := core.NewSpamFilterService(&stubClassifier{err: core.ErrDimensionMismatch}, nil, zap.NewNop(), false, 0, nil)
	f, err := NewCliFilter(service, zap.NewNop(), false)
	require.NoError(t, err)

	var out bytes.Buffer
	f.SetOutput(&out)

	_, err = f.ProcessEmail(context.Background(), &core.Email{Subject: "x"})
	require.ErrorIs(t, err, core.ErrDimensionMismatch)
	require.Contains(t, out.String(), "Error:")
}
