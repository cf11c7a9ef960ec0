package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikey/knn-spam-filter/internal/adapters/knnmodel"
	"github.com/mikey/knn-spam-filter/internal/knn"
)

func sampleRows() []Classified {
	return []Classified{
		{
			Subject: "Win cash",
			Result: &knnmodel.Classification{
				IsSpam: true,
				Score:  1,
				Neighbors: []knn.NeighborTrace{
					{TrainingIndex: 0, Distance: 1, Spam: true},
				},
				MatchedFeatures: []string{"cash", "win"},
			},
		},
		{
			Subject: "Lunch",
			Result: &knnmodel.Classification{
				Neighbors: []knn.NeighborTrace{
					{TrainingIndex: 2, Distance: 1.4142, Spam: false},
				},
			},
		},
	}
}

func TestSummarize(t *testing.T) {
	require.Equal(t, Summary{Total: 2, Spam: 1, Ham: 1}, Summarize(sampleRows()))
	require.Equal(t, Summary{}, Summarize(nil))
}

func TestWriteClassifications(t *testing.T) {
	var buf bytes.Buffer
	WriteClassifications(&buf, sampleRows())
	out := buf.String()

	require.Contains(t, out, "Subject: Win cash")
	require.Contains(t, out, "Classification: Spam (score 1.00)")
	require.Contains(t, out, "Words that lead to its classification: cash, win")
	require.Contains(t, out, "Classification: Ham (score 0.00)")
	require.Contains(t, out, "Words that lead to its classification: (none)")
	require.Contains(t, out, "1.4142")
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, Summary{Total: 3, Spam: 2, Ham: 1})
	out := buf.String()

	require.Contains(t, out, "Total emails classified")
	require.Regexp(t, `Spam\s+2`, out)
	require.Regexp(t, `Ham\s+1`, out)
}

func TestWriteFeatures(t *testing.T) {
	var buf bytes.Buffer
	WriteFeatures(&buf, []string{"cash", "free", "meeting"})
	out := buf.String()

	require.Contains(t, out, "Top 3 Features:")
	require.Regexp(t, `1\s+cash`, out)
	require.Regexp(t, `3\s+meeting`, out)
}
