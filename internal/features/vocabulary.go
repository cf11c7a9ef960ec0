package features

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/mikey/knn-spam-filter/internal/core"
)

// FrequencyTable counts token occurrences for one class
type FrequencyTable map[string]int

// Ranked returns the tokens by descending count, ties broken by ascending token
func (t FrequencyTable) Ranked() []string {
	entries := lo.Entries(t)
	slices.SortFunc(entries, func(a, b lo.Entry[string, int]) int {
		if a.Value != b.Value {
			return cmp.Compare(b.Value, a.Value)
		}
		return strings.Compare(a.Key, b.Key)
	})
	return lo.Map(entries, func(e lo.Entry[string, int], _ int) string {
		return e.Key
	})
}

// CountFrequencies builds the spam and ham frequency tables of the labelled
// records, skipping stopwords. Unlabelled records are ignored.
func CountFrequencies(records []core.Record, stopwords Stopwords) (spam, ham FrequencyTable) {
	spam, ham = FrequencyTable{}, FrequencyTable{}
	for _, record := range records {
		if !record.IsLabeled() {
			continue
		}
		table := ham
		if record.IsSpam() {
			table = spam
		}
		for token := range Tokens(joinText(record.Subject, record.Message)) {
			if stopwords.Contains(token) {
				continue
			}
			table[token]++
		}
	}
	return spam, ham
}

// Vocabulary is the ordered list of tokens used as classification features.
// The order defines the index of each token in a feature vector.
type Vocabulary []string

// BuildBalancedVocabulary selects up to n tokens, n/2 from the most frequent
// spam tokens and n/2 from the most frequent ham tokens. When the two halves
// overlap, or n is odd, the remainder is filled from the full spam ranking and
// then the full ham ranking. The result is sorted lexicographically.
func BuildBalancedVocabulary(records []core.Record, n int, stopwords Stopwords) (Vocabulary, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: vocabulary size must be positive, got %d", core.ErrInvalidParameter, n)
	}

	spam, ham := CountFrequencies(records, stopwords)
	spamRanked, hamRanked := spam.Ranked(), ham.Ranked()

	half := n / 2
	selected := make(map[string]struct{}, n)
	for _, token := range spamRanked[:min(half, len(spamRanked))] {
		selected[token] = struct{}{}
	}
	for _, token := range hamRanked[:min(half, len(hamRanked))] {
		selected[token] = struct{}{}
	}

fill:
	for _, ranked := range [][]string{spamRanked, hamRanked} {
		for _, token := range ranked {
			if len(selected) >= n {
				break fill
			}
			selected[token] = struct{}{}
		}
	}

	vocabulary := lo.Keys(selected)
	slices.Sort(vocabulary)
	return Vocabulary(vocabulary), nil
}

// Len returns the number of features
func (v Vocabulary) Len() int {
	return len(v)
}

// Contains reports whether token is a feature
func (v Vocabulary) Contains(token string) bool {
	return slices.Contains(v, token)
}

// Encode converts an email into a binary presence vector
func (v Vocabulary) Encode(subject, message string) []float64 {
	return v.EncodeText(joinText(subject, message))
}

// EncodeText converts raw text into a binary presence vector
func (v Vocabulary) EncodeText(text string) []float64 {
	present := make(map[string]struct{})
	for token := range Tokens(text) {
		present[token] = struct{}{}
	}

	vector := make([]float64, len(v))
	for i, token := range v {
		if _, ok := present[token]; ok {
			vector[i] = 1.0
		}
	}
	return vector
}

// Matched returns the features set in vector, in vocabulary order
func (v Vocabulary) Matched(vector []float64) ([]string, error) {
	if len(vector) != len(v) {
		return nil, fmt.Errorf("%w: vector has %d entries, vocabulary has %d",
			core.ErrDimensionMismatch, len(vector), len(v))
	}
	return lo.Filter(v, func(_ string, i int) bool {
		return vector[i] > 0
	}), nil
}
