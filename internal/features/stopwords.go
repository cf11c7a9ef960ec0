package features

import (
	"github.com/samber/lo"
)

// defaultStopwords are common English words excluded from feature selection
var defaultStopwords = []string{
	"if", "is", "these", "in", "this", "on", "of", "with", "our", "the", "you",
	"for", "a", "and", "your", "to", "out", "at", "be", "here", "just", "im",
	"or", "youre", "are", "have", "dont", "can", "any", "me", "some", "we",
	"about", "around", "as", "before", "during", "from", "how", "into", "off",
	"over", "so", "up", "without", "been", "being", "could", "do", "get", "has",
	"know", "make", "may", "see", "take", "want", "will", "all", "each",
	"every", "few", "many", "most", "other", "such", "they", "those", "which",
	"i", "ive", "let", "lets", "were",
}

// Stopwords is a set of tokens never selected as features
type Stopwords map[string]struct{}

// DefaultStopwords returns the built-in stopword set
func DefaultStopwords() Stopwords {
	return NewStopwords(defaultStopwords)
}

// NewStopwords builds a set from raw words, normalizing each one the same
// way the tokenizer does. Words that normalize to nothing are ignored.
func NewStopwords(words []string) Stopwords {
	set := make(Stopwords, len(words))
	for _, w := range words {
		if token := normalize(w); token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}

// Contains reports whether token is a stopword
func (s Stopwords) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Words returns the stopwords in no particular order
func (s Stopwords) Words() []string {
	return lo.Keys(s)
}
