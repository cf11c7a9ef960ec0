// Package features turns labelled email text into a fixed bag-of-words
// vocabulary and encodes messages as binary presence vectors against it.
package features

import (
	"iter"
	"slices"
	"strings"
)

// Tokens yields the normalized tokens of text in order of appearance.
// Text is split on whitespace, every byte that is not an ASCII letter is
// dropped and the remainder is lowercased. Pieces left empty are skipped.
func Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for field := range strings.FieldsSeq(text) {
			token := normalize(field)
			if token == "" {
				continue
			}
			if !yield(token) {
				return
			}
		}
	}
}

// Tokenize collects Tokens into a slice
func Tokenize(text string) []string {
	return slices.Collect(Tokens(text))
}

func normalize(field string) string {
	var b strings.Builder
	b.Grow(len(field))
	for i := 0; i < len(field); i++ {
		c := field[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if 'a' <= c && c <= 'z' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// joinText concatenates subject and message with a single space
func joinText(subject, message string) string {
	return subject + " " + message
}
