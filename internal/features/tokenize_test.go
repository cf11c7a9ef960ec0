package features

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "plain words", input: "buy now", expected: []string{"buy", "now"}},
		{name: "punctuation stripped", input: "Hello, World!", expected: []string{"hello", "world"}},
		{name: "inner punctuation joins", input: "it's e-mail", expected: []string{"its", "email"}},
		{name: "digits dropped", input: "win 1000 dollars", expected: []string{"win", "dollars"}},
		{name: "mixed digits and letters", input: "v1agra", expected: []string{"vagra"}},
		{name: "non ascii letters dropped", input: "café über", expected: []string{"caf", "ber"}},
		{name: "tabs and newlines", input: "a\tb\nc", expected: []string{"a", "b", "c"}},
		{name: "only symbols", input: "!!! 42 --", expected: nil},
		{name: "empty", input: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Tokenize(tt.input))
		})
	}
}

func TestTokens_OnlyLowercaseLetters(t *testing.T) {
	inputs := []string{
		"FREE!!! Money $$$ NOW",
		"Re: Meeting @ 10:30 -- bring the Q3 report",
		"\x00\xff binary \xfe junk",
		"ÀÉÎ mixed CASE Words_with_underscores",
	}

	for _, input := range inputs {
		for token := range Tokens(input) {
			require.NotEmpty(t, token)
			for _, c := range token {
				require.True(t, c >= 'a' && c <= 'z', "unexpected rune %q in %q", c, token)
			}
		}
	}
}

func TestTokens_StopsEarly(t *testing.T) {
	var seen []string
	for token := range Tokens("one two three four") {
		seen = append(seen, token)
		if len(seen) == 2 {
			break
		}
	}
	require.Equal(t, []string{"one", "two"}, seen)
}

func TestNewStopwords(t *testing.T) {
	req := require.New(t)
	stopwords := NewStopwords([]string{"Don't", "  ", "42", "THE"})

	req.Len(stopwords, 2)
	req.True(stopwords.Contains("dont"))
	req.True(stopwords.Contains("the"))
	req.False(stopwords.Contains("money"))
}

func TestDefaultStopwords(t *testing.T) {
	req := require.New(t)
	stopwords := DefaultStopwords()

	for _, word := range []string{"the", "and", "youre", "im", "were"} {
		req.True(stopwords.Contains(word), word)
	}
	req.False(stopwords.Contains("now"))
	req.False(stopwords.Contains(""))
}
