package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTextProcessor_TruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	tests := []struct {
		name     string
		text     string
		maxSize  int
		expected string
	}{
		{name: "no limit", text: "cheap pills now", maxSize: 0, expected: "cheap pills now"},
		{name: "within limit", text: "cheap pills", maxSize: 20, expected: "cheap pills"},
		{name: "cut on whitespace", text: "cheap pills now", maxSize: 11, expected: "cheap pills"},
		{name: "cut inside word backs off", text: "cheap pills now", maxSize: 9, expected: "cheap"},
		{name: "single long word kept partial", text: "supercalifragilistic", maxSize: 5, expected: "super"},
		{name: "multibyte boundary", text: "héllo wörld", maxSize: 2, expected: "h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tp.TruncateText(tt.text, tt.maxSize)
			require.Equal(t, tt.expected, got)
			require.True(t, utf8.ValidString(got))
		})
	}
}

func TestTextProcessor_SanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	require.Equal(t, "valid text", tp.SanitizeUTF8("valid text"))
	require.Equal(t, "bad bytes", tp.SanitizeUTF8("bad \xff\xfebytes"))
}

func TestTextProcessor_ProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	require.Equal(t, "free", tp.ProcessText("free \xffmoney", 7))
}
