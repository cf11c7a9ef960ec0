package whitelist

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChecker_IsWhitelisted(t *testing.T) {
	checker := NewChecker([]string{" Example.COM ", "@corp.org", "", "example.com"}, zap.NewNop())
	require.Equal(t, []string{"example.com", "corp.org"}, checker.Domains())

	tests := []struct {
		name     string
		from     string
		expected bool
	}{
		{name: "exact domain", from: "alice@example.com", expected: true},
		{name: "case insensitive", from: "alice@EXAMPLE.com", expected: true},
		{name: "display name", from: "Alice <alice@corp.org>", expected: true},
		{name: "subdomain", from: "bob@mail.corp.org", expected: true},
		{name: "suffix but not subdomain", from: "eve@evilcorp.org", expected: false},
		{name: "other domain", from: "eve@spam.net", expected: false},
		{name: "no at sign", from: "postmaster", expected: false},
		{name: "empty", from: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, checker.IsWhitelisted(tt.from))
		})
	}
}

func TestChecker_EmptyWhitelist(t *testing.T) {
	checker := NewChecker(nil, nil)
	require.False(t, checker.IsWhitelisted("alice@example.com"))
}
