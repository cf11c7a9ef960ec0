package whitelist

import (
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Checker decides whether a sender bypasses classification
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker. Entries are lowercased and
// deduplicated; empty entries are dropped.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := lo.Uniq(lo.FilterMap(domains, func(d string, _ int) (string, bool) {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		return d, d != ""
	}))

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// Domains returns the normalized whitelist
func (c *Checker) Domains() []string {
	return c.domains
}

// IsWhitelisted reports whether the sender's domain, or one of its parent
// domains, is in the whitelist. Accepts bare addresses and "Name <addr>" forms.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain, ok := senderDomain(from)
	if !ok {
		return false
	}

	for _, whitelisted := range c.domains {
		if domain == whitelisted || strings.HasSuffix(domain, "."+whitelisted) {
			if c.logger != nil {
				c.logger.Debug("Domain is whitelisted",
					zap.String("domain", domain),
					zap.String("email", from))
			}
			return true
		}
	}

	return false
}

// ExtractAddress strips a display name from "Name <addr>"
func ExtractAddress(s string) string {
	start := strings.LastIndex(s, "<")
	end := strings.LastIndex(s, ">")
	if start >= 0 && end > start {
		return s[start+1 : end]
	}
	return strings.TrimSpace(s)
}

func senderDomain(from string) (string, bool) {
	parts := strings.Split(ExtractAddress(from), "@")
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	return strings.ToLower(parts[1]), true
}
