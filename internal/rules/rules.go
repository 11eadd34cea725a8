// Package rules normalizes and validates the block rules exchanged with the
// enforcement agent: blocked domains plus channel allow/block lists.
package rules

import (
	"fmt"
	"strings"
)

// BlockRules is the rule set shared between the local store and the agent.
type BlockRules struct {
	BlockedChannels []string `json:"blockedChannels"`
	AllowedChannels []string `json:"allowedChannels"`
	BlockedDomains  []string `json:"blockedDomains"`
}

// NormalizeDomain lowercases a domain, strips any scheme, path, port, and a
// leading "www.", and validates the result. Returns an error for values that
// cannot name a host.
func NormalizeDomain(raw string) (string, error) {
	domain := strings.TrimSpace(strings.ToLower(raw))

	// Strip scheme and anything after the host
	if idx := strings.Index(domain, "://"); idx >= 0 {
		domain = domain[idx+3:]
	}
	if idx := strings.IndexAny(domain, "/?#"); idx >= 0 {
		domain = domain[:idx]
	}
	if idx := strings.Index(domain, ":"); idx >= 0 {
		domain = domain[:idx]
	}
	domain = strings.TrimPrefix(domain, "www.")
	domain = strings.Trim(domain, ".")

	if domain == "" {
		return "", fmt.Errorf("empty domain: %q", raw)
	}
	if !strings.Contains(domain, ".") {
		return "", fmt.Errorf("not a valid domain: %q", raw)
	}
	if strings.ContainsAny(domain, " \t*") {
		return "", fmt.Errorf("invalid characters in domain: %q", raw)
	}

	return domain, nil
}

// NormalizeDomains normalizes a list of domains, dropping invalid entries and
// duplicates while preserving order.
func NormalizeDomains(raw []string) []string {
	seen := make(map[string]bool)
	result := []string{}

	for _, r := range raw {
		domain, err := NormalizeDomain(r)
		if err != nil {
			continue
		}
		if !seen[domain] {
			seen[domain] = true
			result = append(result, domain)
		}
	}

	return result
}

// Normalize returns a copy of the rules with domains cleaned up and channel
// lists deduplicated.
func Normalize(r BlockRules) BlockRules {
	return BlockRules{
		BlockedChannels: dedupe(r.BlockedChannels),
		AllowedChannels: dedupe(r.AllowedChannels),
		BlockedDomains:  NormalizeDomains(r.BlockedDomains),
	}
}

// Equal reports whether two rule sets contain the same entries in the same order.
func Equal(a, b BlockRules) bool {
	return sliceEqual(a.BlockedChannels, b.BlockedChannels) &&
		sliceEqual(a.AllowedChannels, b.AllowedChannels) &&
		sliceEqual(a.BlockedDomains, b.BlockedDomains)
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dedupe(values []string) []string {
	seen := make(map[string]bool)
	result := []string{}

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}

	return result
}
