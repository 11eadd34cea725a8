package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "plain domain", input: "example.com", expected: "example.com"},
		{name: "uppercase", input: "Example.COM", expected: "example.com"},
		{name: "strips scheme", input: "https://example.com", expected: "example.com"},
		{name: "strips path", input: "example.com/watch?v=abc", expected: "example.com"},
		{name: "strips port", input: "example.com:8080", expected: "example.com"},
		{name: "strips www", input: "www.example.com", expected: "example.com"},
		{name: "full url", input: "https://www.youtube.com/feed/trending", expected: "youtube.com"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "no dot", input: "localhost", wantErr: true},
		{name: "wildcard rejected", input: "*.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDomain(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizeDomains(t *testing.T) {
	got := NormalizeDomains([]string{"Example.com", "https://example.com", "bad", "other.org"})
	assert.Equal(t, []string{"example.com", "other.org"}, got)
}

func TestNormalizeRules(t *testing.T) {
	r := Normalize(BlockRules{
		BlockedChannels: []string{"gaming", "gaming", " ", "memes"},
		AllowedChannels: []string{"lectures"},
		BlockedDomains:  []string{"YouTube.com", "youtube.com"},
	})

	assert.Equal(t, []string{"gaming", "memes"}, r.BlockedChannels)
	assert.Equal(t, []string{"lectures"}, r.AllowedChannels)
	assert.Equal(t, []string{"youtube.com"}, r.BlockedDomains)
}

func TestEqual(t *testing.T) {
	a := BlockRules{BlockedDomains: []string{"a.com"}}
	b := BlockRules{BlockedDomains: []string{"a.com"}}
	c := BlockRules{BlockedDomains: []string{"b.com"}}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, BlockRules{}))
}
