package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMeaningfulTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "plain name",
			input:    "Jane Smith",
			expected: []string{"jane", "smith"},
		},
		{
			name:     "honorific removed",
			input:    "Dr. Jane Smith",
			expected: []string{"jane", "smith"},
		},
		{
			name:     "company suffix removed",
			input:    "Acme Inc",
			expected: []string{"acme"},
		},
		{
			name:     "duplicates collapsed",
			input:    "smith smith Smith",
			expected: []string{"smith"},
		},
		{
			name:     "punctuation split",
			input:    "jane.smith@example.com",
			expected: []string{"jane", "smith", "example", "com"},
		},
		{
			name:     "empty",
			input:    "   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractMeaningfulTokens(tt.input))
		})
	}
}

func TestBuildTokenSet(t *testing.T) {
	set := BuildTokenSet("Jane Smith", "jane@example.com")

	assert.Contains(t, set, "jane")
	assert.Contains(t, set, "smith")
	assert.Contains(t, set, "example")
	assert.NotContains(t, set, "Jane")
}

func TestTokenOverlap(t *testing.T) {
	tests := []struct {
		name     string
		a        []string
		b        []string
		expected float64
	}{
		{"identical", []string{"jane", "smith"}, []string{"jane", "smith"}, 1.0},
		{"disjoint", []string{"jane"}, []string{"john"}, 0.0},
		{"half overlap", []string{"jane", "smith"}, []string{"jane", "doe"}, 1.0 / 3.0},
		{"empty side", nil, []string{"jane"}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := BuildTokenSet(tt.a...)
			b := BuildTokenSet(tt.b...)
			assert.InDelta(t, tt.expected, TokenOverlap(a, b), 0.0001)
		})
	}
}
