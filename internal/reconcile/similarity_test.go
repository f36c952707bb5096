package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenOverlap(t *testing.T) {
	tests := []struct {
		name     string
		a        Key
		b        Key
		expected float64
	}{
		{
			name:     "identical",
			a:        Normalize("Charlotte's Web", "E.B. White"),
			b:        Normalize("charlottes web", "EB White"),
			expected: 1.0,
		},
		{
			name:     "subset divides by larger count",
			a:        Normalize("Charlottes Web Activity Guide", "E.B. White"),
			b:        Normalize("Charlotte's Web", "E.B. White"),
			expected: 4.0 / 6.0,
		},
		{
			name:     "no shared tokens",
			a:        Normalize("Hop on Pop", "Dr. Seuss"),
			b:        Normalize("Charlotte's Web", "E.B. White"),
			expected: 0,
		},
		{
			name:     "repeated tokens only count as often as they appear on both sides",
			a:        Key("the the the|"),
			b:        Key("the cat|"),
			expected: 1.0 / 3.0,
		},
		{
			name:     "both empty",
			a:        Key("|"),
			b:        Key("|"),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, TokenOverlap(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.expected, TokenOverlap(tt.b, tt.a), 1e-9, "score must be symmetric")
		})
	}
}

func TestCanonicalISBN(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"0-06-440055-7", "9780064400558"},
		{"978-0-06-440055-8", "9780064400558"},
		{"0 8044 2957 x", "9780804429573"},
		{"0-06-440055-8", "0064400558"},
		{"006440055Y", "006440055Y"},
		{"not an isbn", "NOTANISBN"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, canonicalISBN(tt.in))
		})
	}
}

func TestValidISBN10(t *testing.T) {
	assert.True(t, validISBN10("0064400557"))
	assert.True(t, validISBN10("080442957X"))
	assert.False(t, validISBN10("0064400558"), "check digit off by one")
	assert.False(t, validISBN10("9780064400558"))
	assert.False(t, validISBN10("00644005X7"))
}

func TestEditSimilarity(t *testing.T) {
	same := Normalize("Charlotte's Web", "E.B. White")
	assert.Equal(t, 1.0, EditSimilarity(same, same))

	// "charlottes web|eb white" vs "charlotes web|eb white": one deletion over 23 runes
	typo := Normalize("Charlotes Web", "E.B. White")
	assert.InDelta(t, 1.0-1.0/23.0, EditSimilarity(same, typo), 1e-9)
	assert.InDelta(t, EditSimilarity(same, typo), EditSimilarity(typo, same), 1e-9)

	// The token scorer misses the same typo almost entirely
	assert.Less(t, TokenOverlap(same, typo), 0.8)

	assert.Equal(t, 0.0, EditSimilarity(Key("|"), Key("|")))
	assert.InDelta(t, 0.25, EditSimilarity(Key("abc|"), Key("xyz|")), 1e-9)
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"émile", "emile", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, levenshteinDistance([]rune(tt.a), []rune(tt.b)), "%s/%s", tt.a, tt.b)
	}
}

func TestScorerByName(t *testing.T) {
	for _, name := range []string{"", "token", "Token_Overlap", "edit", "levenshtein"} {
		s, err := ScorerByName(name)
		assert.NoError(t, err, name)
		assert.NotNil(t, s)
	}

	_, err := ScorerByName("cosine")
	assert.Error(t, err)
}
