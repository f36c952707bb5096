package reconcile

import (
	"fmt"
	"strings"
)

// Scorer rates how similar two keys are, from 0.0 (unrelated) to 1.0 (identical).
type Scorer func(a, b Key) float64

// DefaultThreshold is the minimum score for a possible match.
const DefaultThreshold = 0.6

// TokenOverlap counts the tokens two keys share (respecting repeats) and
// divides by the larger of the two token counts.
func TokenOverlap(a, b Key) float64 {
	tokensA := a.Tokens()
	tokensB := b.Tokens()

	larger := max(len(tokensA), len(tokensB))
	if larger == 0 {
		return 0
	}

	counts := make(map[string]int, len(tokensA))
	for _, t := range tokensA {
		counts[t]++
	}

	shared := 0
	for _, t := range tokensB {
		if counts[t] > 0 {
			counts[t]--
			shared++
		}
	}

	return float64(shared) / float64(larger)
}

// EditSimilarity scores keys by Levenshtein distance over runes, scaled by
// the longer key: 1 - distance/maxLen. It tolerates typos that break tokens
// apart, at the cost of also rewarding unrelated titles of similar length.
func EditSimilarity(a, b Key) float64 {
	if len(a.Tokens()) == 0 && len(b.Tokens()) == 0 {
		return 0
	}

	ra := []rune(string(a))
	rb := []rune(string(b))
	longer := max(len(ra), len(rb))

	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(longer)
}

func levenshteinDistance(s1, s2 []rune) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Two rows of the edit matrix are enough
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// ScorerByName resolves a configured scorer name.
func ScorerByName(name string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "token", "token_overlap":
		return TokenOverlap, nil
	case "edit", "levenshtein":
		return EditSimilarity, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q (supported: token, edit)", name)
	}
}
