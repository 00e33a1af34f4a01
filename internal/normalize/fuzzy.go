package normalize

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

const (
	prefixLength      = 6
	tokenOverlapRatio = 0.5
)

// FuzzyMatch tries to resolve name against a candidate set of identity
// keys. Strategies run in a fixed order and the first hit wins:
//
//  1. canonical key membership
//  2. normalized name membership
//  3. shared 6-character prefix (normalized name must be at least 6 long)
//  4. token overlap (split on space/hyphen/slash; shared tokens over the
//     larger token set must reach 0.5 with at least one shared token)
//  5. similarity ratio against every candidate, best match wins if its
//     ratio reaches threshold
//
// Returns "" when nothing qualifies.
func (n *Normalizer) FuzzyMatch(name string, candidates []string, threshold float64) string {
	canonical := n.FindCanonical(name)
	normalized := n.Normalize(name)

	for _, c := range candidates {
		if c == canonical {
			return c
		}
	}
	for _, c := range candidates {
		if c == normalized {
			return c
		}
	}

	// Prefix length counts runes, not bytes, so Korean names neither slice
	// mid-rune nor pass the gate at two characters.
	if runes := []rune(normalized); len(runes) >= prefixLength {
		prefix := string(runes[:prefixLength])
		for _, c := range candidates {
			if strings.HasPrefix(c, prefix) {
				return c
			}
		}
	}

	nameTokens := tokenize(normalized)
	for _, c := range candidates {
		if overlap(nameTokens, tokenize(c)) >= tokenOverlapRatio {
			return c
		}
	}

	best := ""
	bestRatio := 0.0
	for _, c := range candidates {
		if r := similarity(normalized, c); r > bestRatio {
			best = c
			bestRatio = r
		}
	}
	if bestRatio >= threshold {
		return best
	}
	return ""
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/'
	}) {
		tokens[t] = struct{}{}
	}
	return tokens
}

// overlap returns shared tokens over the larger set size; zero when either
// set is empty or nothing is shared.
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(shared) / float64(larger)
}

// similarity is an edit-distance ratio in [0,1]: 1 minus the Levenshtein
// distance over the longer string length.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	longer := len([]rune(a))
	if l := len([]rune(b)); l > longer {
		longer = l
	}
	if longer == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longer)
}
