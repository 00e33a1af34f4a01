// Package normalize canonicalizes free-text drug names into the identity key
// used to decide "same drug" across regulatory agencies.
package normalize

import (
	"regexp"
	"strings"
)

// Suffix patterns stripped from raw names, applied in order: salt/ester
// forms, hydrate forms, parenthetical content, then any trailing comma
// clause. The order matters for names like "imatinib mesylate (micronized)".
var suffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*(mesylate|mesilate|maleate|hydrochloride|hcl|sulfate|sodium|potassium)\s*`),
	regexp.MustCompile(`(?i)\s*(micronized|anhydrous|hydrate|dihydrate)\s*`),
	regexp.MustCompile(`\s*\(.*\)\s*`),
	regexp.MustCompile(`\s*,.*$`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SynonymTable maps a canonical ingredient name to its known synonyms:
// brand names, abbreviations, and foreign-script transliterations. It is
// immutable after construction and passed into the Normalizer explicitly.
type SynonymTable map[string][]string

// DefaultSynonyms returns the built-in synonym table. Callers that track
// additional drugs supply their own table instead of mutating this one.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		"pembrolizumab": {"keytruda", "펨브롤리주맙", "키트루다"},
		"nivolumab":     {"opdivo", "니볼루맙", "옵디보"},
		"semaglutide":   {"ozempic", "wegovy", "세마글루티드", "오젬픽"},
		"belumosudil":   {"rezurock", "벨루모수딜", "레주록"},
		"trastuzumab":   {"herceptin", "트라스투주맙", "허셉틴"},
	}
}

// Normalizer resolves drug-name spellings to a canonical identity key.
type Normalizer struct {
	synonyms SynonymTable
	// reverse index: lowercased synonym -> canonical key
	bySynonym map[string]string
}

// New builds a Normalizer over the given synonym table. A nil table means
// no synonym resolution, only textual normalization.
func New(synonyms SynonymTable) *Normalizer {
	n := &Normalizer{
		synonyms:  synonyms,
		bySynonym: make(map[string]string),
	}
	for canonical, syns := range synonyms {
		for _, s := range syns {
			n.bySynonym[strings.ToLower(s)] = canonical
		}
	}
	return n
}

// Normalize lower-cases, strips form suffixes and parenthetical content,
// and collapses whitespace. Idempotent: Normalize(Normalize(x)) ==
// Normalize(x). Empty input yields the empty string.
func (n *Normalizer) Normalize(name string) string {
	if name == "" {
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, pattern := range suffixPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(normalized, " "))
}

// FindCanonical resolves a name through the synonym table: an exact
// case-insensitive match on a canonical key or any synonym returns the
// canonical key. Otherwise the normalized name is the key.
func (n *Normalizer) FindCanonical(name string) string {
	normalized := n.Normalize(name)

	if _, ok := n.synonyms[normalized]; ok {
		return normalized
	}
	if canonical, ok := n.bySynonym[normalized]; ok {
		return canonical
	}
	return normalized
}

// Match reports whether two names resolve to the same drug.
func (n *Normalizer) Match(a, b string) bool {
	return n.FindCanonical(a) == n.FindCanonical(b)
}
