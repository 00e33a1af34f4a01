package normalize

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type NormalizerSuite struct {
	suite.Suite
	norm *Normalizer
}

func TestNormalizerSuite(t *testing.T) {
	suite.Run(t, new(NormalizerSuite))
}

func (s *NormalizerSuite) SetupTest() {
	s.norm = New(DefaultSynonyms())
}

func (s *NormalizerSuite) TestNormalize() {
	s.Run("strips salt suffixes", func() {
		s.Equal("imatinib", s.norm.Normalize("Imatinib Mesylate"))
		s.Equal("imatinib", s.norm.Normalize("imatinib mesilate"))
		s.Equal("metformin", s.norm.Normalize("Metformin Hydrochloride"))
		s.Equal("metformin", s.norm.Normalize("metformin HCl"))
		s.Equal("naproxen", s.norm.Normalize("Naproxen Sodium"))
	})

	s.Run("strips form suffixes", func() {
		s.Equal("progesterone", s.norm.Normalize("Progesterone (Micronized)"))
		s.Equal("caffeine", s.norm.Normalize("caffeine anhydrous"))
	})

	s.Run("strips parenthetical content", func() {
		s.Equal("semaglutide", s.norm.Normalize("Semaglutide (rDNA origin)"))
	})

	s.Run("strips trailing comma clause", func() {
		s.Equal("insulin glargine", s.norm.Normalize("Insulin Glargine, Recombinant"))
	})

	s.Run("collapses whitespace", func() {
		s.Equal("drug name", s.norm.Normalize("  Drug   Name  "))
	})

	s.Run("empty input", func() {
		s.Equal("", s.norm.Normalize(""))
		s.Equal("", s.norm.Normalize("   "))
	})

	s.Run("idempotent", func() {
		for _, name := range []string{
			"Imatinib Mesylate",
			"Progesterone (Micronized)",
			"Insulin Glargine, Recombinant",
			"pembrolizumab",
		} {
			once := s.norm.Normalize(name)
			s.Equal(once, s.norm.Normalize(once), "not idempotent for %q", name)
		}
	})
}

func (s *NormalizerSuite) TestFindCanonical() {
	s.Run("canonical key resolves to itself", func() {
		s.Equal("pembrolizumab", s.norm.FindCanonical("Pembrolizumab"))
	})

	s.Run("brand synonym resolves to canonical", func() {
		s.Equal("pembrolizumab", s.norm.FindCanonical("Keytruda"))
		s.Equal("semaglutide", s.norm.FindCanonical("Ozempic"))
		s.Equal("semaglutide", s.norm.FindCanonical("Wegovy"))
	})

	s.Run("korean synonym resolves to canonical", func() {
		s.Equal("pembrolizumab", s.norm.FindCanonical("키트루다"))
		s.Equal("nivolumab", s.norm.FindCanonical("니볼루맙"))
	})

	s.Run("unknown name falls back to normalized form", func() {
		s.Equal("aspirin", s.norm.FindCanonical("Aspirin"))
	})
}

func (s *NormalizerSuite) TestMatch() {
	s.True(s.norm.Match("Keytruda", "pembrolizumab"))
	s.True(s.norm.Match("옵디보", "Opdivo"))
	s.True(s.norm.Match("Imatinib Mesylate", "imatinib"))
	s.False(s.norm.Match("pembrolizumab", "nivolumab"))
}

func (s *NormalizerSuite) TestFuzzyMatch() {
	candidates := []string{"pembrolizumab", "nivolumab", "semaglutide", "insulin glargine"}

	s.Run("canonical membership wins first", func() {
		s.Equal("pembrolizumab", s.norm.FuzzyMatch("Keytruda", candidates, 0.85))
	})

	s.Run("normalized membership", func() {
		s.Equal("nivolumab", s.norm.FuzzyMatch("Nivolumab", candidates, 0.85))
	})

	s.Run("shared prefix", func() {
		// "semagl" shares six characters with the stored key.
		s.Equal("semaglutide", s.norm.FuzzyMatch("semaglutide acetate complex", candidates, 0.99))
	})

	s.Run("token overlap", func() {
		s.Equal("insulin glargine", s.norm.FuzzyMatch("glargine insulin-detemir", candidates, 0.99))
	})

	s.Run("similarity ratio last resort", func() {
		// Differs within the first six characters so no earlier strategy
		// can claim it.
		s.Equal("nivolumab", s.norm.FuzzyMatch("nivalumab", candidates, 0.85))
	})

	s.Run("prefix counts runes, not bytes", func() {
		// Two hangul characters are six bytes; they must not satisfy the
		// six-character prefix rule.
		s.Equal("", s.norm.FuzzyMatch("키트", []string{"키트루다약품"}, 0.85))

		// Six full characters do.
		s.Equal("펨브롤리주맙정", s.norm.FuzzyMatch("펨브롤리주맙테스트", []string{"펨브롤리주맙정"}, 0.99))
	})

	s.Run("below threshold returns empty", func() {
		s.Equal("", s.norm.FuzzyMatch("zzzzzzz", candidates, 0.85))
	})

	s.Run("no candidates returns empty", func() {
		s.Equal("", s.norm.FuzzyMatch("pembrolizumab", nil, 0.85))
	})
}

func TestSimilarity(t *testing.T) {
	if got := similarity("abcd", "abcd"); got != 1 {
		t.Fatalf("identical strings: got %v", got)
	}
	if got := similarity("abcd", "abce"); got != 0.75 {
		t.Fatalf("one edit over four runes: got %v", got)
	}
	if got := similarity("", ""); got != 1 {
		t.Fatalf("empty strings: got %v", got)
	}
}
