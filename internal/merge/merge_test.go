package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"regscope/internal/agency"
	"regscope/internal/normalize"
	"regscope/internal/score"
	"regscope/internal/status"
)

type MergeSuite struct {
	suite.Suite
	merger *Merger
}

func TestMergeSuite(t *testing.T) {
	suite.Run(t, new(MergeSuite))
}

func (s *MergeSuite) SetupTest() {
	s.merger = NewMerger(NewBuilder(normalize.New(normalize.DefaultSynonyms()), score.New()))
}

func fdaRecord(name string) agency.FDARecord {
	return agency.FDARecord{
		GenericName:          name,
		BrandName:            name + " brand",
		ApplicationNumber:    "NDA-001",
		SubmissionStatus:     "AP",
		SubmissionStatusDate: "20230301",
	}
}

func emaRecord(name string) agency.EMARecord {
	return agency.EMARecord{
		INN:                        name,
		Name:                       name + " eu",
		ProductNumber:              "EMEA/H/C/001",
		MedicineStatus:             "Authorised",
		MarketingAuthorisationDate: "2023-06-01",
		ATCCode:                    "L01XC18",
		TherapeuticArea:            "Carcinoma; Melanoma",
	}
}

func mfdsRecord(name string) agency.MFDSRecord {
	return agency.MFDSRecord{
		MainIngredient: name,
		ItemName:       name + " 주",
		ItemSeq:        "202300001",
		PermitDate:     "2023.09.01",
		Valid:          true,
	}
}

func (s *MergeSuite) TestBuildFDA() {
	s.Run("default status is approved", func() {
		rec := fdaRecord("imatinib mesylate")
		gs := s.merger.builder.Build(&rec, nil, nil)

		s.Equal("imatinib mesylate", gs.INN)
		s.Equal("imatinib", gs.NormalizedName)
		s.Require().NotNil(gs.FDA)
		s.Equal(status.StatusApproved, gs.FDA.Status)
		s.Equal("NDA-001", gs.FDA.ApplicationNumber)
		s.NotNil(gs.FDA.ApprovalDate)
	})

	s.Run("withdrawn and pending submissions", func() {
		rec := fdaRecord("drug a")
		rec.SubmissionStatus = "Withdrawn"
		gs := s.merger.builder.Build(&rec, nil, nil)
		s.Equal(status.StatusWithdrawn, gs.FDA.Status)

		rec.SubmissionStatus = "Pending review"
		gs = s.merger.builder.Build(&rec, nil, nil)
		s.Equal(status.StatusPending, gs.FDA.Status)
	})

	s.Run("submission class designations", func() {
		for _, tc := range []struct {
			class string
			check func(a *status.Approval) bool
		}{
			{"AA", func(a *status.Approval) bool { return a.Accelerated }},
			{"4", func(a *status.Approval) bool { return a.Accelerated }},
			{"5", func(a *status.Approval) bool { return a.Breakthrough }},
			{"1", func(a *status.Approval) bool { return a.Priority }},
			{"P", func(a *status.Approval) bool { return a.Priority }},
		} {
			rec := fdaRecord("drug b")
			rec.SubmissionClassCode = tc.class
			gs := s.merger.builder.Build(&rec, nil, nil)
			s.True(tc.check(gs.FDA), "class %q", tc.class)
		}
	})

	s.Run("orphan from pharm class", func() {
		rec := fdaRecord("drug c")
		rec.PharmClass = []string{"Kinase Inhibitor", "Orphan Drug"}
		gs := s.merger.builder.Build(&rec, nil, nil)
		s.True(gs.FDA.Orphan)
	})
}

func (s *MergeSuite) TestBuildEMA() {
	s.Run("authorised maps to approved with atc and lead indication", func() {
		rec := emaRecord("pembrolizumab")
		gs := s.merger.builder.Build(nil, &rec, nil)

		s.Equal("pembrolizumab", gs.NormalizedName)
		s.Equal("L01XC18", gs.ATCCode)
		s.Require().NotNil(gs.EMA)
		s.Equal(status.StatusApproved, gs.EMA.Status)
		s.Equal("Carcinoma", gs.EMA.Indication)
	})

	s.Run("status mapping", func() {
		for raw, want := range map[string]status.ApprovalStatus{
			"Withdrawn":        status.StatusWithdrawn,
			"Pending decision": status.StatusPending,
			"Under evaluation": status.StatusPending,
			"Refused":          status.StatusUnknown,
		} {
			rec := emaRecord("drug d")
			rec.MedicineStatus = raw
			gs := s.merger.builder.Build(nil, &rec, nil)
			s.Equal(want, gs.EMA.Status, "medicine status %q", raw)
		}
	})
}

func (s *MergeSuite) TestBuildMFDS() {
	s.Run("valid dated permit is approved", func() {
		rec := mfdsRecord("belumosudil")
		gs := s.merger.builder.Build(nil, nil, &rec)

		s.Equal("belumosudil", gs.NormalizedName)
		s.Require().NotNil(gs.MFDS)
		s.Equal(status.StatusApproved, gs.MFDS.Status)
		s.Equal("202300001", gs.MFDS.ApplicationNumber)
	})

	s.Run("cancelled permit is withdrawn", func() {
		rec := mfdsRecord("drug e")
		rec.Valid = false
		rec.CancelName = "유효기간만료로 취소"
		gs := s.merger.builder.Build(nil, nil, &rec)
		s.Equal(status.StatusWithdrawn, gs.MFDS.Status)
	})

	s.Run("undated permit is pending", func() {
		rec := mfdsRecord("drug f")
		rec.PermitDate = ""
		rec.Valid = false
		gs := s.merger.builder.Build(nil, nil, &rec)
		s.Equal(status.StatusPending, gs.MFDS.Status)
	})
}

func (s *MergeSuite) TestMergeUnionsAcrossFeeds() {
	batch := Batch{
		FDA:  []agency.FDARecord{fdaRecord("Pembrolizumab (rDNA)"), fdaRecord("aspirin")},
		EMA:  []agency.EMARecord{emaRecord("pembrolizumab"), emaRecord("semaglutide")},
		MFDS: []agency.MFDSRecord{mfdsRecord("Pembrolizumab")},
	}

	out := s.merger.Merge(batch)
	s.Require().Len(out, 3)

	byName := map[string]*status.GlobalStatus{}
	for _, gs := range out {
		byName[gs.NormalizedName] = gs
	}

	// Case and form variations collapse onto the same identity key.
	pembro := byName["pembrolizumab"]
	s.Require().NotNil(pembro)
	s.NotNil(pembro.FDA)
	s.NotNil(pembro.EMA)
	s.NotNil(pembro.MFDS)

	s.NotNil(byName["aspirin"])
	s.NotNil(byName["semaglutide"])
}

func (s *MergeSuite) TestMergeKeepsFirstMFDSProduct() {
	first := mfdsRecord("semaglutide")
	second := mfdsRecord("semaglutide")
	second.ItemName = "later product"

	out := s.merger.Merge(Batch{MFDS: []agency.MFDSRecord{first, second}})
	s.Require().Len(out, 1)
	s.Equal("semaglutide 주", out[0].MFDS.BrandName)
}

func (s *MergeSuite) TestMergeOrderIndependent() {
	batch := Batch{
		FDA:  []agency.FDARecord{fdaRecord("zidovudine"), fdaRecord("aspirin")},
		EMA:  []agency.EMARecord{emaRecord("metformin"), emaRecord("zidovudine")},
		MFDS: []agency.MFDSRecord{mfdsRecord("aspirin")},
	}
	reversed := Batch{
		FDA:  []agency.FDARecord{batch.FDA[1], batch.FDA[0]},
		EMA:  []agency.EMARecord{batch.EMA[1], batch.EMA[0]},
		MFDS: batch.MFDS,
	}

	a := s.merger.Merge(batch)
	b := s.merger.Merge(reversed)

	s.Require().Equal(len(a), len(b))
	for i := range a {
		s.Equal(a[i].NormalizedName, b[i].NormalizedName)
		s.Equal(a[i].GlobalScore, b[i].GlobalScore)
		s.Equal(a[i].HotIssueReasons, b[i].HotIssueReasons)
	}
}

func (s *MergeSuite) TestMergeSkipsNamelessRows() {
	out := s.merger.Merge(Batch{FDA: []agency.FDARecord{{BrandName: "no name"}}})
	s.Empty(out)
}

func (s *MergeSuite) TestEnrichMFDS() {
	base := s.merger.Merge(Batch{
		FDA: []agency.FDARecord{fdaRecord("belumosudil")},
		EMA: []agency.EMARecord{emaRecord("belumosudil")},
	})
	s.Require().Len(base, 1)
	before := base[0].GlobalScore
	s.Nil(base[0].MFDS)

	s.merger.EnrichMFDS(base, []agency.MFDSRecord{mfdsRecord("Belumosudil Mesylate")})

	s.Require().NotNil(base[0].MFDS)
	s.Greater(base[0].GlobalScore, before)

	s.Run("populated slot is untouched", func() {
		kept := base[0].MFDS
		other := mfdsRecord("belumosudil")
		other.ItemName = "replacement"
		s.merger.EnrichMFDS(base, []agency.MFDSRecord{other})
		s.Same(kept, base[0].MFDS)
	})
}

func (s *MergeSuite) TestBuildSetsLastUpdated() {
	rec := fdaRecord("drug g")
	gs := s.merger.builder.Build(&rec, nil, nil)
	s.WithinDuration(time.Now().UTC(), gs.LastUpdated, time.Minute)
}
