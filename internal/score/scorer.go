// Package score computes the global hot-issue score for a merged drug
// record. Scoring is purely additive over a fixed weight table, so the same
// record always yields the same score and reason list.
package score

import (
	"fmt"
	"strings"

	"regscope/internal/status"
)

// Weight table. Grouped by concern; each group has an effective cap implied
// by which designations can co-occur.
const (
	weightFDAApproved     = 10
	weightFDABreakthrough = 15
	weightFDAAccelerated  = 10
	weightFDAPriority     = 5
	weightFDAFastTrack    = 5

	weightEMAApproved    = 10
	weightEMAPRIME       = 15
	weightEMAAccelerated = 10
	weightEMAConditional = 5

	weightMFDSApproved = 5
	weightMFDSOrphan   = 10

	weightMultiApproval3   = 10
	weightMultiApproval4   = 10
	weightFDAEMAConcurrent = 10

	weightOrphanDrug   = 15
	weightWHOEssential = 10

	weightMajorDisease = 10

	maxScore = 100

	// FDA and EMA approvals within this window count as near-concurrent.
	concurrentWindowDays = 365
)

// majorDiseaseKeywords are matched case-insensitively against every
// agency's indication text.
var majorDiseaseKeywords = []string{
	"cancer", "neoplasm", "tumor", "oncolog", "leukemia", "lymphoma",
	"alzheimer", "dementia",
	"diabetes",
	"heart failure", "cardiovascular",
	"hiv", "aids",
	"hepatitis",
	"covid", "sars-cov",
}

// Scorer produces the global score, reasons and level for a drug record.
type Scorer struct{}

func New() *Scorer {
	return &Scorer{}
}

// Calculate returns the additive score clamped to [0,100] and the ordered
// list of reason labels, one per contributing rule.
func (sc *Scorer) Calculate(s *status.GlobalStatus) (int, []string) {
	score := 0
	var reasons []string

	add := func(weight int, reason string) {
		score += weight
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	if fda := s.FDA; fda != nil {
		if fda.Status == status.StatusApproved {
			add(weightFDAApproved, "FDA approved")
		}
		if fda.Breakthrough {
			add(weightFDABreakthrough, "FDA breakthrough")
		}
		if fda.Accelerated {
			add(weightFDAAccelerated, "FDA accelerated")
		}
		if fda.Priority {
			add(weightFDAPriority, "FDA priority review")
		}
		if fda.FastTrack {
			add(weightFDAFastTrack, "FDA fast track")
		}
	}

	if ema := s.EMA; ema != nil {
		if ema.Status == status.StatusApproved {
			add(weightEMAApproved, "EMA approved")
		}
		if ema.PRIME {
			add(weightEMAPRIME, "EMA PRIME")
		}
		if ema.Accelerated {
			add(weightEMAAccelerated, "EMA accelerated")
		}
		if ema.Conditional {
			add(weightEMAConditional, "EMA conditional")
		}
	}

	if mfds := s.MFDS; mfds != nil {
		if mfds.Status == status.StatusApproved {
			add(weightMFDSApproved, "MFDS approved")
		}
		if mfds.Orphan {
			add(weightMFDSOrphan, "MFDS orphan")
		}
	}

	count := s.ApprovalCount()
	if count >= 3 {
		add(weightMultiApproval3, approvedInLabel(count))
	}
	if count >= 4 {
		add(weightMultiApproval4, "")
	}

	if nearConcurrent(s.FDA, s.EMA) {
		add(weightFDAEMAConcurrent, "FDA+EMA near-concurrent approval")
	}

	if anyOrphan(s) {
		add(weightOrphanDrug, "orphan drug")
	}

	if s.WHOEssential {
		add(weightWHOEssential, "WHO essential medicine")
	}

	if hasMajorDiseaseIndication(s) {
		add(weightMajorDisease, "major disease indication")
	}

	if score > maxScore {
		score = maxScore
	}
	return score, reasons
}

// Apply recomputes and stores the score, level and reasons on the record.
func (sc *Scorer) Apply(s *status.GlobalStatus) {
	score, reasons := sc.Calculate(s)
	s.GlobalScore = score
	s.HotIssueLevel = status.LevelFor(score)
	s.HotIssueReasons = reasons
}

func approvedInLabel(count int) string {
	return fmt.Sprintf("approved in %d agencies", count)
}

func nearConcurrent(fda, ema *status.Approval) bool {
	if fda == nil || ema == nil {
		return false
	}
	if fda.Status != status.StatusApproved || ema.Status != status.StatusApproved {
		return false
	}
	if fda.ApprovalDate == nil || ema.ApprovalDate == nil {
		return false
	}
	diff := fda.ApprovalDate.Sub(*ema.ApprovalDate)
	if diff < 0 {
		diff = -diff
	}
	return diff.Hours() <= concurrentWindowDays*24
}

func anyOrphan(s *status.GlobalStatus) bool {
	for _, agency := range status.Agencies {
		if a := s.Approval(agency); a != nil && a.Orphan {
			return true
		}
	}
	return false
}

func hasMajorDiseaseIndication(s *status.GlobalStatus) bool {
	var b strings.Builder
	for _, agency := range status.Agencies {
		if a := s.Approval(agency); a != nil && a.Indication != "" {
			b.WriteString(" ")
			b.WriteString(strings.ToLower(a.Indication))
		}
	}
	text := b.String()
	if text == "" {
		return false
	}
	for _, kw := range majorDiseaseKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
