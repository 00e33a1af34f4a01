// Package status holds the canonical per-drug regulatory record merged from
// all agency sources, and the store contract for persisting it.
package status

import "time"

// Agency identifies a regulatory body tracked by this system.
type Agency string

const (
	AgencyFDA  Agency = "fda"
	AgencyEMA  Agency = "ema"
	AgencyMFDS Agency = "mfds"
)

// Agencies lists all tracked agencies in evaluation order. Scoring and
// change detection iterate this slice so their output ordering is stable.
var Agencies = []Agency{AgencyFDA, AgencyEMA, AgencyMFDS}

// ApprovalStatus is one agency's view of a drug's approval state. An absent
// Approval is distinct from an explicit rejected/withdrawn status.
type ApprovalStatus string

const (
	StatusApproved     ApprovalStatus = "approved"
	StatusPending      ApprovalStatus = "pending"
	StatusRejected     ApprovalStatus = "rejected"
	StatusWithdrawn    ApprovalStatus = "withdrawn"
	StatusNotSubmitted ApprovalStatus = "not_submitted"
	StatusUnknown      ApprovalStatus = "unknown"
)

// HotIssueLevel is the four-bucket category derived from the global score.
type HotIssueLevel string

const (
	LevelHot  HotIssueLevel = "HOT"  // 80+
	LevelHigh HotIssueLevel = "HIGH" // 60-79
	LevelMid  HotIssueLevel = "MID"  // 40-59
	LevelLow  HotIssueLevel = "LOW"  // below 40
)

// LevelFor buckets a global score into its hot-issue level.
func LevelFor(score int) HotIssueLevel {
	switch {
	case score >= 80:
		return LevelHot
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMid
	default:
		return LevelLow
	}
}

// Approval is one agency's fact about one drug. Immutable once built by its
// agency-specific builder in the merge package.
type Approval struct {
	Agency            Agency
	Status            ApprovalStatus
	ApprovalDate      *time.Time
	ApplicationNumber string
	BrandName         string
	Indication        string

	Orphan       bool
	Accelerated  bool
	Breakthrough bool
	Priority     bool
	PRIME        bool
	Conditional  bool
	FastTrack    bool

	SourceURL string
}

// ExpeditedPathway reports whether any fast-review designation applies.
func (a Approval) ExpeditedPathway() bool {
	return a.Accelerated || a.Breakthrough || a.Priority || a.PRIME || a.FastTrack
}

// GlobalStatus is the canonical per-drug record. Exactly one exists per
// NormalizedName; score, level and reasons are always recomputed whenever
// the approvals change, never patched independently.
type GlobalStatus struct {
	INN            string
	NormalizedName string
	ATCCode        string

	FDA  *Approval
	EMA  *Approval
	MFDS *Approval

	WHOEssential bool

	GlobalScore     int
	HotIssueLevel   HotIssueLevel
	HotIssueReasons []string

	LastUpdated time.Time
}

// Approval returns the slot for the given agency, nil when that agency has
// contributed nothing yet.
func (s *GlobalStatus) Approval(agency Agency) *Approval {
	switch agency {
	case AgencyFDA:
		return s.FDA
	case AgencyEMA:
		return s.EMA
	case AgencyMFDS:
		return s.MFDS
	}
	return nil
}

// SetApproval fills the slot for the approval's agency.
func (s *GlobalStatus) SetApproval(a *Approval) {
	if a == nil {
		return
	}
	switch a.Agency {
	case AgencyFDA:
		s.FDA = a
	case AgencyEMA:
		s.EMA = a
	case AgencyMFDS:
		s.MFDS = a
	}
}

// ApprovedAgencies lists agencies whose status is approved, in the fixed
// agency order.
func (s *GlobalStatus) ApprovedAgencies() []Agency {
	var out []Agency
	for _, agency := range Agencies {
		if a := s.Approval(agency); a != nil && a.Status == StatusApproved {
			out = append(out, agency)
		}
	}
	return out
}

// ApprovalCount is the number of approving agencies.
func (s *GlobalStatus) ApprovalCount() int {
	return len(s.ApprovedAgencies())
}

// FirstApprovalDate returns the earliest known approval date across
// agencies, nil when no agency has a known date.
func (s *GlobalStatus) FirstApprovalDate() *time.Time {
	var first *time.Time
	for _, agency := range Agencies {
		a := s.Approval(agency)
		if a == nil || a.ApprovalDate == nil {
			continue
		}
		if first == nil || a.ApprovalDate.Before(*first) {
			first = a.ApprovalDate
		}
	}
	if first == nil {
		return nil
	}
	t := *first
	return &t
}

// ToMap flattens the record into primitive values for the reporting/API
// layers, including nested per-agency sub-maps.
func (s *GlobalStatus) ToMap() map[string]any {
	approved := s.ApprovedAgencies()
	agencies := make([]string, len(approved))
	for i, a := range approved {
		agencies[i] = string(a)
	}

	return map[string]any{
		"inn":               s.INN,
		"normalized_name":   s.NormalizedName,
		"atc_code":          s.ATCCode,
		"fda":               approvalMap(s.FDA),
		"ema":               approvalMap(s.EMA),
		"mfds":              approvalMap(s.MFDS),
		"who_eml":           s.WHOEssential,
		"approved_agencies": agencies,
		"approval_count":    len(approved),
		"global_score":      s.GlobalScore,
		"hot_issue_level":   string(s.HotIssueLevel),
		"hot_issue_reasons": s.HotIssueReasons,
		"last_updated":      s.LastUpdated.Format(time.RFC3339),
	}
}

func approvalMap(a *Approval) map[string]any {
	if a == nil {
		return nil
	}
	var date any
	if a.ApprovalDate != nil {
		date = a.ApprovalDate.Format("2006-01-02")
	}
	return map[string]any{
		"agency":             string(a.Agency),
		"status":             string(a.Status),
		"approval_date":      date,
		"application_number": a.ApplicationNumber,
		"brand_name":         a.BrandName,
		"indication":         a.Indication,
		"is_orphan":          a.Orphan,
		"expedited_pathway":  a.ExpeditedPathway(),
		"source_url":         a.SourceURL,
	}
}

// Clone returns a deep copy so stores can hand out values without aliasing
// the caller's record.
func (s *GlobalStatus) Clone() *GlobalStatus {
	cp := *s
	cp.FDA = cloneApproval(s.FDA)
	cp.EMA = cloneApproval(s.EMA)
	cp.MFDS = cloneApproval(s.MFDS)
	cp.HotIssueReasons = append([]string(nil), s.HotIssueReasons...)
	return &cp
}

func cloneApproval(a *Approval) *Approval {
	if a == nil {
		return nil
	}
	cp := *a
	if a.ApprovalDate != nil {
		t := *a.ApprovalDate
		cp.ApprovalDate = &t
	}
	return &cp
}
