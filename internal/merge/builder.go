// Package merge turns per-agency feed records into canonical drug records:
// one builder per agency plus the cross-feed merge that unions them by
// normalized ingredient name.
package merge

import (
	"strings"
	"time"

	"regscope/internal/agency"
	"regscope/internal/normalize"
	"regscope/internal/score"
	"regscope/internal/status"
)

// Builder assembles GlobalStatus records from agency feed rows. Every built
// record carries a freshly computed score, level and reason list.
type Builder struct {
	norm   *normalize.Normalizer
	scorer *score.Scorer
}

func NewBuilder(norm *normalize.Normalizer, scorer *score.Scorer) *Builder {
	return &Builder{norm: norm, scorer: scorer}
}

// Build merges one row per agency into a canonical record. Any of the three
// inputs may be nil. The INN is taken from the first agency that has one,
// in FDA, EMA, MFDS order; the ATC code comes from EMA only.
func (b *Builder) Build(fda *agency.FDARecord, ema *agency.EMARecord, mfds *agency.MFDSRecord) *status.GlobalStatus {
	inn := ""
	if fda != nil {
		inn = fda.Ingredient()
	}
	if inn == "" && ema != nil {
		inn = ema.Ingredient()
	}
	if inn == "" && mfds != nil {
		inn = mfds.Ingredient()
	}

	s := &status.GlobalStatus{
		INN:            inn,
		NormalizedName: b.norm.Normalize(inn),
		LastUpdated:    time.Now().UTC(),
	}
	if ema != nil {
		s.ATCCode = ema.ATCCode
	}

	if fda != nil {
		s.FDA = buildFDA(fda)
	}
	if ema != nil {
		s.EMA = buildEMA(ema)
	}
	if mfds != nil {
		s.MFDS = buildMFDS(mfds)
	}

	b.scorer.Apply(s)
	return s
}

func buildFDA(r *agency.FDARecord) *status.Approval {
	st := status.StatusApproved
	submission := strings.ToLower(r.SubmissionStatus)
	switch {
	case strings.Contains(submission, "withdraw"):
		st = status.StatusWithdrawn
	case strings.Contains(submission, "pending"):
		st = status.StatusPending
	}

	class := r.SubmissionClassCode
	pharmClass := strings.ToLower(strings.Join(r.PharmClass, " "))

	return &status.Approval{
		Agency:            status.AgencyFDA,
		Status:            st,
		ApprovalDate:      agency.ParseDate(r.SubmissionStatusDate).Ptr(),
		ApplicationNumber: r.ApplicationNumber,
		BrandName:         r.BrandName,
		Indication:        r.Indication,
		Orphan:            strings.Contains(pharmClass, "orphan"),
		Accelerated:       class == "AA" || class == "4",
		Breakthrough:      class == "5",
		Priority:          class == "1" || class == "P",
		SourceURL:         r.SourceURL,
	}
}

func buildEMA(r *agency.EMARecord) *status.Approval {
	medicineStatus := strings.ToLower(r.MedicineStatus)
	var st status.ApprovalStatus
	switch {
	case medicineStatus == "authorised":
		st = status.StatusApproved
	case medicineStatus == "withdrawn":
		st = status.StatusWithdrawn
	case strings.Contains(medicineStatus, "pending"),
		strings.Contains(medicineStatus, "under"):
		st = status.StatusPending
	default:
		st = status.StatusUnknown
	}

	// Therapeutic area is a ;-separated list; only the lead entry is the
	// primary indication.
	indication := r.TherapeuticArea
	if i := strings.Index(indication, ";"); i >= 0 {
		indication = indication[:i]
	}
	indication = strings.TrimSpace(indication)

	return &status.Approval{
		Agency:            status.AgencyEMA,
		Status:            st,
		ApprovalDate:      agency.ParseDate(r.MarketingAuthorisationDate).Ptr(),
		ApplicationNumber: r.ProductNumber,
		BrandName:         r.Name,
		Indication:        indication,
		Orphan:            r.Orphan,
		Accelerated:       r.Accelerated,
		PRIME:             r.PRIME,
		Conditional:       r.Conditional,
		SourceURL:         r.SourceURL,
	}
}

func buildMFDS(r *agency.MFDSRecord) *status.Approval {
	date := agency.ParseDate(r.PermitDate)

	var st status.ApprovalStatus
	switch {
	case r.Valid && date.State == agency.DateKnown:
		st = status.StatusApproved
	case strings.Contains(r.CancelName, "취소"),
		strings.Contains(r.CancelName, "철회"):
		st = status.StatusWithdrawn
	case date.State != agency.DateKnown:
		st = status.StatusPending
	default:
		st = status.StatusUnknown
	}

	return &status.Approval{
		Agency:            status.AgencyMFDS,
		Status:            st,
		ApprovalDate:      date.Ptr(),
		ApplicationNumber: r.ItemSeq,
		BrandName:         r.ItemName,
		Indication:        r.Indication,
		Orphan:            r.Orphan,
		SourceURL:         r.SourceURL,
	}
}
