// Package agency defines the per-agency intermediate record shapes produced
// by the out-of-scope collectors/parsers. One explicit variant per agency so
// a missing or renamed upstream field is a compile-time concern, not a silent
// nil at merge time.
package agency

// FDARecord is one parsed Drugs@FDA submission.
type FDARecord struct {
	GenericName          string   `json:"generic_name"`
	SubstanceNames       []string `json:"substance_name"`
	BrandName            string   `json:"brand_name"`
	ApplicationNumber    string   `json:"application_number"`
	SubmissionStatus     string   `json:"submission_status"`
	SubmissionStatusDate string   `json:"submission_status_date"`
	SubmissionClassCode  string   `json:"submission_class_code"`
	PharmClass           []string `json:"pharm_class"`
	Indication           string   `json:"indication"`
	SourceURL            string   `json:"source_url"`
}

// Ingredient returns the identity-anchoring name: the generic name, or the
// first substance name when the generic name is blank.
func (r FDARecord) Ingredient() string {
	if r.GenericName != "" {
		return r.GenericName
	}
	if len(r.SubstanceNames) > 0 {
		return r.SubstanceNames[0]
	}
	return ""
}

// EMARecord is one parsed EMA medicines-table row.
type EMARecord struct {
	INN                        string `json:"inn"`
	ActiveSubstance            string `json:"active_substance"`
	Name                       string `json:"name"`
	ProductNumber              string `json:"ema_product_number"`
	MedicineStatus             string `json:"medicine_status"`
	MarketingAuthorisationDate string `json:"marketing_authorisation_date"`
	ATCCode                    string `json:"atc_code"`
	TherapeuticArea            string `json:"therapeutic_area"`
	Orphan                     bool   `json:"is_orphan"`
	Accelerated                bool   `json:"is_accelerated"`
	PRIME                      bool   `json:"is_prime"`
	Conditional                bool   `json:"is_conditional"`
	SourceURL                  string `json:"source_url"`
}

// Ingredient returns the INN, falling back to the active substance.
func (r EMARecord) Ingredient() string {
	if r.INN != "" {
		return r.INN
	}
	return r.ActiveSubstance
}

// MFDSRecord is one parsed MFDS (Korean Ministry of Food and Drug Safety)
// permit row.
type MFDSRecord struct {
	MainIngredient string   `json:"main_ingredient"`
	Ingredients    []string `json:"ingredients"`
	ItemName       string   `json:"item_name"`
	ItemSeq        string   `json:"item_seq"`
	PermitDate     string   `json:"permit_date"`
	CancelName     string   `json:"cancel_name"`
	Valid          bool     `json:"is_valid"`
	Indication     string   `json:"indication"`
	Orphan         bool     `json:"is_orphan"`
	SourceURL      string   `json:"source_url"`
}

// Ingredient returns the main ingredient, falling back to the first entry of
// the ingredient list.
func (r MFDSRecord) Ingredient() string {
	if r.MainIngredient != "" {
		return r.MainIngredient
	}
	if len(r.Ingredients) > 0 {
		return r.Ingredients[0]
	}
	return ""
}
