package merge

import (
	"sort"

	"regscope/internal/agency"
	"regscope/internal/status"
)

// Batch is one pipeline run's worth of parsed agency feeds.
type Batch struct {
	FDA  []agency.FDARecord
	EMA  []agency.EMARecord
	MFDS []agency.MFDSRecord
}

// Merger unions the three feeds into one canonical record per normalized
// ingredient name.
type Merger struct {
	builder *Builder
}

func NewMerger(builder *Builder) *Merger {
	return &Merger{builder: builder}
}

// Merge indexes each feed by normalized ingredient, unions the keys and
// builds one record per key. Rows without any ingredient name are skipped.
// When one agency carries several rows for the same ingredient (MFDS lists
// one row per marketed product), the first row per key wins. Output is
// sorted by normalized name, which together with the first-seen rule makes
// the result deterministic for a given feed ordering.
func (m *Merger) Merge(batch Batch) []*status.GlobalStatus {
	norm := m.builder.norm

	fdaByINN := make(map[string]*agency.FDARecord)
	for i := range batch.FDA {
		r := &batch.FDA[i]
		key := norm.Normalize(r.Ingredient())
		if key == "" {
			continue
		}
		if _, seen := fdaByINN[key]; !seen {
			fdaByINN[key] = r
		}
	}

	emaByINN := make(map[string]*agency.EMARecord)
	for i := range batch.EMA {
		r := &batch.EMA[i]
		key := norm.Normalize(r.Ingredient())
		if key == "" {
			continue
		}
		if _, seen := emaByINN[key]; !seen {
			emaByINN[key] = r
		}
	}

	mfdsByINN := make(map[string]*agency.MFDSRecord)
	for i := range batch.MFDS {
		r := &batch.MFDS[i]
		key := norm.Normalize(r.Ingredient())
		if key == "" {
			continue
		}
		if _, seen := mfdsByINN[key]; !seen {
			mfdsByINN[key] = r
		}
	}

	keys := make(map[string]struct{})
	for k := range fdaByINN {
		keys[k] = struct{}{}
	}
	for k := range emaByINN {
		keys[k] = struct{}{}
	}
	for k := range mfdsByINN {
		keys[k] = struct{}{}
	}

	out := make([]*status.GlobalStatus, 0, len(keys))
	for key := range keys {
		out = append(out, m.builder.Build(fdaByINN[key], emaByINN[key], mfdsByINN[key]))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NormalizedName < out[j].NormalizedName
	})
	return out
}

// EnrichMFDS fills the MFDS slot of already-merged records from a later
// MFDS feed. Populated slots are never overwritten; every record that
// gains an approval is rescored.
func (m *Merger) EnrichMFDS(statuses []*status.GlobalStatus, mfdsList []agency.MFDSRecord) {
	norm := m.builder.norm

	mfdsByINN := make(map[string]*agency.MFDSRecord)
	for i := range mfdsList {
		r := &mfdsList[i]
		key := norm.Normalize(r.Ingredient())
		if key == "" {
			continue
		}
		if _, seen := mfdsByINN[key]; !seen {
			mfdsByINN[key] = r
		}
	}

	for _, s := range statuses {
		if s.MFDS != nil {
			continue
		}
		r, ok := mfdsByINN[norm.Normalize(s.INN)]
		if !ok {
			continue
		}
		s.MFDS = buildMFDS(r)
		m.builder.scorer.Apply(s)
	}
}
