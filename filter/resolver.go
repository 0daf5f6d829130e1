package filter

import (
	"github.com/southsales/tolmap/dataset"
)

// Options holds the dropdown contents for one selection.
type Options struct {
	Provinces    []string `json:"provinces"`
	Districts    []string `json:"districts"`
	SubDistricts []string `json:"subdistricts"`
	HappyBlocks  []string `json:"happyblocks"`
}

// Resolver computes cascading dropdown options. It holds no state besides the
// dataset and is safe for concurrent use.
type Resolver struct {
	ds *dataset.Dataset
}

// NewResolver returns a resolver over ds.
func NewResolver(ds *dataset.Dataset) *Resolver {
	return &Resolver{ds: ds}
}

// Provinces returns every province in first-seen order.
func (r *Resolver) Provinces() []string {
	return r.next(Selection{}, dataset.Province)
}

// Districts returns the districts under the selected province.
func (r *Resolver) Districts(sel Selection) []string {
	return r.next(sel, dataset.District)
}

// SubDistricts returns the sub-districts under the selected province and district.
func (r *Resolver) SubDistricts(sel Selection) []string {
	return r.next(sel, dataset.SubDistrict)
}

// HappyBlocks returns the happy blocks under the selected province, district and sub-district.
func (r *Resolver) HappyBlocks(sel Selection) []string {
	return r.next(sel, dataset.HappyBlock)
}

// Cascade resolves all four lists at once.
func (r *Resolver) Cascade(sel Selection) Options {
	return Options{
		Provinces:    r.Provinces(),
		Districts:    r.Districts(sel),
		SubDistricts: r.SubDistricts(sel),
		HappyBlocks:  r.HappyBlocks(sel),
	}
}

func (r *Resolver) next(sel Selection, target dataset.Level) []string {
	out := []string{}
	if r.ds == nil {
		return out
	}
	up := sel.upstream(target)
	candidates, all := candidateRows(r.ds, up)
	if all {
		return append(out, r.ds.Index().Values(target)...)
	}

	seen := make(map[string]struct{})
	for _, i := range candidates {
		rec := &r.ds.Records[i]
		if !up.Match(rec) {
			continue
		}
		v := rec.Field(target)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// candidateRows narrows the scan to the rows of the deepest selected hierarchy
// value. all is true when no hierarchy value is selected.
func candidateRows(ds *dataset.Dataset, sel Selection) (rows []int, all bool) {
	idx := ds.Index()
	for i := len(dataset.Levels) - 1; i >= 0; i-- {
		l := dataset.Levels[i]
		if v := sel.Value(l); v != "" {
			return idx.Rows(l, v), false
		}
	}
	return nil, true
}
