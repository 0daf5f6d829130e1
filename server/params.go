package server

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/southsales/tolmap/filter"
)

// Query parameter names shared by every filtered endpoint and the page script.
const (
	ParamProvince       = "province"
	ParamDistrict       = "district"
	ParamSubDistrict    = "subdistrict"
	ParamHappyBlock     = "happyblock"
	ParamNetAddMin      = "net_add_min"
	ParamNetAddMax      = "net_add_max"
	ParamPotentialMin   = "potential_min"
	ParamPotentialMax   = "potential_max"
	ParamMarketShareMin = "market_share_min"
	ParamMarketShareMax = "market_share_max"
	ParamLimit          = "limit"
)

// Open range ends are stored as the largest finite float so a Selection always
// encodes to JSON.
var (
	negInf = -math.MaxFloat64
	posInf = math.MaxFloat64
)

// ParseSelection reads a Selection from query parameters. Missing or empty
// values are absent. A range with only one side set is open on the other.
func ParseSelection(q url.Values) (filter.Selection, error) {
	sel := filter.Selection{
		Province:    strings.TrimSpace(q.Get(ParamProvince)),
		District:    strings.TrimSpace(q.Get(ParamDistrict)),
		SubDistrict: strings.TrimSpace(q.Get(ParamSubDistrict)),
		HappyBlock:  strings.TrimSpace(q.Get(ParamHappyBlock)),
	}

	var err error
	if sel.NetAdd, err = parseRange(q, ParamNetAddMin, ParamNetAddMax); err != nil {
		return sel, err
	}
	if sel.PotentialScore, err = parseRange(q, ParamPotentialMin, ParamPotentialMax); err != nil {
		return sel, err
	}
	if sel.MarketShareTrue, err = parseRange(q, ParamMarketShareMin, ParamMarketShareMax); err != nil {
		return sel, err
	}
	if err := sel.Validate(); err != nil {
		return sel, err
	}
	return sel, nil
}

func parseRange(q url.Values, minKey, maxKey string) (*filter.Range, error) {
	lo, hasLo, err := parseFloat(q, minKey)
	if err != nil {
		return nil, err
	}
	hi, hasHi, err := parseFloat(q, maxKey)
	if err != nil {
		return nil, err
	}
	if !hasLo && !hasHi {
		return nil, nil
	}
	r := &filter.Range{Min: lo, Max: hi}
	if !hasLo {
		r.Min = negInf
	}
	if !hasHi {
		r.Max = posInf
	}
	return r, nil
}

func parseFloat(q url.Values, key string) (float64, bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("invalid %s %q: not a finite number", key, raw)
	}
	return v, true, nil
}

func parseLimit(q url.Values) (int, error) {
	raw := strings.TrimSpace(q.Get(ParamLimit))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", ParamLimit, raw)
	}
	return n, nil
}

// EncodeSelection is the inverse of ParseSelection.
func EncodeSelection(sel filter.Selection) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set(ParamProvince, sel.Province)
	set(ParamDistrict, sel.District)
	set(ParamSubDistrict, sel.SubDistrict)
	set(ParamHappyBlock, sel.HappyBlock)
	setRange := func(r *filter.Range, minKey, maxKey string) {
		if r == nil {
			return
		}
		if r.Min != negInf {
			q.Set(minKey, strconv.FormatFloat(r.Min, 'f', -1, 64))
		}
		if r.Max != posInf {
			q.Set(maxKey, strconv.FormatFloat(r.Max, 'f', -1, 64))
		}
	}
	setRange(sel.NetAdd, ParamNetAddMin, ParamNetAddMax)
	setRange(sel.PotentialScore, ParamPotentialMin, ParamPotentialMax)
	setRange(sel.MarketShareTrue, ParamMarketShareMin, ParamMarketShareMax)
	return q
}
