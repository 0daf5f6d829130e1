package filter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/southsales/tolmap/dataset"
)

// ErrInvertedRange is returned when a range has Min greater than Max.
var ErrInvertedRange = errors.New("range minimum is greater than maximum")

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + "," + strconv.FormatFloat(r.Max, 'f', -1, 64)
}

// ParseRange parses "min,max". An empty string yields a nil range.
func ParseRange(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range %q: expected min,max", s)
	}
	lo, err := parseBound(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid range minimum %q: %w", parts[0], err)
	}
	hi, err := parseBound(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid range maximum %q: %w", parts[1], err)
	}
	r := &Range{Min: lo, Max: hi}
	if lo > hi {
		return nil, fmt.Errorf("%w: %s", ErrInvertedRange, r)
	}
	return r, nil
}

// ErrNotFinite is returned for NaN and infinite range bounds.
var ErrNotFinite = errors.New("not a finite number")

func parseBound(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return v, nil
}

// Selection is the current state of every control. Empty strings and nil
// ranges are absent and impose no constraint.
type Selection struct {
	Province    string `json:"province,omitempty"`
	District    string `json:"district,omitempty"`
	SubDistrict string `json:"subdistrict,omitempty"`
	HappyBlock  string `json:"happyblock,omitempty"`

	NetAdd          *Range `json:"netAdd,omitempty"`
	PotentialScore  *Range `json:"potentialScore,omitempty"`
	MarketShareTrue *Range `json:"marketShareTrue,omitempty"`
}

// Value returns the selected value for a hierarchy level.
func (s Selection) Value(l dataset.Level) string {
	switch l {
	case dataset.Province:
		return s.Province
	case dataset.District:
		return s.District
	case dataset.SubDistrict:
		return s.SubDistrict
	case dataset.HappyBlock:
		return s.HappyBlock
	}
	return ""
}

// Validate rejects inverted ranges.
func (s Selection) Validate() error {
	for name, r := range map[string]*Range{
		dataset.ColNetAdd:          s.NetAdd,
		dataset.ColPotentialScore:  s.PotentialScore,
		dataset.ColMarketShareTrue: s.MarketShareTrue,
	} {
		if r != nil && r.Min > r.Max {
			return fmt.Errorf("%s: %w", name, ErrInvertedRange)
		}
	}
	return nil
}

// IsEmpty reports whether no filter is active.
func (s Selection) IsEmpty() bool {
	return s.Province == "" && s.District == "" && s.SubDistrict == "" && s.HappyBlock == "" &&
		s.NetAdd == nil && s.PotentialScore == nil && s.MarketShareTrue == nil
}

// Match reports whether a record satisfies every active predicate.
func (s Selection) Match(r *dataset.Record) bool {
	if s.Province != "" && r.Province != s.Province {
		return false
	}
	if s.District != "" && r.District != s.District {
		return false
	}
	if s.SubDistrict != "" && r.SubDistrict != s.SubDistrict {
		return false
	}
	if s.HappyBlock != "" && r.HappyBlock != s.HappyBlock {
		return false
	}
	if s.NetAdd != nil && !s.NetAdd.Contains(r.NetAdd) {
		return false
	}
	if s.PotentialScore != nil && !s.PotentialScore.Contains(r.PotentialScore) {
		return false
	}
	if s.MarketShareTrue != nil && !s.MarketShareTrue.Contains(r.MarketShareTrue) {
		return false
	}
	return true
}

// upstream keeps only the hierarchy values strictly above level l.
func (s Selection) upstream(l dataset.Level) Selection {
	var out Selection
	for _, lv := range dataset.Levels {
		if lv >= l {
			break
		}
		switch lv {
		case dataset.Province:
			out.Province = s.Province
		case dataset.District:
			out.District = s.District
		case dataset.SubDistrict:
			out.SubDistrict = s.SubDistrict
		}
	}
	return out
}
