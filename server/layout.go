package server

import (
	"fmt"
	"math"

	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
)

// Dropdown is a clearable single-value select.
type Dropdown struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder"`
	Options     []string `json:"options"`
}

// Mark is a labelled tick on a slider.
type Mark struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Slider is an inclusive two-handle range control.
type Slider struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	MinKey string  `json:"minKey"`
	MaxKey string  `json:"maxKey"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Step   float64 `json:"step"`
	Marks  []Mark  `json:"marks"`
}

// Layout describes the page: a title, the control column and the map panel.
type Layout struct {
	Title     string       `json:"title"`
	Dropdowns []Dropdown   `json:"dropdowns"`
	Sliders   []Slider     `json:"sliders"`
	MapID     string       `json:"mapId"`
	Center    filter.Point `json:"center"`
	Records   int          `json:"records"`
}

// BuildLayout fills the controls from the dataset. Only the province list is
// static; the downstream lists start empty and are filled through /api/options.
func BuildLayout(ds *dataset.Dataset, cfg *config.Config, r *filter.Resolver) Layout {
	b := filter.Bounds(ds)
	def := filter.Point{Lat: cfg.Map.DefaultCenterLat, Lon: cfg.Map.DefaultCenterLon}

	dropdown := func(id string, l dataset.Level, options []string) Dropdown {
		return Dropdown{
			ID:          id,
			Label:       l.String(),
			Placeholder: "Select " + l.String(),
			Options:     options,
		}
	}

	return Layout{
		Title: cfg.Server.Title,
		Dropdowns: []Dropdown{
			dropdown(ParamProvince, dataset.Province, r.Provinces()),
			dropdown(ParamDistrict, dataset.District, []string{}),
			dropdown(ParamSubDistrict, dataset.SubDistrict, []string{}),
			dropdown(ParamHappyBlock, dataset.HappyBlock, []string{}),
		},
		Sliders: []Slider{
			{
				ID:     "net-add",
				Label:  dataset.ColNetAdd,
				MinKey: ParamNetAddMin,
				MaxKey: ParamNetAddMax,
				Min:    b.NetAdd.Min,
				Max:    b.NetAdd.Max,
				Step:   cfg.Sliders.NetAddStep,
				Marks:  marks(b.NetAdd.Min, b.NetAdd.Max, cfg.Sliders.NetAddStep, ""),
			},
			{
				ID:     "potential",
				Label:  dataset.ColPotentialScore,
				MinKey: ParamPotentialMin,
				MaxKey: ParamPotentialMax,
				Min:    b.PotentialScore.Min,
				Max:    b.PotentialScore.Max,
				Step:   cfg.Sliders.PotentialStep,
				Marks:  marks(b.PotentialScore.Min, b.PotentialScore.Max, 10, "%"),
			},
			{
				ID:     "market-share",
				Label:  dataset.ColMarketShareTrue,
				MinKey: ParamMarketShareMin,
				MaxKey: ParamMarketShareMax,
				Min:    b.MarketShareTrue.Min,
				Max:    b.MarketShareTrue.Max,
				Step:   cfg.Sliders.MarketShareStep,
				Marks:  marks(b.MarketShareTrue.Min, b.MarketShareTrue.Max, 10, ""),
			},
		},
		MapID:   "bubble-map",
		Center:  filter.DatasetCenter(ds, def),
		Records: ds.Len(),
	}
}

// maxMarks caps the tick count for wide Net Add ranges.
const maxMarks = 51

// marks places a tick every step from lo to hi inclusive. When that would give
// more than maxMarks ticks the spacing is widened to a multiple of step.
func marks(lo, hi, step float64, suffix string) []Mark {
	out := []Mark{}
	if step <= 0 || hi < lo {
		return out
	}
	if n := (hi - lo) / step; n > maxMarks-1 {
		step *= math.Ceil(n / (maxMarks - 1))
	}
	for i := 0; ; i++ {
		v := lo + float64(i)*step
		if v > hi+1e-9 {
			break
		}
		out = append(out, Mark{Value: v, Label: fmt.Sprintf("%g%s", v, suffix)})
	}
	return out
}
