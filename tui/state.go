package tui

import (
	"fmt"

	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
)

// RangeField names one of the numeric range controls.
type RangeField int

const (
	NetAddRange RangeField = iota
	PotentialRange
	MarketShareRange
)

var rangeLabels = [...]string{dataset.ColNetAdd, dataset.ColPotentialScore, dataset.ColMarketShareTrue}

func (f RangeField) String() string {
	if f >= 0 && int(f) < len(rangeLabels) {
		return rangeLabels[f]
	}
	return fmt.Sprintf("RangeField(%d)", int(f))
}

// View is one evaluation of the current selection.
type View struct {
	Options filter.Options
	Rows    []dataset.Record
	Center  filter.Point
	Summary filter.Summary
}

// Controller owns the selection behind the terminal dashboard. It is not safe
// for concurrent use; the App only touches it from the UI goroutine.
type Controller struct {
	ds        *dataset.Dataset
	resolver  *filter.Resolver
	threshold int
	workers   int
	fallback  filter.Point
	sel       filter.Selection
}

// NewController starts with an empty selection.
func NewController(ds *dataset.Dataset, cfg *config.Config) *Controller {
	def := filter.Point{Lat: cfg.Map.DefaultCenterLat, Lon: cfg.Map.DefaultCenterLon}
	return &Controller{
		ds:        ds,
		resolver:  filter.NewResolver(ds),
		threshold: cfg.Map.ParallelThreshold,
		workers:   cfg.Map.Workers,
		fallback:  filter.DatasetCenter(ds, def),
	}
}

// Selection returns a copy of the current selection.
func (c *Controller) Selection() filter.Selection {
	return c.sel
}

// SetLevel selects v at level l and clears every level below it, since a
// downstream value picked under the old parent may no longer exist.
func (c *Controller) SetLevel(l dataset.Level, v string) {
	switch l {
	case dataset.Province:
		c.sel.Province = v
		c.sel.District, c.sel.SubDistrict, c.sel.HappyBlock = "", "", ""
	case dataset.District:
		c.sel.District = v
		c.sel.SubDistrict, c.sel.HappyBlock = "", ""
	case dataset.SubDistrict:
		c.sel.SubDistrict = v
		c.sel.HappyBlock = ""
	case dataset.HappyBlock:
		c.sel.HappyBlock = v
	}
}

// SetRange parses "min,max" into the given range. An empty text clears it. On
// error the previous range is kept.
func (c *Controller) SetRange(f RangeField, text string) error {
	r, err := filter.ParseRange(text)
	if err != nil {
		return fmt.Errorf("%s: %w", f, err)
	}
	switch f {
	case NetAddRange:
		c.sel.NetAdd = r
	case PotentialRange:
		c.sel.PotentialScore = r
	case MarketShareRange:
		c.sel.MarketShareTrue = r
	default:
		return fmt.Errorf("unknown range field %d", int(f))
	}
	return nil
}

// Reset clears every control.
func (c *Controller) Reset() {
	c.sel = filter.Selection{}
}

// Options resolves the dropdown lists for the current selection.
func (c *Controller) Options() filter.Options {
	return c.resolver.Cascade(c.sel)
}

// Evaluate filters the dataset with sel. It only reads shared state, so it may
// run off the UI goroutine with a selection captured beforehand.
func (c *Controller) Evaluate(sel filter.Selection) View {
	rows := filter.Run(c.ds, sel, c.threshold, c.workers)
	return View{
		Options: c.resolver.Cascade(sel),
		Rows:    rows,
		Center:  filter.Center(rows, c.fallback),
		Summary: filter.Summarize(rows),
	}
}
