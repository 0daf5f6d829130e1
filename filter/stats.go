package filter

import (
	"math"

	"github.com/southsales/tolmap/dataset"
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Center returns the mean coordinate of rows, or fallback when rows is empty.
func Center(rows []dataset.Record, fallback Point) Point {
	if len(rows) == 0 {
		return fallback
	}
	var lat, lon float64
	for i := range rows {
		lat += rows[i].Latitude
		lon += rows[i].Longitude
	}
	n := float64(len(rows))
	c := Point{Lat: lat / n, Lon: lon / n}
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return fallback
	}
	return c
}

// DatasetCenter is the fallback used when a selection is empty: the mean of
// the whole dataset, or def when the dataset has no rows.
func DatasetCenter(ds *dataset.Dataset, def Point) Point {
	if ds == nil {
		return def
	}
	return Center(ds.Records, def)
}

// SliderBounds are the limits of the three range controls.
type SliderBounds struct {
	NetAdd          Range `json:"netAdd"`
	PotentialScore  Range `json:"potentialScore"`
	MarketShareTrue Range `json:"marketShareTrue"`
}

// Bounds derives the Net Add limits from the data. Potential Score and Market
// Share True are fixed percentages.
func Bounds(ds *dataset.Dataset) SliderBounds {
	b := SliderBounds{
		PotentialScore:  Range{Min: 0, Max: 100},
		MarketShareTrue: Range{Min: 0, Max: 100},
	}
	if ds == nil || ds.Len() == 0 {
		return b
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range ds.Records {
		v := ds.Records[i].NetAdd
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	b.NetAdd = Range{Min: math.Floor(lo), Max: math.Ceil(hi)}
	return b
}

// Summary aggregates a filtered view for the summary panels.
type Summary struct {
	Count               int     `json:"count"`
	PortUse             float64 `json:"portUse"`
	Install             float64 `json:"install"`
	NetAdd              float64 `json:"netAdd"`
	MeanPotentialScore  float64 `json:"meanPotentialScore"`
	MeanMarketShareTrue float64 `json:"meanMarketShareTrue"`
}

// Summarize totals rows. Means are zero for an empty view.
func Summarize(rows []dataset.Record) Summary {
	s := Summary{Count: len(rows)}
	if len(rows) == 0 {
		return s
	}
	var potential, share float64
	for i := range rows {
		s.PortUse += rows[i].PortUse
		s.Install += rows[i].Install
		s.NetAdd += rows[i].NetAdd
		potential += rows[i].PotentialScore
		share += rows[i].MarketShareTrue
	}
	n := float64(len(rows))
	s.MeanPotentialScore = math.Round(potential/n*100) / 100
	s.MeanMarketShareTrue = math.Round(share/n*100) / 100
	return s
}
