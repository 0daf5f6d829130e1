package tui

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"github.com/southsales/tolmap/output"
)

// Grid renders filtered rows as a terminal bubble map: longitude runs across,
// latitude runs up, marker size follows Port Use and color follows Potential
// Score.
type Grid struct {
	Cols, Rows int
	low, high  color.RGBA
}

type gridCell struct {
	count     int
	portUse   float64
	potential float64 // highest score in the cell
}

// NewGrid parses the two scale colors the same way the map renderers do.
func NewGrid(cols, rows int, colorLow, colorHigh string) (*Grid, error) {
	if cols < 2 || rows < 2 {
		return nil, fmt.Errorf("grid must be at least 2x2, got %dx%d", cols, rows)
	}
	lo, err := output.ParseColor(colorLow)
	if err != nil {
		return nil, err
	}
	hi, err := output.ParseColor(colorHigh)
	if err != nil {
		return nil, err
	}
	return &Grid{Cols: cols, Rows: rows, low: lo, high: hi}, nil
}

type extent struct {
	minLon, maxLon, minLat, maxLat float64
}

func fitExtent(rows []dataset.Record) extent {
	e := extent{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for i := range rows {
		e.minLon = math.Min(e.minLon, rows[i].Longitude)
		e.maxLon = math.Max(e.maxLon, rows[i].Longitude)
		e.minLat = math.Min(e.minLat, rows[i].Latitude)
		e.maxLat = math.Max(e.maxLat, rows[i].Latitude)
	}
	// single location
	if e.maxLon-e.minLon == 0 {
		e.minLon, e.maxLon = e.minLon-0.01, e.maxLon+0.01
	}
	if e.maxLat-e.minLat == 0 {
		e.minLat, e.maxLat = e.minLat-0.01, e.maxLat+0.01
	}
	return e
}

// cellOf maps a coordinate to its column and row; row 0 is the northern edge.
func (g *Grid) cellOf(e extent, lat, lon float64) (col, row int) {
	col = int((lon - e.minLon) / (e.maxLon - e.minLon) * float64(g.Cols))
	row = int((e.maxLat - lat) / (e.maxLat - e.minLat) * float64(g.Rows))
	col = max(0, min(col, g.Cols-1))
	row = max(0, min(row, g.Rows-1))
	return col, row
}

// Render draws rows with the center cell marked by a cross when no marker
// covers it.
func (g *Grid) Render(rows []dataset.Record, center filter.Point) string {
	var b strings.Builder
	b.WriteString("[white::b]Bubble Map[white::-]\n")
	b.WriteString("[dim]Marker size: Port Use (· • ●) | color: Potential Score, low → high[white]\n\n")

	if len(rows) == 0 {
		b.WriteString("[yellow]No locations match the filters.[white]\n")
		return b.String()
	}

	e := fitExtent(rows)
	cells := make([]gridCell, g.Cols*g.Rows)
	potLo, potHi := math.Inf(1), math.Inf(-1)
	for i := range rows {
		r := &rows[i]
		col, row := g.cellOf(e, r.Latitude, r.Longitude)
		c := &cells[row*g.Cols+col]
		if c.count == 0 || r.PotentialScore > c.potential {
			c.potential = r.PotentialScore
		}
		c.count++
		c.portUse += r.PortUse
		potLo = math.Min(potLo, r.PotentialScore)
		potHi = math.Max(potHi, r.PotentialScore)
	}
	var maxPortUse float64
	for i := range cells {
		maxPortUse = math.Max(maxPortUse, cells[i].portUse)
	}
	centerCol, centerRow := g.cellOf(e, center.Lat, center.Lon)

	fmt.Fprintf(&b, "[dim]%.4f[white]\n", e.maxLat)
	for row := 0; row < g.Rows; row++ {
		b.WriteString("│")
		for col := 0; col < g.Cols; col++ {
			c := cells[row*g.Cols+col]
			switch {
			case c.count > 0:
				t := 1.0
				if potHi > potLo {
					t = (c.potential - potLo) / (potHi - potLo)
				}
				fmt.Fprintf(&b, "[%s]%s[white]", hexColor(output.LerpColor(g.low, g.high, t)), markerFor(c.portUse, maxPortUse))
			case col == centerCol && row == centerRow:
				b.WriteString("[white]+ ")
			default:
				b.WriteString("  ")
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "└%s\n", strings.Repeat("──", g.Cols))
	fmt.Fprintf(&b, "[dim]%.4f  lat %.4f → %.4f, lon %.4f → %.4f[white]\n", e.minLat, e.minLat, e.maxLat, e.minLon, e.maxLon)
	return b.String()
}

// markerFor picks the glyph for a cell's share of the largest cell Port Use.
func markerFor(portUse, maxPortUse float64) string {
	share := 0.0
	if maxPortUse > 0 {
		share = portUse / maxPortUse
	}
	switch {
	case share >= 0.8:
		return "● "
	case share >= 0.2:
		return "• "
	default:
		return "· "
	}
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
