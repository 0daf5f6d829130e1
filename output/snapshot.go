package output

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// namedColors covers the names accepted in the [map] color keys besides hex.
var namedColors = map[string]color.RGBA{
	"red":    {R: 255, A: 255},
	"green":  {G: 128, A: 255},
	"lime":   {G: 255, A: 255},
	"blue":   {B: 255, A: 255},
	"yellow": {R: 255, G: 255, A: 255},
	"orange": {R: 255, G: 165, A: 255},
	"purple": {R: 128, B: 128, A: 255},
	"black":  {A: 255},
	"white":  {R: 255, G: 255, B: 255, A: 255},
	"gray":   {R: 128, G: 128, B: 128, A: 255},
}

// ParseColor accepts a CSS color name from namedColors or #rgb / #rrggbb.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if hex == s {
		return color.RGBA{}, fmt.Errorf("unknown color %q", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// LerpColor blends lo and hi linearly; t is clamped to [0,1]. The result is
// slightly transparent.
func LerpColor(lo, hi color.RGBA, t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return color.RGBA{R: mix(lo.R, hi.R), G: mix(lo.G, hi.G), B: mix(lo.B, hi.B), A: 200}
}

// Snapshot draws the same encoding as BubbleMap as a static plot, limited to
// the zoom window around center.
func Snapshot(rows []dataset.Record, center filter.Point, o MapOptions) (*plot.Plot, error) {
	lo, err := ParseColor(o.ColorLow)
	if err != nil {
		return nil, err
	}
	hi, err := ParseColor(o.ColorHigh)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = dataset.ColLongitude
	p.Y.Label.Text = dataset.ColLatitude

	half := viewWindow(o.Zoom)
	p.X.Min, p.X.Max = center.Lon-half, center.Lon+half
	p.Y.Min, p.Y.Max = center.Lat-half, center.Lat+half
	p.Add(plotter.NewGrid())

	if len(rows) == 0 {
		return p, nil
	}

	var maxPortUse float64
	potLo, potHi := math.Inf(1), math.Inf(-1)
	points := make(plotter.XYs, len(rows))
	for i := range rows {
		points[i].X = rows[i].Longitude
		points[i].Y = rows[i].Latitude
		maxPortUse = math.Max(maxPortUse, rows[i].PortUse)
		potLo = math.Min(potLo, rows[i].PotentialScore)
		potHi = math.Max(potHi, rows[i].PotentialScore)
	}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("building scatter: %w", err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		t := 0.5
		if potHi > potLo {
			t = (rows[i].PotentialScore - potLo) / (potHi - potLo)
		}
		diameter := MarkerSize(rows[i].PortUse, maxPortUse, o.MinMarkerSize, o.MaxMarkerSize)
		return draw.GlyphStyle{
			Color:  LerpColor(lo, hi, t),
			Radius: vg.Points(diameter / 2),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(scatter)

	return p, nil
}

// PNGWriter renders p as a PNG of the given size in inches. Rendering happens
// before anything is written, so errors can still be reported to the caller.
func PNGWriter(p *plot.Plot, width, height float64) (io.WriterTo, error) {
	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("preparing png: %w", err)
	}
	return wt, nil
}

// WritePNG renders the snapshot as a PNG of the given size in inches.
func WritePNG(w io.Writer, rows []dataset.Record, center filter.Point, o MapOptions, width, height float64) error {
	p, err := Snapshot(rows, center, o)
	if err != nil {
		return err
	}
	wt, err := PNGWriter(p, width, height)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing png: %w", err)
	}
	return nil
}

// SavePNG writes the snapshot to filename.
func SavePNG(filename string, rows []dataset.Record, center filter.Point, o MapOptions, width, height float64) error {
	p, err := Snapshot(rows, center, o)
	if err != nil {
		return err
	}
	if err := p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, filename); err != nil {
		return fmt.Errorf("saving png %s: %w", filename, err)
	}
	return nil
}
