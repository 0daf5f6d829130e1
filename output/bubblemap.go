package output

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
)

// SeriesName is the name of the single scatter series on the map.
const SeriesName = "Sub-districts"

// MapOptions controls how a filtered view is drawn.
type MapOptions struct {
	Title         string
	Zoom          float64
	MinMarkerSize float64
	MaxMarkerSize float64
	ColorLow      string
	ColorHigh     string
	Width         string
	Height        string
}

// MapOptionsFromConfig copies the [map] section and the page title.
func MapOptionsFromConfig(cfg *config.Config) MapOptions {
	def := config.Default()
	if cfg == nil {
		cfg = def
	}
	m := cfg.Map
	if m == nil {
		m = def.Map
	}
	title := config.DefaultTitle
	if cfg.Server != nil && cfg.Server.Title != "" {
		title = cfg.Server.Title
	}
	return MapOptions{
		Title:         title,
		Zoom:          m.Zoom,
		MinMarkerSize: m.MinMarkerSize,
		MaxMarkerSize: m.MaxMarkerSize,
		ColorLow:      m.ColorLow,
		ColorHigh:     m.ColorHigh,
		Width:         "100%",
		Height:        "85vh",
	}
}

// MarkerSize scales a marker so its area follows Port Use: the diameter is
// proportional to sqrt(portUse/maxPortUse), clamped to [minSize, maxSize].
func MarkerSize(portUse, maxPortUse, minSize, maxSize float64) float64 {
	if maxPortUse <= 0 || portUse <= 0 {
		return minSize
	}
	size := maxSize * math.Sqrt(portUse/maxPortUse)
	return math.Max(minSize, math.Min(maxSize, size))
}

// Tooltip is the hover text of one marker: the sub-district as a title, then
// the hierarchy, the four market shares, Install and Net Add.
func Tooltip(r *dataset.Record) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString("<br/>")
		b.WriteString(html.EscapeString(label))
		b.WriteString(": ")
		b.WriteString(html.EscapeString(value))
	}

	b.WriteString("<b>")
	b.WriteString(html.EscapeString(r.SubDistrict))
	b.WriteString("</b>")
	line(dataset.ColProvince, r.Province)
	line(dataset.ColDistrict, r.District)
	line(dataset.ColSubDistrict, r.SubDistrict)
	line(dataset.ColHappyBlock, r.HappyBlock)
	line(dataset.ColMarketShareTrue, formatPercent(r.MarketShareTrue))
	line(dataset.ColMarketShareAIS, formatPercent(r.MarketShareAIS))
	line(dataset.ColMarketShare3BB, formatPercent(r.MarketShare3BB))
	line(dataset.ColMarketShareNT, formatPercent(r.MarketShareNT))
	line(dataset.ColInstall, formatNumber(r.Install))
	line(dataset.ColNetAdd, formatNumber(r.NetAdd))
	return b.String()
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// viewWindow is half the width in degrees visible at the given zoom level,
// following the web-map convention of 360 degrees at zoom 0.
func viewWindow(zoom float64) float64 {
	return 180 / math.Pow(2, zoom)
}

type axisView struct {
	min, max   float64
	start, end float32
}

// fitAxis spans every value and the window around center, and returns the
// dataZoom percentages that show just that window.
func fitAxis(values []float64, center, half float64) axisView {
	lo, hi := center-half, center+half
	v := axisView{min: lo, max: hi, start: 0, end: 100}
	for _, x := range values {
		v.min = math.Min(v.min, x)
		v.max = math.Max(v.max, x)
	}
	span := v.max - v.min
	if span <= 0 {
		return v
	}
	v.start = float32((lo - v.min) / span * 100)
	v.end = float32((hi - v.min) / span * 100)
	return v
}

// BubbleMap draws one marker per record at (longitude, latitude). Size encodes
// Port Use and color encodes Potential Score on a continuous scale over the
// rows' own score range. Scroll zoom is enabled on both axes and the initial
// window is centered on center.
func BubbleMap(rows []dataset.Record, center filter.Point, o MapOptions) *charts.Scatter {
	var maxPortUse float64
	potLo, potHi := math.Inf(1), math.Inf(-1)
	lons := make([]float64, len(rows))
	lats := make([]float64, len(rows))
	for i := range rows {
		maxPortUse = math.Max(maxPortUse, rows[i].PortUse)
		potLo = math.Min(potLo, rows[i].PotentialScore)
		potHi = math.Max(potHi, rows[i].PotentialScore)
		lons[i] = rows[i].Longitude
		lats[i] = rows[i].Latitude
	}
	if len(rows) == 0 {
		potLo, potHi = 0, 100
	}
	if potHi <= potLo {
		potHi = potLo + 1
	}

	data := make([]opts.ScatterData, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		data = append(data, opts.ScatterData{
			Name:       Tooltip(r),
			Value:      []float64{r.Longitude, r.Latitude, r.PotentialScore, r.PortUse},
			Symbol:     "circle",
			SymbolSize: int(math.Round(MarkerSize(r.PortUse, maxPortUse, o.MinMarkerSize, o.MaxMarkerSize))),
		})
	}

	half := viewWindow(o.Zoom)
	xView := fitAxis(lons, center.Lon, half)
	yView := fitAxis(lats, center.Lat, half)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: o.Title,
			Width:     o.Width,
			Height:    o.Height,
			Theme:     types.ThemeVintage,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    o.Title,
			Subtitle: fmt.Sprintf("%d locations, centered on %.4f, %.4f", len(rows), center.Lat, center.Lon),
			Left:     "center",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Trigger:   "item",
			Formatter: "{b}",
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Type:       "continuous",
			Calculable: opts.Bool(true),
			Min:        float32(potLo),
			Max:        float32(potHi),
			Dimension:  "2",
			Text:       []string{dataset.ColPotentialScore, ""},
			InRange: &opts.VisualMapInRange{
				Color: []string{o.ColorLow, o.ColorHigh},
			},
			Show:   opts.Bool(true),
			Orient: "vertical",
			Right:  "2%",
			Top:    "middle",
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside", XAxisIndex: 0, Start: xView.start, End: xView.end},
			opts.DataZoom{Type: "inside", YAxisIndex: 0, Start: yView.start, End: yView.end},
		),
		charts.WithXAxisOpts(opts.XAxis{
			Name:  dataset.ColLongitude,
			Type:  "value",
			Scale: opts.Bool(true),
			Min:   xView.min,
			Max:   xView.max,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  dataset.ColLatitude,
			Type:  "value",
			Scale: opts.Bool(true),
			Min:   yView.min,
			Max:   yView.max,
		}),
		charts.WithGridOpts(opts.Grid{
			Left:   "5%",
			Right:  "12%",
			Top:    "12%",
			Bottom: "8%",
		}),
	)
	scatter.AddSeries(SeriesName, data)

	return scatter
}

// FigureJSON returns the echarts option object for the live dashboard.
func FigureJSON(chart *charts.Scatter) ([]byte, error) {
	chart.Validate()
	b, err := json.Marshal(chart.JSON())
	if err != nil {
		return nil, fmt.Errorf("encoding figure: %w", err)
	}
	return b, nil
}

// RenderHTML writes a standalone page containing the chart.
func RenderHTML(w io.Writer, chart *charts.Scatter) error {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(chart)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering bubble map: %w", err)
	}
	return nil
}

// WriteHTML renders the chart page to filename.
func WriteHTML(filename string, chart *charts.Scatter) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create map file %s: %w", filename, err)
	}
	defer f.Close()

	return RenderHTML(f, chart)
}
