package output

import (
	"bytes"
	"encoding/json"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []dataset.Record {
	return []dataset.Record{
		{
			Province: "South", District: "Hat Yai", SubDistrict: "Kho Hong", HappyBlock: "HB-01",
			Latitude: 7.01, Longitude: 100.47, NetAdd: 5, PotentialScore: 80, PortUse: 100, Install: 30,
			MarketShareTrue: 35, MarketShareAIS: 25, MarketShare3BB: 30, MarketShareNT: 10,
		},
		{
			Province: "South", District: "Hat Yai", SubDistrict: "Khlong <Hae>", HappyBlock: "HB-02",
			Latitude: 7.05, Longitude: 100.50, NetAdd: -2, PotentialScore: 20, PortUse: 25, Install: 4,
			MarketShareTrue: 12.5, MarketShareAIS: 50, MarketShare3BB: 30, MarketShareNT: 7.5,
		},
	}
}

func testMapOptions() MapOptions {
	return MapOptionsFromConfig(config.Default())
}

func TestMarkerSize(t *testing.T) {
	tests := []struct {
		name    string
		portUse float64
		max     float64
		want    float64
	}{
		{"largest", 100, 100, 40},
		{"quarter area is half diameter", 25, 100, 20},
		{"tiny clamps to min", 0.01, 100, 6},
		{"zero", 0, 100, 6},
		{"empty view", 10, 0, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarkerSize(tt.portUse, tt.max, 6, 40); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("MarkerSize(%v, %v) = %v, want %v", tt.portUse, tt.max, got, tt.want)
			}
		})
	}
}

func TestTooltip(t *testing.T) {
	rows := sampleRows()
	tip := Tooltip(&rows[1])

	if !strings.HasPrefix(tip, "<b>Khlong &lt;Hae&gt;</b>") {
		t.Errorf("tooltip title not escaped or missing: %q", tip)
	}
	for _, want := range []string{
		"Province: South",
		"District: Hat Yai",
		"Happy Block: HB-02",
		"Market Share True (%): 12.50",
		"Market Share AIS (%): 50.00",
		"Market Share 3BB (%): 30.00",
		"Market Share NT (%): 7.50",
		"Install: 4",
		"Net Add: -2",
	} {
		if !strings.Contains(tip, want) {
			t.Errorf("tooltip missing %q: %q", want, tip)
		}
	}
}

type figure struct {
	Series []struct {
		Type string `json:"type"`
		Data []struct {
			Name       string    `json:"name"`
			Value      []float64 `json:"value"`
			SymbolSize int       `json:"symbolSize"`
		} `json:"data"`
	} `json:"series"`
	VisualMap []struct {
		Min     float64 `json:"min"`
		Max     float64 `json:"max"`
		InRange struct {
			Color []string `json:"color"`
		} `json:"inRange"`
	} `json:"visualMap"`
	DataZoom []struct {
		Type string `json:"type"`
	} `json:"dataZoom"`
}

func TestFigureJSON(t *testing.T) {
	rows := sampleRows()
	center := filter.Center(rows, filter.Point{})

	b, err := FigureJSON(BubbleMap(rows, center, testMapOptions()))
	if err != nil {
		t.Fatalf("FigureJSON failed: %v", err)
	}

	var fig figure
	if err := json.Unmarshal(b, &fig); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(fig.Series) != 1 || fig.Series[0].Type != "scatter" {
		t.Fatalf("Series = %+v, want one scatter series", fig.Series)
	}
	data := fig.Series[0].Data
	if len(data) != 2 {
		t.Fatalf("len(data) = %d, want 2", len(data))
	}
	if data[0].Value[0] != 100.47 || data[0].Value[1] != 7.01 || data[0].Value[2] != 80 {
		t.Errorf("first value = %v, want [lon lat potential ...]", data[0].Value)
	}
	if data[0].SymbolSize != 40 || data[1].SymbolSize != 20 {
		t.Errorf("symbol sizes = %d, %d, want 40, 20", data[0].SymbolSize, data[1].SymbolSize)
	}

	if len(fig.VisualMap) != 1 {
		t.Fatalf("VisualMap = %+v, want one", fig.VisualMap)
	}
	vm := fig.VisualMap[0]
	if vm.Min != 20 || vm.Max != 80 {
		t.Errorf("visual map range = %v..%v, want 20..80", vm.Min, vm.Max)
	}
	if len(vm.InRange.Color) != 2 || vm.InRange.Color[0] != "red" || vm.InRange.Color[1] != "green" {
		t.Errorf("visual map colors = %v, want [red green]", vm.InRange.Color)
	}

	if len(fig.DataZoom) != 2 || fig.DataZoom[0].Type != "inside" {
		t.Errorf("DataZoom = %+v, want two inside zooms", fig.DataZoom)
	}
}

func TestFigureJSONEmptyView(t *testing.T) {
	b, err := FigureJSON(BubbleMap(nil, filter.Point{Lat: 7, Lon: 100.5}, testMapOptions()))
	if err != nil {
		t.Fatalf("FigureJSON failed: %v", err)
	}
	var fig figure
	if err := json.Unmarshal(b, &fig); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(fig.Series) != 1 || len(fig.Series[0].Data) != 0 {
		t.Errorf("Series = %+v, want one empty series", fig.Series)
	}
}

func TestFitAxis(t *testing.T) {
	v := fitAxis([]float64{99, 101}, 100, 0.5)
	if v.min != 99 || v.max != 101 {
		t.Errorf("extent = %v..%v, want 99..101", v.min, v.max)
	}
	if v.start != 25 || v.end != 75 {
		t.Errorf("window = %v..%v, want 25..75", v.start, v.end)
	}

	empty := fitAxis(nil, 100, 0.5)
	if empty.start != 0 || empty.end != 100 || empty.min != 99.5 || empty.max != 100.5 {
		t.Errorf("empty axis = %+v", empty)
	}
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	rows := sampleRows()
	if err := RenderHTML(&buf, BubbleMap(rows, filter.Center(rows, filter.Point{}), testMapOptions())); err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "echarts") {
		t.Error("page does not load echarts")
	}
	if !strings.Contains(html, config.DefaultTitle) {
		t.Error("page is missing the title")
	}
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.html")
	if err := WriteHTML(path, BubbleMap(sampleRows(), filter.Point{Lat: 7, Lon: 100.5}, testMapOptions())); err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("map file missing or empty: %v", err)
	}
}

func TestGeoJSON(t *testing.T) {
	b, err := GeoJSONBytes(sampleRows())
	if err != nil {
		t.Fatalf("GeoJSONBytes failed: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		t.Fatalf("UnmarshalFeatureCollection failed: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("len(Features) = %d, want 2", len(fc.Features))
	}
	f := fc.Features[0]
	if !f.Geometry.IsPoint() || f.Geometry.Point[0] != 100.47 || f.Geometry.Point[1] != 7.01 {
		t.Errorf("geometry = %+v, want point [100.47 7.01]", f.Geometry)
	}
	if got := f.PropertyMustString(dataset.ColSubDistrict); got != "Kho Hong" {
		t.Errorf("Sub-district = %q, want %q", got, "Kho Hong")
	}
	if got := f.PropertyMustFloat64(dataset.ColMarketShareTrue); got != 35 {
		t.Errorf("Market Share True = %v, want 35", got)
	}
}

func TestGeoJSONEmpty(t *testing.T) {
	b, err := GeoJSONBytes(nil)
	if err != nil {
		t.Fatalf("GeoJSONBytes failed: %v", err)
	}
	if !strings.Contains(string(b), `"features":[]`) {
		t.Errorf("empty collection = %s", b)
	}
}

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	rows := sampleRows()
	sel := filter.Selection{Province: "South", PotentialScore: &filter.Range{Min: 10, Max: 90}}

	if err := SaveXLSX(path, rows, sel, filter.Summarize(rows)); err != nil {
		t.Fatalf("SaveXLSX failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	records, err := f.GetRows(recordsSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(rows) = %d, want header plus 2", len(records))
	}
	if records[0][0] != dataset.ColProvince || records[0][13] != dataset.ColMarketShareNT {
		t.Errorf("header = %v", records[0])
	}
	if records[1][2] != "Kho Hong" || records[1][10] != "35" {
		t.Errorf("first row = %v", records[1])
	}

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("GetRows(summary) failed: %v", err)
	}
	if summary[0][1] != "South" || summary[1][1] != "All" || summary[5][1] != "10 to 90" || summary[4][1] != "Any" {
		t.Errorf("summary = %v", summary)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleRows(), filter.Selection{}, filter.Summary{}); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}
	// xlsx is a zip archive
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("output is not a zip archive")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"red", color.RGBA{R: 255, A: 255}, false},
		{" Green ", color.RGBA{G: 128, A: 255}, false},
		{"#1a9850", color.RGBA{R: 0x1a, G: 0x98, B: 0x50, A: 255}, false},
		{"#f00", color.RGBA{R: 255, A: 255}, false},
		{"#12345", color.RGBA{}, true},
		{"#zzzzzz", color.RGBA{}, true},
		{"chartreuse", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	rows := sampleRows()
	if err := WritePNG(&buf, rows, filter.Center(rows, filter.Point{}), testMapOptions(), 4, 3); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestSnapshotBadColor(t *testing.T) {
	o := testMapOptions()
	o.ColorLow = "not-a-color"
	if _, err := Snapshot(sampleRows(), filter.Point{}, o); err == nil {
		t.Error("expected error for invalid color")
	}
}
