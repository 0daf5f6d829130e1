package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"github.com/southsales/tolmap/output"
	"github.com/southsales/tolmap/testutil"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ds, err := dataset.LoadCSV(strings.NewReader(testutil.SampleCSV()), "sample.csv")
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}
	s := New(ds, config.Default(), nil)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s failed: %v", path, err)
	}
	return resp, body
}

func TestOptionsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name  string
		query string
		want  filter.Options
	}{
		{
			name:  "no selection",
			query: "",
			want: filter.Options{
				Provinces:    []string{"South", "Andaman"},
				Districts:    []string{"Hat Yai", "Mueang Songkhla", "Mueang Phuket", "Kathu"},
				SubDistricts: []string{"Kho Hong", "Khlong Hae", "Bo Yang", "Talat Yai", "Patong"},
				HappyBlocks:  []string{"HB-01", "HB-02", "HB-03", "HB-04", "HB-05", "HB-06", "HB-07"},
			},
		},
		{
			name:  "province and district",
			query: "province=South&district=Hat+Yai",
			want: filter.Options{
				Provinces:    []string{"South", "Andaman"},
				Districts:    []string{"Hat Yai", "Mueang Songkhla"},
				SubDistricts: []string{"Kho Hong", "Khlong Hae"},
				HappyBlocks:  []string{"HB-01", "HB-02", "HB-03", "HB-04"},
			},
		},
		{
			name:  "unknown province",
			query: "province=North",
			want: filter.Options{
				Provinces:    []string{"South", "Andaman"},
				Districts:    []string{},
				SubDistricts: []string{},
				HappyBlocks:  []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, ts, "/api/options?"+tt.query)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			var got filter.Options
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("options = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOptionsEmptyListsAreArrays(t *testing.T) {
	_, ts := newTestServer(t)
	_, body := get(t, ts, "/api/options?province=North")
	if !bytes.Contains(body, []byte(`"districts":[]`)) {
		t.Errorf("body = %s, want districts as []", body)
	}
}

func TestFigureEndpointSeriesLength(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		query string
		want  int
	}{
		{"", 7},
		{"province=South", 5},
		{"province=South&district=Hat+Yai&subdistrict=Kho+Hong", 3},
		{"potential_min=50&potential_max=100", 4},
		{"net_add_min=0&net_add_max=10&province=South", 4},
		{"potential_min=0&potential_max=5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, body := get(t, ts, "/api/figure?"+tt.query)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
			}
			var fig struct {
				Series []struct {
					Data []json.RawMessage `json:"data"`
				} `json:"series"`
			}
			if err := json.Unmarshal(body, &fig); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if len(fig.Series) != 1 {
				t.Fatalf("len(series) = %d, want 1", len(fig.Series))
			}
			if got := len(fig.Series[0].Data); got != tt.want {
				t.Errorf("series length = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBadParameters(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{
		"/api/figure?net_add_min=abc",
		"/api/records?potential_max=high",
		"/api/options?market_share_min=1,5",
		"/api/geojson?potential_min=80&potential_max=20",
		"/api/records?limit=-1",
		"/map?net_add_max=x",
		"/api/records?net_add_max=Inf",
		"/api/records?potential_min=NaN",
		"/api/figure?market_share_max=-inf",
	} {
		resp, body := get(t, ts, path)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, resp.StatusCode)
			continue
		}
		var e map[string]string
		if err := json.Unmarshal(body, &e); err != nil || e["error"] == "" {
			t.Errorf("GET %s body = %s, want JSON error", path, body)
		}
	}
}

func TestRecordsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/api/records?province=South&limit=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out output.QueryOutput
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.General.TotalRecords != 7 || out.General.FilteredRecords != 5 || out.General.ReturnedRecords != 2 {
		t.Errorf("General = %+v", out.General)
	}
	if out.Summary.Count != 5 {
		t.Errorf("Summary.Count = %d, want 5", out.Summary.Count)
	}
	if len(out.Records) != 2 || out.Records[0].HappyBlock != "HB-01" {
		t.Errorf("Records = %+v", out.Records)
	}
	if out.Filters.Province != "South" {
		t.Errorf("Filters = %+v", out.Filters)
	}
}

func TestRecordsEmptySelectionUsesFallbackCenter(t *testing.T) {
	s, ts := newTestServer(t)

	_, body := get(t, ts, "/api/records?province=North")
	var out output.QueryOutput
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Summary.Count != 0 {
		t.Errorf("Count = %d, want 0", out.Summary.Count)
	}
	if out.Center != s.fallback {
		t.Errorf("Center = %+v, want fallback %+v", out.Center, s.fallback)
	}
	if len(out.Warnings) != 1 || out.Warnings[0].Type != "no_match" {
		t.Errorf("Warnings = %+v", out.Warnings)
	}
}

func TestGeoJSONEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts, "/api/geojson?province=Andaman")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &fc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Errorf("collection = %s with %d features, want 2", fc.Type, len(fc.Features))
	}
}

func TestExportEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/api/export.xlsx?province=South")
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("PK")) {
		t.Errorf("xlsx export status = %d, prefix = %q", resp.StatusCode, body[:min(len(body), 4)])
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "tolmap-export.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	resp, body = get(t, ts, "/api/export.png")
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Errorf("png export status = %d", resp.StatusCode)
	}
}

func TestPages(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("index status = %d", resp.StatusCode)
	}
	page := string(body)
	for _, want := range []string{
		config.DefaultTitle,
		"Select Province",
		"Select Happy Block",
		`<option value="Andaman">Andaman</option>`,
		EchartsURL,
		"100%",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("index page missing %q", want)
		}
	}

	resp, body = get(t, ts, "/map?province=South")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "echarts") {
		t.Errorf("map page status = %d", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
	var health map[string]any
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if health["records"] != float64(7) {
		t.Errorf("records = %v, want 7", health["records"])
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	get(t, ts, "/api/figure")
	_, body = get(t, ts, "/metrics")
	for _, want := range []string{"tolmap_dataset_records 7", `tolmap_requests_total{code="2xx",route="/api/figure"}`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestLayout(t *testing.T) {
	s, ts := newTestServer(t)

	_, body := get(t, ts, "/api/layout")
	var l Layout
	if err := json.Unmarshal(body, &l); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(l, s.layout) {
		t.Errorf("layout over HTTP differs from server layout")
	}

	if len(l.Dropdowns) != 4 || l.Dropdowns[0].Placeholder != "Select Province" || l.Dropdowns[2].Placeholder != "Select Sub-district" {
		t.Errorf("Dropdowns = %+v", l.Dropdowns)
	}
	if len(l.Dropdowns[1].Options) != 0 {
		t.Errorf("District options should start empty, got %v", l.Dropdowns[1].Options)
	}

	netAdd := l.Sliders[0]
	if netAdd.Min != -6 || netAdd.Max != 12 || netAdd.Step != 2 {
		t.Errorf("Net Add slider = %+v, want -6..12 step 2", netAdd)
	}
	if len(netAdd.Marks) != 10 || netAdd.Marks[1].Value != -4 {
		t.Errorf("Net Add marks = %+v, want every 2", netAdd.Marks)
	}

	potential := l.Sliders[1]
	if potential.Min != 0 || potential.Max != 100 || potential.Step != 1 {
		t.Errorf("Potential slider = %+v", potential)
	}
	if len(potential.Marks) != 11 || potential.Marks[5].Label != "50%" {
		t.Errorf("Potential marks = %+v", potential.Marks)
	}

	share := l.Sliders[2]
	if len(share.Marks) != 11 || share.Marks[10].Label != "100" {
		t.Errorf("Market share marks = %+v", share.Marks)
	}
}

func TestMarksWidenForWideRanges(t *testing.T) {
	m := marks(-500, 500, 2, "")
	if len(m) > maxMarks {
		t.Errorf("len(marks) = %d, want at most %d", len(m), maxMarks)
	}
	if m[0].Value != -500 {
		t.Errorf("first mark = %v, want -500", m[0].Value)
	}
}

func TestParseSelection(t *testing.T) {
	q := url.Values{}
	q.Set(ParamProvince, " South ")
	q.Set(ParamNetAddMin, "-2")
	q.Set(ParamPotentialMax, "60")

	sel, err := ParseSelection(q)
	if err != nil {
		t.Fatalf("ParseSelection failed: %v", err)
	}
	if sel.Province != "South" {
		t.Errorf("Province = %q", sel.Province)
	}
	if sel.NetAdd == nil || sel.NetAdd.Min != -2 || sel.NetAdd.Max != posInf {
		t.Errorf("NetAdd = %+v, want open upper bound", sel.NetAdd)
	}
	if sel.PotentialScore == nil || sel.PotentialScore.Min != negInf || sel.PotentialScore.Max != 60 {
		t.Errorf("PotentialScore = %+v, want open lower bound", sel.PotentialScore)
	}
	if sel.MarketShareTrue != nil {
		t.Errorf("MarketShareTrue = %+v, want nil", sel.MarketShareTrue)
	}

	round, err := ParseSelection(EncodeSelection(sel))
	if err != nil {
		t.Fatalf("ParseSelection(EncodeSelection) failed: %v", err)
	}
	if !reflect.DeepEqual(round, sel) {
		t.Errorf("round trip = %+v, want %+v", round, sel)
	}
}
