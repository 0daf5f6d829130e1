package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"github.com/southsales/tolmap/metrics"
	"github.com/southsales/tolmap/output"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// view is one evaluated request: the selection, its rows and its center.
type view struct {
	sel    filter.Selection
	rows   []dataset.Record
	center filter.Point
}

// evaluate parses the filters and runs them. It writes a 400 and returns false
// when the parameters are malformed.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) (view, bool) {
	sel, err := ParseSelection(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return view{}, false
	}
	rows := filter.Run(s.ds, sel, s.cfg.Map.ParallelThreshold, s.cfg.Map.Workers)
	metrics.ObserveFilter(len(rows))
	return view{sel: sel, rows: rows, center: filter.Center(rows, s.fallback)}, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, s.layout); err != nil {
		s.log.Error("rendering dashboard page", zap.Error(err))
	}
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.layout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"records":  s.ds.Len(),
		"loadedAt": s.ds.LoadedAt,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sel, err := ParseSelection(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.resolver.Cascade(sel))
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	v, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	b, err := output.FigureJSON(output.BubbleMap(v.rows, v.center, s.mapOpts))
	if err != nil {
		s.log.Error("building figure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build figure")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	v, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := output.RenderHTML(w, output.BubbleMap(v.rows, v.center, s.mapOpts)); err != nil {
		s.log.Error("rendering map page", zap.Error(err))
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, ok := s.evaluate(w, r)
	if !ok {
		return
	}

	out := output.NewQueryOutput("records", start)
	out.General = output.General{
		DataFile:     s.ds.Source,
		LoadedAt:     s.ds.LoadedAt,
		TotalRecords: s.ds.Len(),
		Parallel:     s.cfg.Map.ParallelThreshold > 0 && s.ds.Len() >= s.cfg.Map.ParallelThreshold,
	}
	out.Filters = v.sel
	out.Center = v.center
	out.Summary = filter.Summarize(v.rows)
	out.SetRecords(v.rows, limit)
	if len(v.rows) == 0 {
		out.AddWarning("no_match", "no rows match the filters", 0)
	}
	out.UpdateDuration(start)

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	v, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	b, err := output.GeoJSONBytes(v.rows)
	if err != nil {
		s.log.Error("encoding geojson", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode geojson")
		return
	}
	metrics.ExportsTotal.WithLabelValues("geojson").Inc()
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(b)
}

func (s *Server) handleXLSX(w http.ResponseWriter, r *http.Request) {
	v, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	f, err := output.Workbook(v.rows, v.sel, filter.Summarize(v.rows))
	if err != nil {
		s.log.Error("building workbook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	defer f.Close()

	metrics.ExportsTotal.WithLabelValues("xlsx").Inc()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tolmap-export.xlsx"`)
	if _, err := f.WriteTo(w); err != nil {
		s.log.Error("writing workbook", zap.Error(err))
	}
}

func (s *Server) handlePNG(w http.ResponseWriter, r *http.Request) {
	v, ok := s.evaluate(w, r)
	if !ok {
		return
	}
	p, err := output.Snapshot(v.rows, v.center, s.mapOpts)
	if err != nil {
		s.log.Error("building snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	wt, err := output.PNGWriter(p, 10, 8)
	if err != nil {
		s.log.Error("preparing snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render snapshot")
		return
	}

	metrics.ExportsTotal.WithLabelValues("png").Inc()
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		s.log.Error("writing snapshot", zap.Error(err))
	}
}
