package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/southsales/tolmap/config"
	"github.com/southsales/tolmap/dataset"
	"github.com/southsales/tolmap/filter"
	"github.com/southsales/tolmap/logging"
	"github.com/southsales/tolmap/metrics"
	"github.com/southsales/tolmap/output"
)

// Server serves the dashboard over one read-only dataset. Handlers share no
// mutable state, so requests run fully in parallel.
type Server struct {
	ds       *dataset.Dataset
	cfg      *config.Config
	log      *zap.Logger
	resolver *filter.Resolver
	mapOpts  output.MapOptions
	fallback filter.Point
	layout   Layout
}

// New prepares a server. cfg must already be validated.
func New(ds *dataset.Dataset, cfg *config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	def := filter.Point{Lat: cfg.Map.DefaultCenterLat, Lon: cfg.Map.DefaultCenterLon}
	s := &Server{
		ds:       ds,
		cfg:      cfg,
		log:      log,
		resolver: filter.NewResolver(ds),
		mapOpts:  output.MapOptionsFromConfig(cfg),
		fallback: filter.DatasetCenter(ds, def),
	}
	s.layout = BuildLayout(ds, cfg, s.resolver)
	metrics.DatasetRecords.Set(float64(ds.Len()))
	return s
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(logging.AccessMiddleware(s.log))
	r.Use(chimw.Recoverer)
	r.Use(instrument)

	r.Get("/", s.handleIndex)
	r.Get("/map", s.handleMap)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/layout", s.handleLayout)
		api.Get("/options", s.handleOptions)
		api.Get("/figure", s.handleFigure)
		api.Get("/records", s.handleRecords)
		api.Get("/geojson", s.handleGeoJSON)
		api.Get("/export.xlsx", s.handleXLSX)
		api.Get("/export.png", s.handlePNG)
	})

	return r
}

// instrument records request counts and latency per route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Inc()
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         net.JoinHostPort("", s.cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening",
			zap.String("addr", "http://localhost:"+s.cfg.Server.Port),
			zap.Int("records", s.ds.Len()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down dashboard")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}
