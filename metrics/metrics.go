package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tolmap_requests_total",
		Help: "Total number of HTTP requests by route and status class",
	}, []string{"route", "code"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tolmap_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	FilteredRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tolmap_filtered_rows",
		Help:    "Rows surviving the filters per figure or records request",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tolmap_empty_results_total",
		Help: "Total number of filter evaluations that matched no rows",
	})
	ExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tolmap_exports_total",
		Help: "Total exports by format",
	}, []string{"format"})
	DatasetRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tolmap_dataset_records",
		Help: "Number of records in the loaded dataset",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(FilteredRows)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(ExportsTotal)
	prometheus.MustRegister(DatasetRecords)
}

// ObserveFilter records the size of one filtered view.
func ObserveFilter(rows int) {
	FilteredRows.Observe(float64(rows))
	if rows == 0 {
		EmptyResultsTotal.Inc()
	}
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
