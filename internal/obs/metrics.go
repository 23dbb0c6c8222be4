package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ScanCellsTotal      *prometheus.CounterVec
	ScanRowsWritten     prometheus.Counter
	UpstreamErrorsTotal prometheus.Counter
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter

	UpstreamLatency     prometheus.Histogram
	HTTPRequestDuration *prometheus.HistogramVec

	Registry *prometheus.Registry
}

// NewMetrics creates and registers all collectors on the given registry.
func NewMetrics(p *prometheus.Registry) *Metrics {
	m := &Metrics{
		ScanCellsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fare_scan_cells_total",
			Help: "Scanned (departure, stay) cells by outcome",
		}, []string{"outcome"}),
		ScanRowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fare_scan_rows_written_total",
			Help: "Snapshot rows committed to the store",
		}),
		UpstreamErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fare_upstream_errors_total",
			Help: "Failed upstream calendar fetches",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fare_live_cache_hits_total",
			Help: "Live-query cache hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fare_live_cache_misses_total",
			Help: "Live-query cache misses",
		}),
		UpstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fare_upstream_latency_seconds",
			Help:    "Latency of upstream calendar fetches",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		Registry: p,
	}

	p.MustRegister(
		m.ScanCellsTotal,
		m.ScanRowsWritten,
		m.UpstreamErrorsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.UpstreamLatency,
		m.HTTPRequestDuration,
	)

	return m
}

// Scan cell outcomes.
const (
	CellOutcomePriced  = "priced"
	CellOutcomeNoMatch = "no_match"
	CellOutcomeFailed  = "failed"
)

func (m *Metrics) IncScanCell(outcome string) { m.ScanCellsTotal.WithLabelValues(outcome).Inc() }
func (m *Metrics) AddRowsWritten(n int)       { m.ScanRowsWritten.Add(float64(n)) }
func (m *Metrics) IncUpstreamError()          { m.UpstreamErrorsTotal.Inc() }
func (m *Metrics) IncCacheHit()               { m.CacheHitsTotal.Inc() }
func (m *Metrics) IncCacheMiss()              { m.CacheMissesTotal.Inc() }

func (m *Metrics) ObserveUpstreamLatency(s float64) { m.UpstreamLatency.Observe(s) }

func (m *Metrics) ObserveHTTPRequestDuration(method, path, status string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
