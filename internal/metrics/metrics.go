// Package metrics holds the Prometheus collectors for the analysis service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. Collectors are
// registered on the registerer passed to New, so tests can use private
// registries.
type Metrics struct {
	ScansTotal       *prometheus.CounterVec
	ScanDuration     prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	SlotFailures     *prometheus.CounterVec
	ModelFallbacks   prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates and registers all metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etherlens_scans_total",
			Help: "Completed analyses by address kind and risk tier",
		}, []string{"kind", "tier"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "etherlens_scan_duration_seconds",
			Help:    "End-to-end analysis duration on cache miss",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "etherlens_cache_hits_total",
			Help: "Analyses served from the result cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "etherlens_cache_misses_total",
			Help: "Analyses that required a full pipeline run",
		}),
		SlotFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etherlens_slot_failures_total",
			Help: "Aggregation slots that failed, by slot name",
		}, []string{"slot"}),
		ModelFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "etherlens_model_fallbacks_total",
			Help: "Scoring runs that degraded to heuristics-only",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etherlens_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		RequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "etherlens_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
	}
}
