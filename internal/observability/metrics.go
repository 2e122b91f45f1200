package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for case intake.
type Metrics struct {
	CasesSubmitted     *prometheus.CounterVec // labels: operation={created,updated}
	ValidationFailures prometheus.Counter
	StoreSize          prometheus.Gauge

	// Persistence metrics.
	FileSaves        *prometheus.CounterVec // labels: outcome={success,error}
	FileLoads        *prometheus.CounterVec // labels: outcome={success,empty,error}
	FileSaveDuration prometheus.Histogram

	// Case event publishing.
	EventsPublished *prometheus.CounterVec // labels: outcome={success,error}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all intake metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CasesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "case_intake",
			Name:      "cases_submitted_total",
			Help:      "Cases accepted from a front end, by operation.",
		}, []string{"operation"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "case_intake",
			Name:      "validation_failures_total",
			Help:      "Forms rejected before a case was built.",
		}),
		StoreSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "case_intake",
			Name:      "store_cases",
			Help:      "Number of cases held in memory.",
		}),
		FileSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "case_intake",
			Name:      "file_saves_total",
			Help:      "Full rewrites of the case file, by outcome.",
		}, []string{"outcome"}),
		FileLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "case_intake",
			Name:      "file_loads_total",
			Help:      "Full reads of the case file, by outcome.",
		}, []string{"outcome"}),
		FileSaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "case_intake",
			Name:      "file_save_duration_seconds",
			Help:      "Duration of a full case file rewrite.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "case_intake",
			Name:      "events_published_total",
			Help:      "Case events written to Kafka, by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "case_intake",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "case_intake",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "case_intake",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "case_intake",
			Name:      "geocode_enabled",
			Help:      "1 when location geocoding is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.CasesSubmitted,
		m.ValidationFailures,
		m.StoreSize,
		m.FileSaves,
		m.FileLoads,
		m.FileSaveDuration,
		m.EventsPublished,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics outside the default registry, for
// tests and one-shot command-line runs that expose no /metrics endpoint.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		CasesSubmitted:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "case_intake", Name: "cases_submitted_total"}, []string{"operation"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "case_intake", Name: "validation_failures_total"}),
		StoreSize:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "case_intake", Name: "store_cases"}),
		FileSaves:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "case_intake", Name: "file_saves_total"}, []string{"outcome"}),
		FileLoads:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "case_intake", Name: "file_loads_total"}, []string{"outcome"}),
		FileSaveDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "case_intake", Name: "file_save_duration_seconds"}),
		EventsPublished:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "case_intake", Name: "events_published_total"}, []string{"outcome"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "case_intake", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "case_intake", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "case_intake", Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "case_intake", Name: "geocode_enabled"}),
	}
}
