package metrics

import (
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Geolocation Metrics
	GeoLookupsTotal      *prometheus.CounterVec
	GeoLookupFailures    *prometheus.CounterVec
	GeoRateLimitPauses   prometheus.Counter
	GeoRateLimitWaitTime prometheus.Counter

	// Batch Metrics
	BatchDuration  prometheus.Histogram
	BatchRowsTotal prometheus.Counter
	BatchRunsTotal *prometheus.CounterVec
}

// New creates all Prometheus metrics and registers them with reg
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "endpoint", "status"},
		),

		// Geolocation Metrics
		GeoLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_lookups_total",
				Help: "Total number of geolocation API calls",
			},
			[]string{"result"},
		),

		GeoLookupFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_lookup_failures_total",
				Help: "Total number of failed geolocation calls by failure kind",
			},
			[]string{"kind"},
		),

		GeoRateLimitPauses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "geo_rate_limit_pauses_total",
				Help: "Total number of rate window pauses",
			},
		),

		GeoRateLimitWaitTime: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "geo_rate_limit_wait_seconds_total",
				Help: "Total time spent waiting for the rate window",
			},
		),

		// Batch Metrics
		BatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "geo_batch_duration_seconds",
				Help:    "Duration of a batch run in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),

		BatchRowsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "geo_batch_rows_total",
				Help: "Total number of rows produced by batch runs",
			},
		),

		BatchRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geo_batch_runs_total",
				Help: "Total number of batch runs by outcome",
			},
			[]string{"outcome"},
		),
	}

	// Expose every failure kind from the start, even at zero
	for _, kind := range models.FailureKinds {
		m.GeoLookupFailures.WithLabelValues(string(kind))
	}

	return m
}

// ObservePause records one rate window pause
// Its signature matches limiter.PauseFunc
func (m *Metrics) ObservePause(calls int, wait time.Duration) {
	m.GeoRateLimitPauses.Inc()
	m.GeoRateLimitWaitTime.Add(wait.Seconds())
}
