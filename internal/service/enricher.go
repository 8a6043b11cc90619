package service

import (
	"context"
	"fmt"
	"time"

	"github.com/evyataryagoni/ipgeocode/internal/limiter"
	"github.com/evyataryagoni/ipgeocode/internal/metrics"
	"github.com/evyataryagoni/ipgeocode/internal/models"
)

// Fetcher geolocates a single IP address
// Implemented by *geo.Client; every failure is reported through the result
type Fetcher interface {
	Fetch(ctx context.Context, apiKey, ip string) models.GeoResult
}

// Logger receives batch level events
type Logger interface {
	BatchCompleted(rows, failures int, took time.Duration)
}

// Enricher geolocates an ordered batch of IP addresses
// This is the service layer - it sits between the sources/sinks and the API client
//
// Responsibilities:
//   - Create a fresh rate window for every run
//   - Consult the limiter before every call
//   - Keep one result per input, in input order
type Enricher struct {
	fetcher    Fetcher
	newLimiter limiter.Factory
	metrics    *metrics.Metrics
	logger     Logger
}

// NewEnricher creates a new batch enricher
//
// Parameters:
//   - fetcher: the API client
//   - newLimiter: creates the rate window of a run
//   - m: metrics collector (optional, can be nil)
//   - log: batch logger (optional, can be nil)
func NewEnricher(fetcher Fetcher, newLimiter limiter.Factory, m *metrics.Metrics, log Logger) *Enricher {
	return &Enricher{
		fetcher:    fetcher,
		newLimiter: newLimiter,
		metrics:    m,
		logger:     log,
	}
}

// Run geolocates ips sequentially and returns exactly len(ips) results,
// results[i].IP == ips[i]. Individual failures never stop the batch.
//
// The only error is failing to create the rate window, in which case no
// call is made at all. A started run always covers the whole input:
// cancelling ctx does not abort the remaining calls.
func (e *Enricher) Run(ctx context.Context, apiKey string, ips []string) ([]models.GeoResult, error) {
	ctx = context.WithoutCancel(ctx)

	lim, err := e.newLimiter()
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	defer lim.Close()

	start := time.Now()
	results := make([]models.GeoResult, 0, len(ips))
	failures := 0

	for _, ip := range ips {
		lim.Admit()

		result := e.fetcher.Fetch(ctx, apiKey, ip)

		// The output row always carries the input token
		result.IP = ip

		if !result.OK() {
			failures++
		}
		e.observe(result)

		results = append(results, result)
	}

	took := time.Since(start)
	if e.metrics != nil {
		e.metrics.BatchDuration.Observe(took.Seconds())
		e.metrics.BatchRowsTotal.Add(float64(len(results)))
	}
	if e.logger != nil {
		e.logger.BatchCompleted(len(results), failures, took)
	}

	return results, nil
}

func (e *Enricher) observe(result models.GeoResult) {
	if e.metrics == nil {
		return
	}

	if result.OK() {
		e.metrics.GeoLookupsTotal.WithLabelValues("success").Inc()
		return
	}

	e.metrics.GeoLookupsTotal.WithLabelValues("failure").Inc()
	e.metrics.GeoLookupFailures.WithLabelValues(string(result.Failure)).Inc()
}
