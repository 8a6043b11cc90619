package service

import (
	"context"
	"fmt"

	"github.com/evyataryagoni/ipgeocode/internal/metrics"
	"github.com/evyataryagoni/ipgeocode/internal/models"
	"github.com/evyataryagoni/ipgeocode/internal/store"
)

// KeyProvider supplies the API key of a run
// Implemented by the credentials package
type KeyProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// Run outcomes, used as the metric label of geo_batch_runs_total
const (
	OutcomeSuccess         = "success"
	OutcomeInputError      = "input_error"
	OutcomeCredentialError = "credential_error"
	OutcomeEnrichError     = "enrich_error"
	OutcomeSinkError       = "sink_error"
)

// Job wires one complete run: input -> credential -> enrich -> output
//
// Flow:
//  1. Read the ordered IP list from the source
//  2. Obtain the API key
//  3. Enrich every IP
//  4. Write all results to the sink
//
// Any failure in steps 1, 2 or 4 aborts the run. When the input or the
// key cannot be obtained, no API call is made and nothing is written.
type Job struct {
	keys     KeyProvider
	enricher *Enricher
	metrics  *metrics.Metrics
}

// NewJob creates a job
//
// Parameters:
//   - keys: where the API key comes from
//   - enricher: the batch enricher
//   - m: metrics collector (optional, can be nil)
func NewJob(keys KeyProvider, enricher *Enricher, m *metrics.Metrics) *Job {
	return &Job{
		keys:     keys,
		enricher: enricher,
		metrics:  m,
	}
}

// Run processes source into sink and summarizes the result
func (j *Job) Run(ctx context.Context, source store.Source, sink store.Sink) (models.RunSummary, error) {
	ips, err := source.ReadIPs(ctx)
	if err != nil {
		j.outcome(OutcomeInputError)
		return models.RunSummary{}, fmt.Errorf("failed to read input %s: %w", source, err)
	}

	apiKey, err := j.keys.APIKey(ctx)
	if err != nil {
		j.outcome(OutcomeCredentialError)
		return models.RunSummary{}, fmt.Errorf("failed to obtain API key: %w", err)
	}

	results, err := j.enricher.Run(ctx, apiKey, ips)
	if err != nil {
		j.outcome(OutcomeEnrichError)
		return models.RunSummary{}, err
	}

	if err := sink.Write(ctx, results); err != nil {
		j.outcome(OutcomeSinkError)
		return models.RunSummary{}, fmt.Errorf("failed to write output %s: %w", sink, err)
	}

	j.outcome(OutcomeSuccess)
	return Summarize(results, sink.String()), nil
}

// Summarize counts rows and failures of a finished batch
func Summarize(results []models.GeoResult, output string) models.RunSummary {
	summary := models.RunSummary{
		Rows:   len(results),
		Output: output,
	}
	for _, r := range results {
		if !r.OK() {
			summary.Failures++
		}
	}
	return summary
}

func (j *Job) outcome(outcome string) {
	if j.metrics != nil {
		j.metrics.BatchRunsTotal.WithLabelValues(outcome).Inc()
	}
}
