// Package observe provides observability primitives for scriptforge:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// A package-level default [Metrics] instance is deliberately not provided;
// construct one with [NewMetrics] and pass it to the orchestrator, so tests
// can use a private MeterProvider and avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scriptforge metrics.
const meterName = "scriptforge"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// JobDuration tracks wall time from dispatch to terminal state.
	// Use with attribute.String("state", ...).
	JobDuration metric.Float64Histogram

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts failed provider calls. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// JobsFinished counts jobs reaching a terminal state. Use with attribute:
	//   attribute.String("state", ...)
	JobsFinished metric.Int64Counter
}

// jobDurationBuckets defines histogram bucket boundaries (in seconds) sized
// for LLM batch jobs, which run seconds to minutes rather than milliseconds.
var jobDurationBuckets = []float64{
	1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.JobDuration, err = m.Float64Histogram("scriptforge.job.duration",
		metric.WithDescription("Wall time from job dispatch to terminal state."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(jobDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("scriptforge.provider.requests",
		metric.WithDescription("Total provider API requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("scriptforge.provider.errors",
		metric.WithDescription("Failed provider API requests by provider."),
	); err != nil {
		return nil, err
	}
	if met.JobsFinished, err = m.Int64Counter("scriptforge.jobs.finished",
		metric.WithDescription("Jobs reaching a terminal state, by state."),
	); err != nil {
		return nil, err
	}
	return met, nil
}
