package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels recorded on pipeline instruments.
const (
	OutcomeOK = "ok"
)

// PipelineMetrics holds the instruments for one weather acquisition cycle.
type PipelineMetrics struct {
	fetchDuration    metric.Float64Histogram
	fetchTotal       metric.Int64Counter
	locationDuration metric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on meter. A nil meter
// uses the global one.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = Meter("github.com/weatherapp/weatherapp/internal/pipeline")
	}

	fetchDuration, err := meter.Float64Histogram(
		"weather.fetch.duration",
		metric.WithDescription("Duration of weather provider fetches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fetchTotal, err := meter.Int64Counter(
		"weather.fetch.total",
		metric.WithDescription("Total number of weather fetches by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	locationDuration, err := meter.Float64Histogram(
		"location.fix.duration",
		metric.WithDescription("Time to obtain a location fix in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		fetchDuration:    fetchDuration,
		fetchTotal:       fetchTotal,
		locationDuration: locationDuration,
	}, nil
}

// RecordFetch records one weather fetch. outcome is OutcomeOK or an error
// kind label.
func (m *PipelineMetrics) RecordFetch(ctx context.Context, provider string, duration time.Duration, outcome string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("outcome", outcome),
	)
	m.fetchDuration.Record(ctx, duration.Seconds(), attrs)
	m.fetchTotal.Add(ctx, 1, attrs)
}

// RecordLocationFix records the time spent waiting for a position.
func (m *PipelineMetrics) RecordLocationFix(ctx context.Context, duration time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.locationDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}
