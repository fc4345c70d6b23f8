package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsMeterName is the meter name for engine instruments.
const MetricsMeterName = "github.com/roach88/turbine/engine"

// Metrics holds the OpenTelemetry instruments for the engine.
// A nil *Metrics records nothing.
type Metrics struct {
	passDuration metric.Float64Histogram
	dispatches   metric.Int64Counter
	deferrals    metric.Int64Counter
	faults       metric.Int64Counter
	promotions   metric.Int64Counter
}

// NewMetrics creates engine instruments from provider.
// If provider is nil, it returns nil (no-op metrics).
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(MetricsMeterName)

	passDuration, err := meter.Float64Histogram(
		"turbine_pass_duration_seconds",
		metric.WithDescription("Duration of orchestrator passes in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter(
		"turbine_dispatches_total",
		metric.WithDescription("Number of batches dispatched to generators"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	deferrals, err := meter.Int64Counter(
		"turbine_deferrals_total",
		metric.WithDescription("Number of declarations deferred to a later pass"),
		metric.WithUnit("{declaration}"),
	)
	if err != nil {
		return nil, err
	}

	faults, err := meter.Int64Counter(
		"turbine_generator_faults_total",
		metric.WithDescription("Number of isolated generator faults"),
		metric.WithUnit("{fault}"),
	)
	if err != nil {
		return nil, err
	}

	promotions, err := meter.Int64Counter(
		"turbine_promoted_deferrals_total",
		metric.WithDescription("Number of deferrals promoted to errors at the final pass"),
		metric.WithUnit("{declaration}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		passDuration: passDuration,
		dispatches:   dispatches,
		deferrals:    deferrals,
		faults:       faults,
		promotions:   promotions,
	}, nil
}

// RecordPass records the duration of one pass.
func (m *Metrics) RecordPass(ctx context.Context, pass int, final bool, d time.Duration) {
	if m == nil || m.passDuration == nil {
		return
	}
	m.passDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.Int("pass", pass),
		attribute.Bool("final", final),
	))
}

// RecordDispatch counts one Process call.
func (m *Metrics) RecordDispatch(ctx context.Context, generator string, tag string) {
	if m == nil || m.dispatches == nil {
		return
	}
	m.dispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("generator", generator),
		attribute.String("tag", tag),
	))
}

// RecordDeferrals counts declarations added to a generator's ledger.
func (m *Metrics) RecordDeferrals(ctx context.Context, generator string, n int) {
	if m == nil || m.deferrals == nil || n == 0 {
		return
	}
	m.deferrals.Add(ctx, int64(n), metric.WithAttributes(attribute.String("generator", generator)))
}

// RecordFault counts one isolated fault.
func (m *Metrics) RecordFault(ctx context.Context, generator string) {
	if m == nil || m.faults == nil {
		return
	}
	m.faults.Add(ctx, 1, metric.WithAttributes(attribute.String("generator", generator)))
}

// RecordPromotions counts deferrals promoted to errors.
func (m *Metrics) RecordPromotions(ctx context.Context, generator string, n int) {
	if m == nil || m.promotions == nil || n == 0 {
		return
	}
	m.promotions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("generator", generator)))
}
