package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/generator"
	"github.com/roach88/turbine/internal/ir"
)

type deferringGenerator struct {
	generator.Base
}

func (deferringGenerator) Process(context.Context, *generator.Pass, []ir.Declaration) deferral.Outcome {
	return deferral.Deferred(deferral.New("later"))
}

type faultingGenerator struct {
	generator.Base
}

func (faultingGenerator) Process(context.Context, *generator.Pass, []ir.Declaration) deferral.Outcome {
	return deferral.Fault(errors.New("broken"))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != MetricsMeterName {
			continue
		}
		for _, m := range scope.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("no-op when metrics is nil", func(t *testing.T) {
		t.Parallel()

		var metrics *Metrics
		// Should not panic
		metrics.RecordPass(context.Background(), 1, false, time.Second)
		metrics.RecordDispatch(context.Background(), "g", "X")
		metrics.RecordDeferrals(context.Background(), "g", 3)
		metrics.RecordFault(context.Background(), "g")
		metrics.RecordPromotions(context.Background(), "g", 1)
	})
}

func TestEngineRecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	reg := generator.NewRegistry()
	reg.MustRegister("later", generator.Of(deferringGenerator{generator.Base{ID: "later", Tags: []ir.Tag{"A"}}}))
	reg.MustRegister("broken", generator.Of(faultingGenerator{generator.Base{ID: "broken", Tags: []ir.Tag{"B"}}}))

	e, err := New(reg, nil, WithMeterProvider(mp))
	require.NoError(t, err)

	a1 := ir.NewDecl("a1", "a1", ir.KindType).AddAnnotation("A", nil)
	a2 := ir.NewDecl("a2", "a2", ir.KindType).AddAnnotation("A", nil)
	b := ir.NewDecl("b", "b", ir.KindType).AddAnnotation("B", nil)

	ctx := context.Background()
	require.NoError(t, e.RunPass(ctx, ir.TaggedSet{"A": {a1, a2}, "B": {b}}, false))
	require.NoError(t, e.RunPass(ctx, nil, true))

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["turbine_dispatches_total"]))
	assert.Equal(t, int64(2), sumOf(t, data["turbine_deferrals_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["turbine_generator_faults_total"]))
	assert.Equal(t, int64(2), sumOf(t, data["turbine_promoted_deferrals_total"]))

	hist, ok := data["turbine_pass_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}
