package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/roach88/turbine/internal/engine"
)

// runMetrics collects engine instruments in process for one run.
type runMetrics struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

func newRunMetrics() *runMetrics {
	reader := sdkmetric.NewManualReader()
	return &runMetrics{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// Snapshot returns one value per engine instrument: the total for
// counters and the number of recorded samples for histograms.
func (m *runMetrics) Snapshot(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	out := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != engine.MetricsMeterName {
			continue
		}
		for _, metric := range scope.Metrics {
			switch data := metric.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				out[metric.Name] = total
			case metricdata.Histogram[float64]:
				var count uint64
				for _, dp := range data.DataPoints {
					count += dp.Count
				}
				out[metric.Name] = int64(count)
			}
		}
	}
	return out, nil
}

func (m *runMetrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

func writeMetricsText(w io.Writer, values map[string]int64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s %d\n", name, values[name])
	}
}
