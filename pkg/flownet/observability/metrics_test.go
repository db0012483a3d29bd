package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a test meter provider backed by a manual reader.
func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	})

	return reader
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

// findMetric finds a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumValue returns the total of an Int64 sum metric across all attribute sets.
func sumValue(m *metricdata.Metrics) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

// The recorder initializes against the global meter provider once per
// process, so all recording assertions share a single reader.
func TestMetricsRecorder(t *testing.T) {
	reader := setupMetricsTest(t)
	recorder := NewMetricsRecorder()
	ctx := context.Background()

	t.Run("records steps and latency", func(t *testing.T) {
		recorder.RecordStep(ctx, 5*time.Millisecond, nil)
		recorder.RecordStep(ctx, 2*time.Millisecond, errors.New("failed"))

		rm := collectMetrics(t, reader)

		steps := findMetric(rm, "flownet.step.count")
		require.NotNil(t, steps)
		assert.Equal(t, int64(2), sumValue(steps))

		stepErrors := findMetric(rm, "flownet.step.errors")
		require.NotNil(t, stepErrors)
		assert.Equal(t, int64(1), sumValue(stepErrors))

		latency := findMetric(rm, "flownet.step.latency_ms")
		require.NotNil(t, latency)
		hist, ok := latency.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	})

	t.Run("records node calculations tagged by kind", func(t *testing.T) {
		recorder.RecordNodeCalculation(ctx, "channel")
		recorder.RecordNodeCalculation(ctx, "channel")
		recorder.RecordNodeCalculation(ctx, "reservoir")

		rm := collectMetrics(t, reader)

		calcs := findMetric(rm, "flownet.node.calculations")
		require.NotNil(t, calcs)
		sum, ok := calcs.Data.(metricdata.Sum[int64])
		require.True(t, ok)

		byKind := map[string]int64{}
		for _, dp := range sum.DataPoints {
			if v, found := dp.Attributes.Value(attribute.Key("kind")); found {
				byKind[v.AsString()] = dp.Value
			}
		}
		assert.Equal(t, int64(2), byKind["channel"])
		assert.Equal(t, int64(1), byKind["reservoir"])
	})

	t.Run("records budget violations", func(t *testing.T) {
		recorder.RecordBudgetViolation(ctx, "graph")

		rm := collectMetrics(t, reader)

		violations := findMetric(rm, "flownet.budget.violations")
		require.NotNil(t, violations)
		assert.Equal(t, int64(1), sumValue(violations))
	})
}
