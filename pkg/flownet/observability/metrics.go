package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records simulation metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStep records one completed step with its duration and error status.
	RecordStep(ctx context.Context, duration time.Duration, err error)

	// RecordNodeCalculation records one node calculate call, tagged by kind.
	RecordNodeCalculation(ctx context.Context, kind string)

	// RecordBudgetViolation records a budget residual exceeding tolerance,
	// tagged by kind ("graph" for the aggregate check).
	RecordBudgetViolation(ctx context.Context, kind string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	steps            metric.Int64Counter
	stepLatency      metric.Float64Histogram
	stepErrors       metric.Int64Counter
	calculations     metric.Int64Counter
	budgetViolations metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flownet")

	steps, err := meter.Int64Counter("flownet.step.count",
		metric.WithDescription("Number of simulation steps executed"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("flownet.step.latency_ms",
		metric.WithDescription("Step calculate latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter("flownet.step.errors",
		metric.WithDescription("Number of failed steps"),
	)
	if err != nil {
		return nil, err
	}

	calculations, err := meter.Int64Counter("flownet.node.calculations",
		metric.WithDescription("Number of node calculate calls"),
	)
	if err != nil {
		return nil, err
	}

	budgetViolations, err := meter.Int64Counter("flownet.budget.violations",
		metric.WithDescription("Number of budget residuals exceeding tolerance"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		steps:            steps,
		stepLatency:      stepLatency,
		stepErrors:       stepErrors,
		calculations:     calculations,
		budgetViolations: budgetViolations,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStep records one completed step.
func (m *otelMetrics) RecordStep(ctx context.Context, duration time.Duration, err error) {
	m.steps.Add(ctx, 1)
	m.stepLatency.Record(ctx, float64(duration.Microseconds())/1000)
	if err != nil {
		m.stepErrors.Add(ctx, 1)
	}
}

// RecordNodeCalculation records one node calculate call.
func (m *otelMetrics) RecordNodeCalculation(ctx context.Context, kind string) {
	m.calculations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordBudgetViolation records a budget violation.
func (m *otelMetrics) RecordBudgetViolation(ctx context.Context, kind string) {
	m.budgetViolations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}
