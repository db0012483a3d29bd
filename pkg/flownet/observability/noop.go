package observability

import (
	"context"
	"time"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordStep does nothing.
func (NoopMetrics) RecordStep(_ context.Context, _ time.Duration, _ error) {}

// RecordNodeCalculation does nothing.
func (NoopMetrics) RecordNodeCalculation(_ context.Context, _ string) {}

// RecordBudgetViolation does nothing.
func (NoopMetrics) RecordBudgetViolation(_ context.Context, _ string) {}
