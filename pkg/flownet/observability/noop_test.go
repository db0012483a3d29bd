package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics_ImplementsInterface(t *testing.T) {
	var _ MetricsRecorder = NoopMetrics{}
}

func TestNoopMetrics_RecordStep(t *testing.T) {
	m := NoopMetrics{}

	t.Run("does not panic with valid args", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordStep(context.Background(), 100*time.Millisecond, nil)
		})
	})

	t.Run("does not panic with error", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordStep(context.Background(), 100*time.Millisecond, errors.New("test"))
		})
	})

	t.Run("does not panic with nil context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordStep(nil, 0, nil)
		})
	})
}

func TestNoopMetrics_RecordNodeCalculation(t *testing.T) {
	m := NoopMetrics{}

	t.Run("does not panic with valid args", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordNodeCalculation(context.Background(), "channel")
		})
	})

	t.Run("does not panic with empty kind", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordNodeCalculation(context.Background(), "")
		})
	})
}

func TestNoopMetrics_RecordBudgetViolation(t *testing.T) {
	m := NoopMetrics{}

	t.Run("does not panic with valid args", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordBudgetViolation(context.Background(), "graph")
		})
	})

	t.Run("does not panic with nil context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordBudgetViolation(nil, "reservoir")
		})
	})
}
