package flownet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrotools/flownet/pkg/flownet/exchange"
)

// TestNewObservedMaker_Invalid verifies construction-time validation.
func TestNewObservedMaker_Invalid(t *testing.T) {
	_, err := NewObservedMaker([]ObservedParams{{Flows: exchange.Constant(1)}})
	assert.Error(t, err)

	_, err = NewObservedMaker([]ObservedParams{{ID: "g1"}})
	assert.Error(t, err)
}

// TestObservedNode_ForcesOutflow verifies the measured series replaces
// whatever arrives from upstream.
func TestObservedNode_ForcesOutflow(t *testing.T) {
	m, err := NewObservedMaker([]ObservedParams{
		{ID: "gauge1", Flows: exchange.Series([]float64{3.2, 4.8, 2.1})},
	})
	require.NoError(t, err)
	n := m.Node(0)

	want := []float64{3.2, 4.8, 2.1}
	for _, w := range want {
		n.Advance(0)
		require.NoError(t, n.Calculate(testDT, 99))

		out := n.Output()
		assert.InDelta(t, w, out.Outflow, 1e-12)
		assert.Equal(t, 99.0, out.Upstream)
		assert.Zero(t, out.Storage)
		assert.Zero(t, out.Residual)
	}
}

// TestObservedNode_ExhaustedSeries verifies a fatal missing-input error
// once the record runs out.
func TestObservedNode_ExhaustedSeries(t *testing.T) {
	m, err := NewObservedMaker([]ObservedParams{
		{ID: "gauge1", Flows: exchange.Series([]float64{1.0})},
	})
	require.NoError(t, err)
	n := m.Node(0)

	n.Advance(0)
	require.NoError(t, n.Calculate(testDT, 0))

	n.Advance(0)
	err = n.Calculate(testDT, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}
