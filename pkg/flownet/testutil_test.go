package flownet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hydrotools/flownet/pkg/flownet/exchange"
)

// Shared fixtures for the package tests. Flows are in m³/s, storage in
// m³, dt in seconds.

const testDT = 3600.0

// testChannelMaker builds a single-segment channel maker with stable
// coefficients for testDT.
func testChannelMaker(t *testing.T, id string, opts ...MakerOption) *ChannelMaker {
	t.Helper()
	m, err := NewChannelMaker(testDT, []ChannelParams{
		{ID: id, TravelTime: 3600, Weight: 0.2},
	}, opts...)
	require.NoError(t, err)
	return m
}

// testReservoirMaker builds a single-reservoir maker with a banded rule
// curve whose release tops out at 20 m³/s.
func testReservoirMaker(t *testing.T, id string, opts ...MakerOption) *ReservoirMaker {
	t.Helper()
	m, err := NewReservoirMaker([]ReservoirParams{
		{
			ID:       id,
			Capacity: 1e6,
			Curves:   []RuleCurve{BandedCurve(0, 5e5, 9e5, 10, 2)},
			Initial:  1e5,
		},
	}, opts...)
	require.NoError(t, err)
	return m
}

// testPassMaker builds a pass-through maker with the given ids.
func testPassMaker(t *testing.T, ids ...string) *PassThroughMaker {
	t.Helper()
	m, err := NewPassThroughMaker(ids)
	require.NoError(t, err)
	return m
}

// buildLinear compiles lateral -> a -> b -> c for three pass-through
// nodes, with a constant lateral inflow at the head.
func buildLinear(t *testing.T, head float64) *CompiledGraph {
	t.Helper()
	graph, err := New().
		AddMaker(testPassMaker(t, "a", "b", "c")).
		Connect(Ref(KindPassThrough, "a"), Ref(KindPassThrough, "b")).
		Connect(Ref(KindPassThrough, "b"), Ref(KindPassThrough, "c")).
		SetLateral(Ref(KindPassThrough, "a"), exchange.Constant(head)).
		Build()
	require.NoError(t, err)
	return graph
}

// stepN advances a run through n full steps.
func stepN(t *testing.T, r *Run, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, r.StepOnce(context.Background(), testDT))
	}
}
