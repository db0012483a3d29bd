package flownet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrotools/flownet/pkg/flownet/exchange"
)

// TestGraph_Build verifies a valid network compiles with the expected
// topology artifacts.
func TestGraph_Build(t *testing.T) {
	graph, err := New().
		AddMaker(testPassMaker(t, "a", "b", "c")).
		Connect(Ref(KindPassThrough, "a"), Ref(KindPassThrough, "c")).
		Connect(Ref(KindPassThrough, "b"), Ref(KindPassThrough, "c")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 3, graph.Len())
	assert.ElementsMatch(t,
		[]NodeRef{Ref(KindPassThrough, "a"), Ref(KindPassThrough, "b")},
		graph.Upstream(Ref(KindPassThrough, "c")))
	assert.Equal(t, []NodeRef{Ref(KindPassThrough, "c")}, graph.Terminals())

	// Sources before sinks.
	order := graph.Order()
	assert.Equal(t, Ref(KindPassThrough, "c"), order[2])
}

// TestGraph_Build_Chaining verifies the fluent API returns the builder.
func TestGraph_Build_Chaining(t *testing.T) {
	g := New()
	assert.Same(t, g, g.AddMaker(testPassMaker(t, "a")))
	assert.Same(t, g, g.Connect(Ref(KindPassThrough, "a"), Ref(KindPassThrough, "a")))
	assert.Same(t, g, g.SetLateral(Ref(KindPassThrough, "a"), exchange.Zero()))
	assert.Same(t, g, g.SetBudget(PolicyWarn, 1e-6))
}

// TestGraph_Build_Empty verifies a graph without nodes is rejected.
func TestGraph_Build_Empty(t *testing.T) {
	_, err := New().Build()
	assert.ErrorIs(t, err, ErrNoNodes)
}

// TestGraph_Build_Cycle verifies cycle detection fails construction
// before any step executes.
func TestGraph_Build_Cycle(t *testing.T) {
	_, err := New().
		AddMaker(testPassMaker(t, "a", "b", "c")).
		Connect(Ref(KindPassThrough, "a"), Ref(KindPassThrough, "b")).
		Connect(Ref(KindPassThrough, "b"), Ref(KindPassThrough, "c")).
		Connect(Ref(KindPassThrough, "c"), Ref(KindPassThrough, "a")).
		Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)

	var topoErr *TopologyError
	require.True(t, errors.As(err, &topoErr))
	assert.Len(t, topoErr.Refs, 3)
}

// TestGraph_Build_PartialCycle verifies only the cycle members are
// reported, not the acyclic remainder.
func TestGraph_Build_PartialCycle(t *testing.T) {
	_, err := New().
		AddMaker(testPassMaker(t, "ok", "x", "y")).
		Connect(Ref(KindPassThrough, "x"), Ref(KindPassThrough, "y")).
		Connect(Ref(KindPassThrough, "y"), Ref(KindPassThrough, "x")).
		Build()
	require.Error(t, err)

	var topoErr *TopologyError
	require.True(t, errors.As(err, &topoErr))
	assert.ElementsMatch(t,
		[]NodeRef{Ref(KindPassThrough, "x"), Ref(KindPassThrough, "y")},
		topoErr.Refs)
}

// TestGraph_Build_DuplicateID verifies two nodes sharing (kind, id)
// fail construction.
func TestGraph_Build_DuplicateID(t *testing.T) {
	_, err := New().
		AddMaker(testPassMaker(t, "a")).
		AddMaker(testPassMaker(t, "a")).
		Build()
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

// TestGraph_Build_SameIDAcrossKinds verifies ids may repeat across
// kinds; only the (kind, id) pair must be unique.
func TestGraph_Build_SameIDAcrossKinds(t *testing.T) {
	graph, err := New().
		AddMaker(testPassMaker(t, "x")).
		AddMaker(testChannelMaker(t, "x")).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 2, graph.Len())
}

// TestGraph_Build_UnknownRef verifies links and laterals must resolve.
func TestGraph_Build_UnknownRef(t *testing.T) {
	_, err := New().
		AddMaker(testPassMaker(t, "a")).
		Connect(Ref(KindPassThrough, "a"), Ref(KindPassThrough, "ghost")).
		Build()
	assert.ErrorIs(t, err, ErrUnknownNode)

	_, err = New().
		AddMaker(testPassMaker(t, "a")).
		SetLateral(Ref(KindChannel, "ghost"), exchange.Zero()).
		Build()
	assert.ErrorIs(t, err, ErrUnknownNode)
}

// TestGraph_Build_SelfLink verifies a node cannot feed itself.
func TestGraph_Build_SelfLink(t *testing.T) {
	_, err := New().
		AddMaker(testPassMaker(t, "a")).
		Connect(Ref(KindPassThrough, "a"), Ref(KindPassThrough, "a")).
		Build()
	assert.ErrorIs(t, err, ErrSelfLink)
}

// TestGraph_Build_JoinedErrors verifies multiple validation failures are
// reported together.
func TestGraph_Build_JoinedErrors(t *testing.T) {
	_, err := New().
		AddMaker(testPassMaker(t, "a")).
		AddMaker(testPassMaker(t, "a")).
		Connect(Ref(KindPassThrough, "a"), Ref(KindPassThrough, "ghost")).
		Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateNode)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

// TestGraph_AddMaker_NilPanics verifies builder input validation.
func TestGraph_AddMaker_NilPanics(t *testing.T) {
	assert.Panics(t, func() { New().AddMaker(nil) })
	assert.Panics(t, func() { New().SetLateral(Ref(KindChannel, "a"), nil) })
}

// TestGraph_Order_Deterministic verifies topological ordering breaks
// ties by insertion order, keeping runs reproducible.
func TestGraph_Order_Deterministic(t *testing.T) {
	build := func() *CompiledGraph {
		graph, err := New().
			AddMaker(testPassMaker(t, "h1", "h2", "h3", "out")).
			Connect(Ref(KindPassThrough, "h1"), Ref(KindPassThrough, "out")).
			Connect(Ref(KindPassThrough, "h2"), Ref(KindPassThrough, "out")).
			Connect(Ref(KindPassThrough, "h3"), Ref(KindPassThrough, "out")).
			Build()
		require.NoError(t, err)
		return graph
	}

	first := build().Order()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, build().Order())
	}
}
