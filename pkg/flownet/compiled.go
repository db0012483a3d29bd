package flownet

import (
	"github.com/hydrotools/flownet/pkg/flownet/exchange"
)

// CompiledGraph is the validated, immutable flow network: the node
// collection, the resolved adjacency, and the topological order reused
// unchanged every step.
//
// The topology cannot be modified after Build. The nodes themselves are
// stateful, so a compiled graph supports one Run at a time; build a
// fresh graph for each simulation.
//
// Use the introspection methods (Refs, Upstream, Order) to examine the
// structure for debugging or display.
type CompiledGraph struct {
	nodes      []Node
	index      map[NodeRef]int
	order      []int
	upstream   [][]int
	downstream [][]int
	laterals   []exchange.Source
	terminals  []int
	policy     Policy
	tolerance  float64
}

// Len returns the number of nodes.
func (cg *CompiledGraph) Len() int {
	return len(cg.nodes)
}

// Refs returns all node references in insertion order.
func (cg *CompiledGraph) Refs() []NodeRef {
	refs := make([]NodeRef, len(cg.nodes))
	for i, n := range cg.nodes {
		refs[i] = n.Ref()
	}
	return refs
}

// HasNode reports whether the reference resolves to a node.
func (cg *CompiledGraph) HasNode(ref NodeRef) bool {
	_, ok := cg.index[ref]
	return ok
}

// Upstream returns the references of the nodes feeding ref.
// Empty for headwater nodes, nil for unknown references.
func (cg *CompiledGraph) Upstream(ref NodeRef) []NodeRef {
	i, ok := cg.index[ref]
	if !ok {
		return nil
	}
	refs := make([]NodeRef, 0, len(cg.upstream[i]))
	for _, j := range cg.upstream[i] {
		refs = append(refs, cg.nodes[j].Ref())
	}
	return refs
}

// Downstream returns the references of the nodes fed by ref.
// Empty for terminal nodes, nil for unknown references.
func (cg *CompiledGraph) Downstream(ref NodeRef) []NodeRef {
	i, ok := cg.index[ref]
	if !ok {
		return nil
	}
	refs := make([]NodeRef, 0, len(cg.downstream[i]))
	for _, j := range cg.downstream[i] {
		refs = append(refs, cg.nodes[j].Ref())
	}
	return refs
}

// Order returns the node references in evaluation (topological) order.
func (cg *CompiledGraph) Order() []NodeRef {
	refs := make([]NodeRef, len(cg.order))
	for i, idx := range cg.order {
		refs[i] = cg.nodes[idx].Ref()
	}
	return refs
}

// Terminals returns the references of nodes with no downstream neighbor.
// Their outflow leaves the network.
func (cg *CompiledGraph) Terminals() []NodeRef {
	refs := make([]NodeRef, len(cg.terminals))
	for i, idx := range cg.terminals {
		refs[i] = cg.nodes[idx].Ref()
	}
	return refs
}

// node returns the node at a resolved index. Used by the run loop.
func (cg *CompiledGraph) node(i int) Node {
	return cg.nodes[i]
}
