package flownet

import (
	"errors"
	"sync"

	"github.com/hydrotools/flownet/pkg/flownet/exchange"
)

// Graph is a mutable builder for flow networks. Add makers, connect
// their nodes, assign boundary sources, then call Build() to validate
// the topology and obtain an immutable CompiledGraph.
//
// Graph is NOT thread-safe during building; construct it from a single
// goroutine.
//
// Example:
//
//	graph, err := flownet.New().
//	    AddMaker(channels).
//	    AddMaker(reservoirs).
//	    Connect(flownet.Ref("channel", "seg1"), flownet.Ref("reservoir", "res1")).
//	    SetLateral(flownet.Ref("channel", "seg1"), exchange.Constant(2.5)).
//	    Build()
type Graph struct {
	mu        sync.Mutex
	makers    []Maker
	links     [][2]NodeRef
	laterals  map[NodeRef]exchange.Source
	policy    Policy
	tolerance float64
}

// New creates an empty graph builder with the error budget policy and
// DefaultTolerance.
func New() *Graph {
	return &Graph{
		laterals:  make(map[NodeRef]exchange.Source),
		policy:    PolicyError,
		tolerance: DefaultTolerance,
	}
}

// AddMaker registers a maker's nodes, in the maker's construction order.
// Returns the graph for method chaining. Panics if m is nil.
func (g *Graph) AddMaker(m Maker) *Graph {
	if m == nil {
		panic("flownet: maker cannot be nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.makers = append(g.makers, m)
	return g
}

// Connect declares that from's outflow feeds to's inflow.
// Reference validation happens at Build() time, so links may be added
// before or after their makers. Returns the graph for method chaining.
func (g *Graph) Connect(from, to NodeRef) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.links = append(g.links, [2]NodeRef{from, to})
	return g
}

// SetLateral assigns the boundary inflow source for a node. Nodes with
// no configured source get a constant zero lateral inflow.
// Returns the graph for method chaining. Panics if src is nil.
func (g *Graph) SetLateral(ref NodeRef, src exchange.Source) *Graph {
	if src == nil {
		panic("flownet: lateral source cannot be nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.laterals[ref] = src
	return g
}

// SetBudget sets the graph-level budget policy and closure tolerance.
// Makers with their own policy override keep it for their nodes; the
// graph-aggregate check always uses this policy.
// Returns the graph for method chaining.
func (g *Graph) SetBudget(p Policy, tolerance float64) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policy = p
	if tolerance > 0 {
		g.tolerance = tolerance
	}
	return g
}

// Build validates the network and returns the immutable CompiledGraph.
// Multiple validation failures are joined together.
//
// Validation checks:
//  1. At least one node exists
//  2. No two nodes share a (kind, id) pair
//  3. Every link endpoint and lateral reference resolves to a node
//  4. No node is linked to itself
//  5. The connectivity is acyclic
func (g *Graph) Build() (*CompiledGraph, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error

	var nodes []Node
	index := make(map[NodeRef]int)
	for _, m := range g.makers {
		for i := 0; i < m.Len(); i++ {
			n := m.Node(i)
			ref := n.Ref()
			if _, dup := index[ref]; dup {
				errs = append(errs, &TopologyError{Refs: []NodeRef{ref}, Err: ErrDuplicateNode})
				continue
			}
			index[ref] = len(nodes)
			nodes = append(nodes, n)
		}
	}
	if len(nodes) == 0 {
		errs = append(errs, ErrNoNodes)
		return nil, errors.Join(errs...)
	}

	// Resolve links against the node index.
	upstream := make([][]int, len(nodes))
	downstream := make([][]int, len(nodes))
	for _, l := range g.links {
		from, okFrom := index[l[0]]
		if !okFrom {
			errs = append(errs, &TopologyError{Refs: []NodeRef{l[0]}, Err: ErrUnknownNode})
		}
		to, okTo := index[l[1]]
		if !okTo {
			errs = append(errs, &TopologyError{Refs: []NodeRef{l[1]}, Err: ErrUnknownNode})
		}
		if !okFrom || !okTo {
			continue
		}
		if from == to {
			errs = append(errs, &TopologyError{Refs: []NodeRef{l[0]}, Err: ErrSelfLink})
			continue
		}
		downstream[from] = append(downstream[from], to)
		upstream[to] = append(upstream[to], from)
	}

	// Resolve laterals; unreferenced nodes default to zero inflow.
	laterals := make([]exchange.Source, len(nodes))
	for ref, src := range g.laterals {
		i, ok := index[ref]
		if !ok {
			errs = append(errs, &TopologyError{Refs: []NodeRef{ref}, Err: ErrUnknownNode})
			continue
		}
		laterals[i] = src
	}
	for i := range laterals {
		if laterals[i] == nil {
			laterals[i] = exchange.Zero()
		}
	}

	order, cyclic := topoSort(nodes, upstream, downstream)
	if len(cyclic) > 0 {
		refs := make([]NodeRef, len(cyclic))
		for i, idx := range cyclic {
			refs[i] = nodes[idx].Ref()
		}
		errs = append(errs, &TopologyError{Refs: refs, Err: ErrCycle})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Assign effective budget policies: maker override wins for its own
	// nodes, otherwise the graph default applies.
	for _, m := range g.makers {
		policy := g.policy
		if p, ok := m.BudgetPolicy(); ok {
			policy = p
		}
		for i := 0; i < m.Len(); i++ {
			if bs, ok := m.Node(i).(interface{ setBudget(Policy, float64) }); ok {
				bs.setBudget(policy, g.tolerance)
			}
		}
	}

	var terminals []int
	for i := range nodes {
		if len(downstream[i]) == 0 {
			terminals = append(terminals, i)
		}
	}

	return &CompiledGraph{
		nodes:      nodes,
		index:      index,
		order:      order,
		upstream:   upstream,
		downstream: downstream,
		laterals:   laterals,
		terminals:  terminals,
		policy:     g.policy,
		tolerance:  g.tolerance,
	}, nil
}

// topoSort orders node indices source-before-sink (Kahn's algorithm).
// Insertion order breaks ties, keeping runs reproducible. The second
// return value lists the nodes left unordered, i.e. the members of
// cycles.
func topoSort(nodes []Node, upstream, downstream [][]int) (order []int, cyclic []int) {
	indegree := make([]int, len(nodes))
	for i := range nodes {
		indegree[i] = len(upstream[i])
	}

	var queue []int
	for i := range nodes {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	seen := make([]bool, len(nodes))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		seen[i] = true
		order = append(order, i)
		for _, j := range downstream[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	if len(order) < len(nodes) {
		for i := range nodes {
			if !seen[i] {
				cyclic = append(cyclic, i)
			}
		}
	}
	return order, cyclic
}
