package flownet

import (
	"fmt"
	"math"
)

// Node kind names. Kinds form a closed set within this package; new kinds
// are added by writing a new Maker (see passthrough.go for the template).
const (
	KindChannel     = "channel"
	KindReservoir   = "reservoir"
	KindObserved    = "observed"
	KindPassThrough = "passthrough"

	// kindGraph tags the graph-aggregate budget in errors and output.
	kindGraph = "graph"
)

// NodeRef is the externally addressable handle of a node: the maker kind
// plus the user-assigned id. Ids are unique within a kind but may repeat
// across kinds.
type NodeRef struct {
	Kind string
	ID   string
}

// Ref builds a NodeRef.
func Ref(kind, id string) NodeRef {
	return NodeRef{Kind: kind, ID: id}
}

// String renders the reference as "kind/id".
func (r NodeRef) String() string {
	return r.Kind + "/" + r.ID
}

// NodeOutput is the read-only view of one node's state after Calculate.
type NodeOutput struct {
	// Ref identifies the node.
	Ref NodeRef
	// Lateral is the boundary inflow accepted at Advance.
	Lateral float64
	// Upstream is the summed outflow of upstream neighbors for the step.
	Upstream float64
	// Inflow is Lateral + Upstream.
	Inflow float64
	// Outflow is the computed outflow for the step.
	Outflow float64
	// Storage is the end-of-step storage volume. Zero for kinds without
	// a storage concept (observed, pass-through).
	Storage float64
	// Residual is the step's mass-balance residual. Zero when budget
	// accounting is off or not applicable to the kind.
	Residual float64
	// Clamped reports that a numerical domain violation (negative
	// storage, over-release) was clamped during Calculate.
	Clamped bool
}

// Node is one spatial unit's explicit flow solution for one time step.
//
// The step protocol is: Advance exactly once, then Calculate exactly
// once, then any number of Output reads. The Run enforces this ordering
// across the whole graph; nodes themselves stay oblivious to it.
type Node interface {
	// Ref returns the node's (kind, id) handle.
	Ref() NodeRef

	// Advance shifts current state to previous and accepts the boundary
	// (lateral) inflow for the new step.
	Advance(lateral float64)

	// Calculate computes outflow and new storage for the step. upstream
	// is the summed current-step outflow of upstream neighbors, already
	// resolved by the Run; dt is the step length in seconds. Returns a
	// BudgetError when closure fails under the error policy.
	Calculate(dt, upstream float64) error

	// Output exposes the current step's values. Pure read.
	Output() NodeOutput

	// Finalize releases held resources. Idempotent.
	Finalize() error
}

// nodeState carries the state every node kind shares: previous and
// current flows and storage, the cumulative ledger, and the effective
// budget policy assigned at Build time.
type nodeState struct {
	ref NodeRef

	lateral  float64
	upstream float64
	inflow   float64
	outflow  float64
	storage  float64

	inflowPrev  float64
	outflowPrev float64
	storagePrev float64

	residual float64
	clamped  bool

	ledger    Budget
	policy    Policy
	tolerance float64
	step      int
	advanced  bool
}

func newNodeState(kind, id string) nodeState {
	return nodeState{
		ref:       NodeRef{Kind: kind, ID: id},
		policy:    PolicyError,
		tolerance: DefaultTolerance,
		step:      -1,
	}
}

// setBudget assigns the effective policy. Called once at Build.
func (n *nodeState) setBudget(p Policy, tol float64) {
	n.policy = p
	n.tolerance = tol
}

// rotate shifts current values to previous and records the new lateral.
func (n *nodeState) rotate(lateral float64) {
	n.inflowPrev = n.inflow
	n.outflowPrev = n.outflow
	n.storagePrev = n.storage
	n.lateral = lateral
	n.upstream = 0
	n.clamped = false
	n.step++
	n.advanced = true
}

// closeStep records the step's flows, updates the ledger, and checks
// closure under the node's policy. in/out are flows, dt seconds.
func (n *nodeState) closeStep(dt, in, out float64) error {
	n.inflow = in
	n.outflow = out
	n.advanced = false

	if n.policy == PolicyOff {
		n.residual = 0
		return nil
	}
	n.residual = (in-out)*dt - (n.storage - n.storagePrev)
	n.ledger.add(in*dt, out*dt, n.storage-n.storagePrev)

	if math.Abs(n.residual) > n.tolerance && n.policy == PolicyError {
		return &BudgetError{
			Ref:       n.ref,
			Step:      n.step,
			Residual:  n.residual,
			Tolerance: n.tolerance,
		}
	}
	return nil
}

// errNotAdvanced guards Calculate being called without a prior Advance.
func (n *nodeState) errNotAdvanced() error {
	if !n.advanced {
		return fmt.Errorf("calculate without advance at %s", n.ref)
	}
	return nil
}

func (n *nodeState) Ref() NodeRef { return n.ref }

func (n *nodeState) Output() NodeOutput {
	return NodeOutput{
		Ref:      n.ref,
		Lateral:  n.lateral,
		Upstream: n.upstream,
		Inflow:   n.inflow,
		Outflow:  n.outflow,
		Storage:  n.storage,
		Residual: n.residual,
		Clamped:  n.clamped,
	}
}

// Ledger returns the node's cumulative budget ledger.
func (n *nodeState) Ledger() Budget { return n.ledger }

// Finalize is a no-op for nodes holding no external resources.
func (n *nodeState) Finalize() error { return nil }
