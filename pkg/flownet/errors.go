package flownet

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building.
var (
	// ErrNoNodes indicates Build() was called on a graph with no makers.
	ErrNoNodes = errors.New("graph has no nodes")

	// ErrDuplicateNode indicates two nodes share the same (kind, id) pair.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrUnknownNode indicates a link or lateral references a node that
	// no maker produced.
	ErrUnknownNode = errors.New("unknown node")

	// ErrCycle indicates the connectivity contains a cycle.
	ErrCycle = errors.New("topology contains a cycle")

	// ErrSelfLink indicates a node was connected to itself.
	ErrSelfLink = errors.New("node linked to itself")
)

// Sentinel errors for the step loop.
var (
	// ErrBudget indicates a mass-balance residual exceeded tolerance
	// under the "error" policy.
	ErrBudget = errors.New("budget residual exceeds tolerance")

	// ErrFinalized indicates a step method was called after Finalize().
	ErrFinalized = errors.New("run already finalized")

	// ErrOutOfOrder indicates Advance/Calculate/Output were called out
	// of their required per-step order.
	ErrOutOfOrder = errors.New("step method called out of order")

	// ErrSourceUnavailable indicates a boundary source was read before
	// its first advance or past its last value.
	ErrSourceUnavailable = errors.New("boundary source value unavailable")
)

// TopologyError reports a construction-time topology failure.
// It identifies the offending node(s) where known.
type TopologyError struct {
	// Refs are the node references involved (e.g. the members of a cycle).
	Refs []NodeRef
	// Err is the underlying sentinel (ErrCycle, ErrDuplicateNode, ...).
	Err error
}

// Error implements the error interface.
func (e *TopologyError) Error() string {
	if len(e.Refs) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %v", e.Err, e.Refs)
}

// Unwrap returns the underlying sentinel for errors.Is support.
func (e *TopologyError) Unwrap() error {
	return e.Err
}

// BudgetError reports a mass-balance closure failure for one node or for
// the graph aggregate (Ref.Kind == "graph").
type BudgetError struct {
	// Ref identifies the offending node, or the graph aggregate.
	Ref NodeRef
	// Step is the zero-based step index at which closure failed.
	Step int
	// Residual is inflow - outflow - delta-storage for the step.
	Residual float64
	// Tolerance is the configured closure tolerance.
	Tolerance float64
}

// Error implements the error interface.
func (e *BudgetError) Error() string {
	return fmt.Sprintf("%s step %d: residual %.6g exceeds tolerance %.6g",
		e.Ref, e.Step, e.Residual, e.Tolerance)
}

// Unwrap returns ErrBudget for errors.Is support.
func (e *BudgetError) Unwrap() error {
	return ErrBudget
}

// NodeError wraps an error with the identity of the node and the step at
// which it occurred.
type NodeError struct {
	// Ref identifies the node that failed.
	Ref NodeRef
	// Step is the zero-based step index.
	Step int
	// Op is the operation that failed ("advance", "calculate").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("%s step %d: %s: %v", e.Ref, e.Step, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// StateError reports a step-state-machine violation, e.g. Calculate
// before Advance, or any step method after Finalize.
type StateError struct {
	// Op is the method that was called.
	Op string
	// Phase is the phase the run was in.
	Phase string
	// Err is ErrOutOfOrder or ErrFinalized.
	Err error
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s called in phase %s: %v", e.Op, e.Phase, e.Err)
}

// Unwrap returns the underlying sentinel for errors.Is support.
func (e *StateError) Unwrap() error {
	return e.Err
}
