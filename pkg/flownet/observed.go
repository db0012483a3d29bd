package flownet

import (
	"errors"
	"fmt"

	"github.com/hydrotools/flownet/pkg/flownet/exchange"
)

// ObservedParams bind one observation-forced node to its flow record.
type ObservedParams struct {
	// ID is the user-assigned gauge id, unique within the kind.
	ID string
	// Flows supplies the measured outflow, one value per step.
	Flows exchange.Source
}

// ObservedMaker builds observation-forced nodes: outflow is read from a
// supplied time series and injected into the network as ground truth,
// replacing whatever arrives from upstream. The storage concept does not
// apply; storage is reported as zero and the node budget is not checked.
type ObservedMaker struct {
	makerBase
	nodes []*observedNode
}

// NewObservedMaker constructs one node per parameter row.
func NewObservedMaker(params []ObservedParams, opts ...MakerOption) (*ObservedMaker, error) {
	m := &ObservedMaker{makerBase: makerBase{kind: KindObserved}}
	for _, opt := range opts {
		opt(&m.makerBase)
	}

	var errs []error
	for i, p := range params {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("observed %d: empty id", i))
			continue
		}
		if p.Flows == nil {
			errs = append(errs, fmt.Errorf("observed %s: nil flow source", p.ID))
			continue
		}
		n := &observedNode{
			nodeState: newNodeState(KindObserved, p.ID),
			flows:     p.Flows,
		}
		m.nodes = append(m.nodes, n)
		m.ids = append(m.ids, p.ID)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// Node returns the node at the given maker-local index.
func (m *ObservedMaker) Node(i int) Node { return m.nodes[i] }

type observedNode struct {
	nodeState
	flows exchange.Source
}

func (n *observedNode) Advance(lateral float64) {
	n.rotate(lateral)
	n.flows.Advance()
}

func (n *observedNode) Calculate(dt, up float64) error {
	if err := n.errNotAdvanced(); err != nil {
		return err
	}
	n.upstream = up
	in := n.lateral + up

	out := n.flows.Current()
	if exchange.IsUnavailable(out) {
		return fmt.Errorf("%w: observed flow for %s", ErrSourceUnavailable, n.ref)
	}

	// Forced flow replaces the routed flow; mass balance is not a
	// meaningful constraint here, so the budget check is bypassed.
	n.inflow = in
	n.outflow = out
	n.residual = 0
	n.advanced = false
	return nil
}
