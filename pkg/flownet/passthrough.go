package flownet

import (
	"errors"
	"fmt"
)

// PassThroughMaker builds nodes whose outflow equals their total inflow
// with storage held at zero. Pass-through nodes are topology
// placeholders with no physical effect; the implementation doubles as
// the minimal template for adding a new node kind without touching the
// graph.
type PassThroughMaker struct {
	makerBase
	nodes []*passThroughNode
}

// NewPassThroughMaker constructs one node per id.
func NewPassThroughMaker(ids []string, opts ...MakerOption) (*PassThroughMaker, error) {
	m := &PassThroughMaker{makerBase: makerBase{kind: KindPassThrough}}
	for _, opt := range opts {
		opt(&m.makerBase)
	}

	var errs []error
	for i, id := range ids {
		if id == "" {
			errs = append(errs, fmt.Errorf("passthrough %d: empty id", i))
			continue
		}
		n := &passThroughNode{nodeState: newNodeState(KindPassThrough, id)}
		m.nodes = append(m.nodes, n)
		m.ids = append(m.ids, id)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// Node returns the node at the given maker-local index.
func (m *PassThroughMaker) Node(i int) Node { return m.nodes[i] }

type passThroughNode struct {
	nodeState
}

func (n *passThroughNode) Advance(lateral float64) {
	n.rotate(lateral)
}

func (n *passThroughNode) Calculate(dt, up float64) error {
	if err := n.errNotAdvanced(); err != nil {
		return err
	}
	n.upstream = up
	in := n.lateral + up
	return n.closeStep(dt, in, in)
}
