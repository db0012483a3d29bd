package flownet

import (
	"errors"
	"fmt"
)

// ChannelParams are the routing parameters for one channel segment.
type ChannelParams struct {
	// ID is the user-assigned segment id, unique within the channel kind.
	ID string
	// TravelTime is the Muskingum storage coefficient K in seconds.
	TravelTime float64
	// Weight is the Muskingum inflow weighting x, in [0, 0.5].
	Weight float64
	// InitialOutflow seeds the routing recursion. Defaults to zero.
	InitialOutflow float64
}

// ChannelMaker builds Muskingum channel-routing nodes. The routing
// coefficients are precomputed from the parameters and the step length;
// running the nodes at a different step length is undefined.
type ChannelMaker struct {
	makerBase
	params []ChannelParams
	nodes  []*channelNode
}

// NewChannelMaker precomputes routing coefficients for the given step
// length dt (seconds) and constructs one node per parameter row.
//
// Parameters must satisfy K > 0 and 0 <= x <= 0.5, and the step length
// must fall inside the stability window 2Kx <= dt <= 2K(1-x); violations
// are construction-time errors.
func NewChannelMaker(dt float64, params []ChannelParams, opts ...MakerOption) (*ChannelMaker, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("channel maker: step length must be positive, got %g", dt)
	}

	m := &ChannelMaker{
		makerBase: makerBase{kind: KindChannel},
		params:    params,
	}
	for _, opt := range opts {
		opt(&m.makerBase)
	}

	var errs []error
	for i, p := range params {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("channel %d: empty id", i))
			continue
		}
		if p.TravelTime <= 0 {
			errs = append(errs, fmt.Errorf("channel %s: travel time must be positive, got %g", p.ID, p.TravelTime))
			continue
		}
		if p.Weight < 0 || p.Weight > 0.5 {
			errs = append(errs, fmt.Errorf("channel %s: weight must be in [0, 0.5], got %g", p.ID, p.Weight))
			continue
		}
		// Stability window for the explicit recursion.
		if dt < 2*p.TravelTime*p.Weight || dt > 2*p.TravelTime*(1-p.Weight) {
			errs = append(errs, fmt.Errorf("channel %s: step length %g outside stability window [%g, %g]",
				p.ID, dt, 2*p.TravelTime*p.Weight, 2*p.TravelTime*(1-p.Weight)))
			continue
		}

		denom := p.TravelTime*(1-p.Weight) + dt/2
		n := &channelNode{
			nodeState: newNodeState(KindChannel, p.ID),
			c0:        (dt/2 - p.TravelTime*p.Weight) / denom,
			c1:        (dt/2 + p.TravelTime*p.Weight) / denom,
			c2:        (p.TravelTime*(1-p.Weight) - dt/2) / denom,
		}
		n.outflow = p.InitialOutflow
		m.nodes = append(m.nodes, n)
		m.ids = append(m.ids, p.ID)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// Node returns the node at the given maker-local index.
func (m *ChannelMaker) Node(i int) Node { return m.nodes[i] }

// Params returns the parameter table the maker was built from.
// The returned slice must not be mutated.
func (m *ChannelMaker) Params() []ChannelParams { return m.params }

// channelNode routes flow through one segment with the explicit
// Muskingum recursion O = c0*I + c1*I_prev + c2*O_prev.
type channelNode struct {
	nodeState
	c0, c1, c2 float64
}

func (n *channelNode) Advance(lateral float64) {
	n.rotate(lateral)
}

func (n *channelNode) Calculate(dt, up float64) error {
	if err := n.errNotAdvanced(); err != nil {
		return err
	}
	n.upstream = up
	in := n.lateral + up

	out := n.c0*in + n.c1*n.inflowPrev + n.c2*n.outflowPrev
	if out < 0 {
		out = 0
		n.clamped = true
	}

	storage := n.storagePrev + (in-out)*dt
	if storage < 0 {
		// Drain no more than what is physically present.
		out = n.storagePrev/dt + in
		storage = 0
		n.clamped = true
	}
	n.storage = storage

	return n.closeStep(dt, in, out)
}
