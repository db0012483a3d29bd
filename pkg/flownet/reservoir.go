package flownet

import (
	"errors"
	"fmt"
	"sort"
)

// RulePoint is one breakpoint of a storage-release rule curve.
type RulePoint struct {
	// Storage is the breakpoint storage volume.
	Storage float64
	// Release is the target release flow at that storage.
	Release float64
}

// RuleCurve maps storage to target release by linear interpolation
// between breakpoints. Below the first breakpoint the release is the
// first breakpoint's release; above the last, the last's.
type RuleCurve []RulePoint

// BandedCurve builds the common three-band operating rule: no release
// below the dead pool, a ramp up to baseRelease across the conservation
// pool, and surcharge drawdown scaling with floodFactor above the flood
// pool top.
func BandedCurve(dead, conservation, flood, baseRelease, floodFactor float64) RuleCurve {
	return RuleCurve{
		{Storage: dead, Release: 0},
		{Storage: conservation, Release: baseRelease},
		{Storage: flood, Release: baseRelease * floodFactor},
	}
}

// validate checks breakpoint ordering and non-negative releases.
func (rc RuleCurve) validate() error {
	if len(rc) == 0 {
		return errors.New("rule curve has no breakpoints")
	}
	if !sort.SliceIsSorted(rc, func(i, j int) bool { return rc[i].Storage < rc[j].Storage }) {
		return errors.New("rule curve breakpoints not sorted by storage")
	}
	for _, p := range rc {
		if p.Release < 0 {
			return fmt.Errorf("rule curve release must be non-negative, got %g", p.Release)
		}
	}
	return nil
}

// at returns the interpolated target release for storage s.
func (rc RuleCurve) at(s float64) float64 {
	if s <= rc[0].Storage {
		return rc[0].Release
	}
	last := rc[len(rc)-1]
	if s >= last.Storage {
		return last.Release
	}
	i := sort.Search(len(rc), func(i int) bool { return rc[i].Storage >= s })
	lo, hi := rc[i-1], rc[i]
	frac := (s - lo.Storage) / (hi.Storage - lo.Storage)
	return lo.Release + frac*(hi.Release-lo.Release)
}

// ReservoirParams describe one rule-curve operated reservoir.
type ReservoirParams struct {
	// ID is the user-assigned reservoir id, unique within the kind.
	ID string
	// Capacity is the maximum storage volume. Storage is clipped to
	// [0, Capacity]; volume above it spills within the step.
	Capacity float64
	// Curves are the operating rule curves. With one curve the rule is
	// time-invariant; with several, the active curve rotates every
	// SeasonLength steps (seasonal target bands).
	Curves []RuleCurve
	// SeasonLength is the number of steps each curve stays active.
	// Ignored when only one curve is given. Defaults to 1.
	SeasonLength int
	// Initial is the start-of-run storage volume.
	Initial float64
}

// ReservoirMaker builds rule-curve reservoir-operation nodes.
type ReservoirMaker struct {
	makerBase
	params     []ReservoirParams
	nodes      []*reservoirNode
	iterations int
}

// WithIterations selects the within-step iterative adjustment mode for
// reservoir nodes: the step is split into n sub-steps and the rule curve
// re-evaluated on each. n = 1 (the default) is the single-pass mode.
func WithIterations(n int) MakerOption {
	return func(m *makerBase) {
		m.iterations = n
	}
}

// NewReservoirMaker constructs one reservoir node per parameter row.
func NewReservoirMaker(params []ReservoirParams, opts ...MakerOption) (*ReservoirMaker, error) {
	m := &ReservoirMaker{
		makerBase: makerBase{kind: KindReservoir},
		params:    params,
	}
	for _, opt := range opts {
		opt(&m.makerBase)
	}
	m.iterations = m.makerBase.iterations
	if m.iterations < 1 {
		m.iterations = 1
	}

	var errs []error
	for i, p := range params {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("reservoir %d: empty id", i))
			continue
		}
		if p.Capacity <= 0 {
			errs = append(errs, fmt.Errorf("reservoir %s: capacity must be positive, got %g", p.ID, p.Capacity))
			continue
		}
		if p.Initial < 0 || p.Initial > p.Capacity {
			errs = append(errs, fmt.Errorf("reservoir %s: initial storage %g outside [0, %g]", p.ID, p.Initial, p.Capacity))
			continue
		}
		if len(p.Curves) == 0 {
			errs = append(errs, fmt.Errorf("reservoir %s: no rule curves", p.ID))
			continue
		}
		bad := false
		for j, rc := range p.Curves {
			if err := rc.validate(); err != nil {
				errs = append(errs, fmt.Errorf("reservoir %s curve %d: %w", p.ID, j, err))
				bad = true
			}
		}
		if bad {
			continue
		}

		season := p.SeasonLength
		if season < 1 {
			season = 1
		}
		n := &reservoirNode{
			nodeState:  newNodeState(KindReservoir, p.ID),
			capacity:   p.Capacity,
			curves:     p.Curves,
			season:     season,
			iterations: m.iterations,
		}
		n.storage = p.Initial
		m.nodes = append(m.nodes, n)
		m.ids = append(m.ids, p.ID)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// Node returns the node at the given maker-local index.
func (m *ReservoirMaker) Node(i int) Node { return m.nodes[i] }

// Params returns the parameter table the maker was built from.
// The returned slice must not be mutated.
func (m *ReservoirMaker) Params() []ReservoirParams { return m.params }

// reservoirNode operates storage with a rule-curve release plus an
// instantaneous spill of any volume above capacity.
type reservoirNode struct {
	nodeState
	capacity   float64
	curves     []RuleCurve
	season     int
	iterations int
}

func (n *reservoirNode) Advance(lateral float64) {
	n.rotate(lateral)
}

// curve returns the rule curve active at the node's current step.
func (n *reservoirNode) curve() RuleCurve {
	if len(n.curves) == 1 {
		return n.curves[0]
	}
	idx := (n.step / n.season) % len(n.curves)
	return n.curves[idx]
}

func (n *reservoirNode) Calculate(dt, up float64) error {
	if err := n.errNotAdvanced(); err != nil {
		return err
	}
	n.upstream = up
	in := n.lateral + up
	rc := n.curve()

	sub := dt / float64(n.iterations)
	storage := n.storagePrev
	for i := 0; i < n.iterations; i++ {
		release := rc.at(storage)

		// Release is bounded by the water actually present.
		if avail := storage/sub + in; release > avail {
			release = avail
			n.clamped = true
		}
		if release < 0 {
			release = 0
			n.clamped = true
		}

		storage += (in - release) * sub
		if storage < 0 {
			// Numerical underrun of the availability bound.
			storage = 0
			n.clamped = true
		}
		if storage > n.capacity {
			// Volume above capacity spills within the sub-step.
			storage = n.capacity
		}
	}

	n.storage = storage
	// Outflow is whatever volume did not stay in storage, so closure is
	// exact regardless of sub-step count.
	out := in - (storage-n.storagePrev)/dt
	return n.closeStep(dt, in, out)
}
