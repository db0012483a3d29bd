package config

import (
	"fmt"

	"github.com/hydrotools/flownet/pkg/flownet"
	"github.com/hydrotools/flownet/pkg/flownet/registry"
)

// MakerBuilder constructs the maker for one kind from a scenario, or
// returns nil when the scenario has no nodes of that kind.
type MakerBuilder func(s *Scenario, opts []flownet.MakerOption) (flownet.Maker, error)

// makers maps kind names to their builders. New kinds register here to
// become loadable from scenario files.
var makers = registry.New[string, MakerBuilder]()

// buildOrder fixes the maker construction order so node insertion order,
// and with it output ordering, is reproducible across runs.
var buildOrder = []string{
	flownet.KindChannel,
	flownet.KindReservoir,
	flownet.KindObserved,
	flownet.KindPassThrough,
}

func init() {
	makers.Register(flownet.KindChannel, buildChannels)
	makers.Register(flownet.KindReservoir, buildReservoirs)
	makers.Register(flownet.KindObserved, buildObserved)
	makers.Register(flownet.KindPassThrough, buildPassThrough)
}

// BuildGraph assembles and validates the flow network described by the
// scenario.
func (s *Scenario) BuildGraph() (*flownet.CompiledGraph, error) {
	graph := flownet.New()

	policy := flownet.PolicyError
	if s.Budget.Policy != "" {
		p, err := flownet.ParsePolicy(s.Budget.Policy)
		if err != nil {
			return nil, fmt.Errorf("budget.policy: %w", err)
		}
		policy = p
	}
	graph.SetBudget(policy, s.Budget.Tolerance)

	for _, kind := range buildOrder {
		build, ok := makers.Get(kind)
		if !ok {
			return nil, fmt.Errorf("no maker builder registered for kind %q", kind)
		}

		var opts []flownet.MakerOption
		if override, ok := s.Budget.Makers[kind]; ok {
			p, err := flownet.ParsePolicy(override)
			if err != nil {
				return nil, fmt.Errorf("budget.makers.%s: %w", kind, err)
			}
			opts = append(opts, flownet.WithBudgetPolicy(p))
		}

		m, err := build(s, opts)
		if err != nil {
			return nil, fmt.Errorf("build %s maker: %w", kind, err)
		}
		if m != nil {
			graph.AddMaker(m)
		}
	}

	if err := s.applyLaterals(graph); err != nil {
		return nil, err
	}

	for _, l := range s.Links {
		from, err := parseRef(l.From)
		if err != nil {
			return nil, fmt.Errorf("link from: %w", err)
		}
		to, err := parseRef(l.To)
		if err != nil {
			return nil, fmt.Errorf("link to: %w", err)
		}
		graph.Connect(from, to)
	}

	return graph.Build()
}

// applyLaterals assigns configured boundary sources to their nodes.
func (s *Scenario) applyLaterals(graph *flownet.Graph) error {
	assign := func(kind, id string, spec *SourceSpec) error {
		if spec == nil {
			return nil
		}
		src, err := spec.build()
		if err != nil {
			return fmt.Errorf("%s/%s lateral: %w", kind, id, err)
		}
		graph.SetLateral(flownet.Ref(kind, id), src)
		return nil
	}

	for _, c := range s.Channels {
		if err := assign(flownet.KindChannel, c.ID, c.Lateral); err != nil {
			return err
		}
	}
	for _, r := range s.Reservoirs {
		if err := assign(flownet.KindReservoir, r.ID, r.Lateral); err != nil {
			return err
		}
	}
	for _, o := range s.Observed {
		if err := assign(flownet.KindObserved, o.ID, o.Lateral); err != nil {
			return err
		}
	}
	return nil
}

func buildChannels(s *Scenario, opts []flownet.MakerOption) (flownet.Maker, error) {
	if len(s.Channels) == 0 {
		return nil, nil
	}
	params := make([]flownet.ChannelParams, len(s.Channels))
	for i, c := range s.Channels {
		params[i] = flownet.ChannelParams{
			ID:             c.ID,
			TravelTime:     c.TravelTime,
			Weight:         c.Weight,
			InitialOutflow: c.InitialOutflow,
		}
	}
	return flownet.NewChannelMaker(s.Run.DT, params, opts...)
}

func buildReservoirs(s *Scenario, opts []flownet.MakerOption) (flownet.Maker, error) {
	if len(s.Reservoirs) == 0 {
		return nil, nil
	}
	params := make([]flownet.ReservoirParams, len(s.Reservoirs))
	for i, r := range s.Reservoirs {
		var curves []flownet.RuleCurve
		if len(r.Curves) > 0 {
			for _, c := range r.Curves {
				rc := make(flownet.RuleCurve, len(c))
				for j, p := range c {
					rc[j] = flownet.RulePoint{Storage: p.Storage, Release: p.Release}
				}
				curves = append(curves, rc)
			}
		} else {
			factor := r.FloodFactor
			if factor == 0 {
				factor = 1
			}
			curves = []flownet.RuleCurve{
				flownet.BandedCurve(r.Dead, r.Conservation, r.Flood, r.BaseRelease, factor),
			}
		}
		params[i] = flownet.ReservoirParams{
			ID:           r.ID,
			Capacity:     r.Capacity,
			Curves:       curves,
			SeasonLength: r.SeasonLength,
			Initial:      r.Initial,
		}
	}
	if s.Run.Iterative {
		opts = append(opts, flownet.WithIterations(s.Run.SubSteps))
	}
	return flownet.NewReservoirMaker(params, opts...)
}

func buildObserved(s *Scenario, opts []flownet.MakerOption) (flownet.Maker, error) {
	if len(s.Observed) == 0 {
		return nil, nil
	}
	params := make([]flownet.ObservedParams, len(s.Observed))
	for i, o := range s.Observed {
		flows := o.Flows
		src, err := flows.build()
		if err != nil {
			return nil, fmt.Errorf("observed %s flows: %w", o.ID, err)
		}
		params[i] = flownet.ObservedParams{ID: o.ID, Flows: src}
	}
	return flownet.NewObservedMaker(params, opts...)
}

func buildPassThrough(s *Scenario, opts []flownet.MakerOption) (flownet.Maker, error) {
	if len(s.PassThrough) == 0 {
		return nil, nil
	}
	return flownet.NewPassThroughMaker(s.PassThrough, opts...)
}
