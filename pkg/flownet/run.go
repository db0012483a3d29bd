package flownet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hydrotools/flownet/pkg/flownet/exchange"
	"github.com/hydrotools/flownet/pkg/flownet/observability"
	"github.com/hydrotools/flownet/pkg/flownet/output"
)

// runPhase tracks the per-step state machine.
type runPhase int

const (
	phaseReady runPhase = iota
	phaseAdvanced
	phaseCalculated
	phaseOutput
	phaseFinalized
)

// String returns the phase name for error messages.
func (p runPhase) String() string {
	switch p {
	case phaseReady:
		return "ready"
	case phaseAdvanced:
		return "advanced"
	case phaseCalculated:
		return "calculated"
	case phaseOutput:
		return "output"
	case phaseFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("runPhase(%d)", int(p))
	}
}

// Run drives one discrete-time simulation over a compiled graph.
//
// Within each step the methods must be called in order: Advance, then
// Calculate, then Output. Out-of-order calls return a StateError.
// Finalize may be called at any point and is idempotent; after it, all
// step methods fail.
//
// Run is not safe for concurrent use.
type Run struct {
	cg  *CompiledGraph
	cfg runConfig

	phase     runPhase
	step      int
	outflows  []float64
	prevTotal float64
	ledger    Budget
	residual  float64
	dStorage  float64
	finalErr  error
}

// NewRun creates a run over the compiled graph.
func (cg *CompiledGraph) NewRun(opts ...RunOption) *Run {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	var total float64
	for _, n := range cg.nodes {
		total += n.Output().Storage
	}

	observability.LogRunStart(cfg.logger, cfg.runID, len(cg.nodes))

	return &Run{
		cg:        cg,
		cfg:       cfg,
		step:      -1,
		outflows:  make([]float64, len(cg.nodes)),
		prevTotal: total,
	}
}

// RunID returns the identifier tagging this run's logs and output.
func (r *Run) RunID() string { return r.cfg.runID }

// Step returns the zero-based index of the current step, or -1 before
// the first Advance.
func (r *Run) Step() int { return r.step }

// GraphBudget returns the cumulative graph-aggregate ledger.
func (r *Run) GraphBudget() Budget { return r.ledger }

// Advance begins a new step: every boundary source moves to its next
// value and every node rotates state and accepts its lateral inflow.
// A source with no value available is a fatal missing-input error.
func (r *Run) Advance() error {
	switch r.phase {
	case phaseFinalized:
		return &StateError{Op: "Advance", Phase: r.phase.String(), Err: ErrFinalized}
	case phaseAdvanced:
		return &StateError{Op: "Advance", Phase: r.phase.String(), Err: ErrOutOfOrder}
	}

	for i, n := range r.cg.nodes {
		src := r.cg.laterals[i]
		src.Advance()
		lateral := src.Current()
		if exchange.IsUnavailable(lateral) {
			return &NodeError{
				Ref:  n.Ref(),
				Step: r.step + 1,
				Op:   "advance",
				Err:  fmt.Errorf("%w: lateral inflow", ErrSourceUnavailable),
			}
		}
		n.Advance(lateral)
	}

	r.step++
	r.phase = phaseAdvanced
	return nil
}

// Calculate evaluates every node in topological order, summing each
// node's lateral inflow with the just-computed outflow of its upstream
// neighbors, then closes the graph-aggregate budget for the step.
// dt is the step length in seconds.
func (r *Run) Calculate(ctx context.Context, dt float64) error {
	if r.phase != phaseAdvanced {
		op := ErrOutOfOrder
		if r.phase == phaseFinalized {
			op = ErrFinalized
		}
		return &StateError{Op: "Calculate", Phase: r.phase.String(), Err: op}
	}
	if dt <= 0 {
		return fmt.Errorf("step length must be positive, got %g", dt)
	}

	start := time.Now()
	err := r.calculate(ctx, dt)
	r.cfg.metrics.RecordStep(ctx, time.Since(start), err)
	if err != nil {
		observability.LogStepError(r.cfg.logger, r.cfg.runID, r.step, err)
		return err
	}

	observability.LogStepComplete(r.cfg.logger, r.cfg.runID, r.step,
		float64(time.Since(start).Microseconds())/1000)
	r.phase = phaseCalculated
	return nil
}

func (r *Run) calculate(ctx context.Context, dt float64) error {
	for _, i := range r.cg.order {
		n := r.cg.node(i)

		var up float64
		for _, j := range r.cg.upstream[i] {
			up += r.outflows[j]
		}

		if err := n.Calculate(dt, up); err != nil {
			var be *BudgetError
			if errors.As(err, &be) {
				r.cfg.metrics.RecordBudgetViolation(ctx, n.Ref().Kind)
				return err
			}
			return &NodeError{Ref: n.Ref(), Step: r.step, Op: "calculate", Err: err}
		}
		r.cfg.metrics.RecordNodeCalculation(ctx, n.Ref().Kind)

		out := n.Output()
		r.outflows[i] = out.Outflow
		if math.Abs(out.Residual) > r.cg.tolerance {
			// Only reachable under the warn policy; the error policy
			// fails inside Calculate and off reports a zero residual.
			observability.LogBudgetWarning(r.cfg.logger, out.Ref.Kind, out.Ref.ID,
				r.step, out.Residual, r.cg.tolerance)
			r.cfg.metrics.RecordBudgetViolation(ctx, out.Ref.Kind)
		}
		if out.Clamped && r.cg.policy != PolicyOff {
			observability.LogClamp(r.cfg.logger, out.Ref.Kind, out.Ref.ID, r.step)
		}
	}

	return r.closeGraphBudget(ctx, dt)
}

// closeGraphBudget aggregates boundary inflows, terminal outflows, and
// net storage change for the step and checks closure under the
// graph-level policy.
func (r *Run) closeGraphBudget(ctx context.Context, dt float64) error {
	if r.cg.policy == PolicyOff {
		r.residual = 0
		return nil
	}

	var in, out, total float64
	for _, n := range r.cg.nodes {
		o := n.Output()
		in += o.Lateral
		total += o.Storage
	}
	for _, i := range r.cg.terminals {
		out += r.outflows[i]
	}
	dStorage := total - r.prevTotal
	r.prevTotal = total
	r.dStorage = dStorage

	r.residual = (in-out)*dt - dStorage
	r.ledger.add(in*dt, out*dt, dStorage)

	if math.Abs(r.residual) > r.cg.tolerance {
		r.cfg.metrics.RecordBudgetViolation(ctx, kindGraph)
		if r.cg.policy == PolicyError {
			return &BudgetError{
				Ref:       NodeRef{Kind: kindGraph},
				Step:      r.step,
				Residual:  r.residual,
				Tolerance: r.cg.tolerance,
			}
		}
		observability.LogBudgetWarning(r.cfg.logger, kindGraph, "", r.step,
			r.residual, r.cg.tolerance)
	}
	return nil
}

// Output records the step's per-node values and the graph budget to the
// configured sink.
func (r *Run) Output() error {
	if r.phase != phaseCalculated {
		op := ErrOutOfOrder
		if r.phase == phaseFinalized {
			op = ErrFinalized
		}
		return &StateError{Op: "Output", Phase: r.phase.String(), Err: op}
	}

	records := make([]output.NodeRecord, 0, len(r.cg.nodes))
	for _, n := range r.cg.nodes {
		o := n.Output()
		records = append(records, output.NodeRecord{
			RunID:    r.cfg.runID,
			Step:     r.step,
			Kind:     o.Ref.Kind,
			NodeID:   o.Ref.ID,
			Lateral:  o.Lateral,
			Upstream: o.Upstream,
			Inflow:   o.Inflow,
			Outflow:  o.Outflow,
			Storage:  o.Storage,
		})
	}
	if err := r.cfg.sink.WriteNodes(records); err != nil {
		return fmt.Errorf("write node output: %w", err)
	}

	var in, out float64
	for _, rec := range records {
		in += rec.Lateral
	}
	for _, i := range r.cg.terminals {
		out += r.outflows[i]
	}
	if err := r.cfg.sink.WriteGraph(output.GraphRecord{
		RunID:        r.cfg.runID,
		Step:         r.step,
		Inflow:       in,
		Outflow:      out,
		DeltaStorage: r.dStorage,
		Residual:     r.residual,
	}); err != nil {
		return fmt.Errorf("write graph output: %w", err)
	}

	r.phase = phaseOutput
	return nil
}

// StepOnce runs one full step: Advance, Calculate, Output.
func (r *Run) StepOnce(ctx context.Context, dt float64) error {
	if err := r.Advance(); err != nil {
		return err
	}
	if err := r.Calculate(ctx, dt); err != nil {
		return err
	}
	return r.Output()
}

// Simulate runs the given number of steps, checking for cancellation
// between steps. A cancelled run halts cleanly at a step boundary; no
// partial-step rollback is attempted.
func (r *Run) Simulate(ctx context.Context, steps int, dt float64) error {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("run cancelled before step %d: %w", r.step+1, ctx.Err())
		default:
		}
		if err := r.StepOnce(ctx, dt); err != nil {
			return err
		}
	}
	return nil
}

// Finalize releases node resources and closes the output sink.
// Idempotent; after the first call, step methods fail with ErrFinalized.
func (r *Run) Finalize() error {
	if r.phase == phaseFinalized {
		return r.finalErr
	}
	r.phase = phaseFinalized

	var errs []error
	for _, n := range r.cg.nodes {
		if err := n.Finalize(); err != nil {
			errs = append(errs, &NodeError{Ref: n.Ref(), Step: r.step, Op: "finalize", Err: err})
		}
	}
	if err := r.cfg.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sink: %w", err))
	}

	observability.LogRunFinalized(r.cfg.logger, r.cfg.runID, r.step+1)
	r.finalErr = errors.Join(errs...)
	return r.finalErr
}
