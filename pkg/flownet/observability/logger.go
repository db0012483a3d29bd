// Package observability provides structured logging and metrics for
// flownet simulation runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
)

// LogRunStart logs the start of a simulation run.
func LogRunStart(logger *slog.Logger, runID string, nodes int) {
	if logger == nil {
		return
	}
	logger.Info("simulation run starting",
		slog.String("run_id", runID),
		slog.Int("nodes", nodes),
	)
}

// LogRunFinalized logs run finalization.
func LogRunFinalized(logger *slog.Logger, runID string, steps int) {
	if logger == nil {
		return
	}
	logger.Info("simulation run finalized",
		slog.String("run_id", runID),
		slog.Int("steps", steps),
	)
}

// LogStepComplete logs completion of one step's calculate phase.
func LogStepComplete(logger *slog.Logger, runID string, step int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("run_id", runID),
		slog.Int("step", step),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepError logs a failed step.
func LogStepError(logger *slog.Logger, runID string, step int, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("run_id", runID),
		slog.Int("step", step),
		slog.String("error", err.Error()),
	)
}

// LogBudgetWarning logs a budget-closure violation under the warn policy.
func LogBudgetWarning(logger *slog.Logger, kind, id string, step int, residual, tolerance float64) {
	if logger == nil {
		return
	}
	logger.Warn("budget residual exceeds tolerance",
		slog.String("kind", kind),
		slog.String("id", id),
		slog.Int("step", step),
		slog.Float64("residual", residual),
		slog.Float64("tolerance", tolerance),
	)
}

// LogClamp logs a clamped numerical domain violation (negative storage,
// release exceeding available water).
func LogClamp(logger *slog.Logger, kind, id string, step int) {
	if logger == nil {
		return
	}
	logger.Warn("node value clamped to physical bounds",
		slog.String("kind", kind),
		slog.String("id", id),
		slog.Int("step", step),
	)
}
