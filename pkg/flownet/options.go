package flownet

import (
	"log/slog"

	"github.com/hydrotools/flownet/pkg/flownet/observability"
	"github.com/hydrotools/flownet/pkg/flownet/output"
)

// runConfig holds configuration for a simulation run.
type runConfig struct {
	runID   string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	sink    output.Sink
}

// defaultRunConfig returns the default run configuration: no logging,
// no metrics, output discarded.
func defaultRunConfig() runConfig {
	return runConfig{
		metrics: observability.NoopMetrics{},
		sink:    output.Discard{},
	}
}

// RunOption configures a simulation run.
type RunOption func(*runConfig)

// WithRunID sets the run identifier tagging log lines and output rows.
// Default: a random UUID.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		if id != "" {
			c.runID = id
		}
	}
}

// WithLogger enables structured logging for the run.
// Default: logging disabled.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: no-op recorder.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSink sets the output sink receiving per-step node and graph
// records. The run closes the sink at Finalize.
// Default: output discarded.
func WithSink(s output.Sink) RunOption {
	return func(c *runConfig) {
		if s != nil {
			c.sink = s
		}
	}
}
