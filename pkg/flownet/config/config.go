// Package config loads simulation scenarios from YAML and builds the
// corresponding flow network.
//
// A scenario is the explicit form of the "assemble a mapping, then
// construct" workflow: an ordered set of node parameter tables, the
// connectivity between them, and a boundary source per node, consumed
// by a single BuildGraph call.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hydrotools/flownet/pkg/flownet"
	"github.com/hydrotools/flownet/pkg/flownet/exchange"
)

// Scenario is a complete simulation description.
type Scenario struct {
	Run         RunSpec         `yaml:"run"`
	Budget      BudgetSpec      `yaml:"budget"`
	Channels    []ChannelSpec   `yaml:"channels"`
	Reservoirs  []ReservoirSpec `yaml:"reservoirs"`
	Observed    []ObservedSpec  `yaml:"observed"`
	PassThrough []string        `yaml:"passthrough"`
	Links       []LinkSpec      `yaml:"links"`
	Output      OutputSpec      `yaml:"output"`
}

// RunSpec holds the time axis and calculation mode.
type RunSpec struct {
	// DT is the step length in seconds.
	DT float64 `yaml:"dt"`
	// Steps is the number of steps to simulate.
	Steps int `yaml:"steps"`
	// RunID optionally fixes the run identifier.
	RunID string `yaml:"run_id"`
	// Iterative selects within-step iterative refinement for stateful
	// nodes with sub-step dynamics (reservoirs).
	Iterative bool `yaml:"iterative"`
	// SubSteps is the number of sub-steps in iterative mode. Default 24.
	SubSteps int `yaml:"sub_steps"`
}

// BudgetSpec holds the budget policy configuration.
type BudgetSpec struct {
	// Policy is the graph-level policy: error, warn, or off.
	Policy string `yaml:"policy"`
	// Tolerance is the closure tolerance in storage volume units.
	Tolerance float64 `yaml:"tolerance"`
	// Makers overrides the policy per kind name.
	Makers map[string]string `yaml:"makers"`
}

// SourceSpec describes a boundary source: exactly one of Constant,
// Series, or File must be set.
type SourceSpec struct {
	Constant *float64  `yaml:"constant"`
	Series   []float64 `yaml:"series"`
	File     string    `yaml:"file"`
}

// build constructs the exchange source.
func (s *SourceSpec) build() (exchange.Source, error) {
	set := 0
	if s.Constant != nil {
		set++
	}
	if len(s.Series) > 0 {
		set++
	}
	if s.File != "" {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("source must set exactly one of constant, series, file")
	}
	switch {
	case s.Constant != nil:
		return exchange.Constant(*s.Constant), nil
	case len(s.Series) > 0:
		return exchange.Series(s.Series), nil
	default:
		return exchange.SeriesFromFile(s.File)
	}
}

// ChannelSpec is one channel segment row.
type ChannelSpec struct {
	ID             string      `yaml:"id"`
	TravelTime     float64     `yaml:"travel_time"`
	Weight         float64     `yaml:"weight"`
	InitialOutflow float64     `yaml:"initial_outflow"`
	Lateral        *SourceSpec `yaml:"lateral"`
}

// ReservoirSpec is one reservoir row. The operating rule is given either
// as the common dead/conservation/flood bands or as explicit curve
// breakpoints; Curves wins when both are present.
type ReservoirSpec struct {
	ID           string      `yaml:"id"`
	Capacity     float64     `yaml:"capacity"`
	Dead         float64     `yaml:"dead"`
	Conservation float64     `yaml:"conservation"`
	Flood        float64     `yaml:"flood"`
	BaseRelease  float64     `yaml:"base_release"`
	FloodFactor  float64     `yaml:"flood_factor"`
	Initial      float64     `yaml:"initial"`
	SeasonLength int         `yaml:"season_length"`
	Curves       [][]Point   `yaml:"curves"`
	Lateral      *SourceSpec `yaml:"lateral"`
}

// Point is one rule-curve breakpoint in YAML form.
type Point struct {
	Storage float64 `yaml:"storage"`
	Release float64 `yaml:"release"`
}

// ObservedSpec is one observation-forced node row.
type ObservedSpec struct {
	ID      string      `yaml:"id"`
	Flows   SourceSpec  `yaml:"flows"`
	Lateral *SourceSpec `yaml:"lateral"`
}

// LinkSpec declares that From's outflow feeds To. Both are "kind/id".
type LinkSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// OutputSpec selects the output sink.
type OutputSpec struct {
	// SQLite is the database path. Empty means output is discarded.
	SQLite string `yaml:"sqlite"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse parses scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Run.DT <= 0 {
		return nil, fmt.Errorf("run.dt must be positive, got %g", s.Run.DT)
	}
	if s.Run.Steps <= 0 {
		return nil, fmt.Errorf("run.steps must be positive, got %d", s.Run.Steps)
	}
	if s.Run.Iterative && s.Run.SubSteps == 0 {
		s.Run.SubSteps = 24
	}
	return &s, nil
}

// parseRef converts "kind/id" to a NodeRef.
func parseRef(s string) (flownet.NodeRef, error) {
	kind, id, ok := strings.Cut(s, "/")
	if !ok || kind == "" || id == "" {
		return flownet.NodeRef{}, fmt.Errorf("node reference must be kind/id, got %q", s)
	}
	return flownet.Ref(kind, id), nil
}
