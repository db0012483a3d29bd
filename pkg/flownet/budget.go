package flownet

import (
	"fmt"
	"strings"
)

// Policy controls how budget-closure violations are handled.
type Policy int

const (
	// PolicyError stops the step with a BudgetError.
	PolicyError Policy = iota
	// PolicyWarn logs the violation and continues.
	PolicyWarn
	// PolicyOff skips budget accounting entirely.
	PolicyOff
)

// DefaultTolerance is the budget closure tolerance used when none is
// configured. Expressed in the same volume units as storage.
const DefaultTolerance = 1e-9

// String returns the policy name as used in configuration files.
func (p Policy) String() string {
	switch p {
	case PolicyError:
		return "error"
	case PolicyWarn:
		return "warn"
	case PolicyOff:
		return "off"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration string to a Policy.
// Accepted values: "error", "warn", "off" (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "error":
		return PolicyError, nil
	case "warn":
		return PolicyWarn, nil
	case "off":
		return PolicyOff, nil
	default:
		return PolicyError, fmt.Errorf("unknown budget policy %q", s)
	}
}

// Budget is a cumulative mass-conservation ledger: total inflow volume,
// total outflow volume, and net storage change since initialization.
// Residual() should stay within tolerance for a closed configuration.
type Budget struct {
	// In is the accumulated inflow volume.
	In float64
	// Out is the accumulated outflow volume.
	Out float64
	// DeltaStorage is the accumulated net storage change.
	DeltaStorage float64
	// Steps is the number of accumulated steps.
	Steps int
}

// add accumulates one step's volumes into the ledger.
func (b *Budget) add(in, out, dStorage float64) {
	b.In += in
	b.Out += out
	b.DeltaStorage += dStorage
	b.Steps++
}

// Residual returns the cumulative closure residual In - Out - DeltaStorage.
func (b Budget) Residual() float64 {
	return b.In - b.Out - b.DeltaStorage
}
