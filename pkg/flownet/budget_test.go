package flownet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParsePolicy verifies configuration strings map to policies.
func TestParsePolicy(t *testing.T) {
	testCases := []struct {
		in   string
		want Policy
	}{
		{"error", PolicyError},
		{"warn", PolicyWarn},
		{"off", PolicyOff},
		{"ERROR", PolicyError},
		{"Warn", PolicyWarn},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePolicy(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestParsePolicy_Unknown verifies unknown strings are rejected.
func TestParsePolicy_Unknown(t *testing.T) {
	_, err := ParsePolicy("strict")
	assert.Error(t, err)
}

// TestPolicy_String verifies round-tripping through String.
func TestPolicy_String(t *testing.T) {
	for _, p := range []Policy{PolicyError, PolicyWarn, PolicyOff} {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

// TestBudget_Residual verifies the ledger accumulates and closes.
func TestBudget_Residual(t *testing.T) {
	var b Budget
	b.add(10, 4, 6)
	b.add(10, 8, 2)

	assert.Equal(t, 2, b.Steps)
	assert.Equal(t, 20.0, b.In)
	assert.Equal(t, 12.0, b.Out)
	assert.Equal(t, 8.0, b.DeltaStorage)
	assert.InDelta(t, 0, b.Residual(), 1e-12)
}

// TestBudget_ResidualNonZero verifies an open ledger reports its gap.
func TestBudget_ResidualNonZero(t *testing.T) {
	var b Budget
	b.add(10, 4, 3)
	assert.InDelta(t, 3, b.Residual(), 1e-12)
}
