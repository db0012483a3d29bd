package exchange

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConstant_SentinelBeforeAdvance verifies the adapter contract: a
// source queried before its first Advance returns the not-yet-available
// sentinel, never a numeric zero.
func TestConstant_SentinelBeforeAdvance(t *testing.T) {
	src := Constant(0)
	assert.True(t, IsUnavailable(src.Current()))

	src.Advance()
	assert.False(t, IsUnavailable(src.Current()))
	assert.Zero(t, src.Current())
}

// TestSeries_Cursor verifies the stored-series cursor semantics.
func TestSeries_Cursor(t *testing.T) {
	src := Series([]float64{1.5, 2.5, 3.5})
	assert.True(t, IsUnavailable(src.Current()))

	for _, want := range []float64{1.5, 2.5, 3.5} {
		src.Advance()
		assert.Equal(t, want, src.Current())
	}

	// Exhausted: sentinel again, and stays exhausted.
	src.Advance()
	assert.True(t, IsUnavailable(src.Current()))
	src.Advance()
	assert.True(t, IsUnavailable(src.Current()))
}

// TestSeries_Empty verifies an empty series is always unavailable.
func TestSeries_Empty(t *testing.T) {
	src := Series(nil)
	src.Advance()
	assert.True(t, IsUnavailable(src.Current()))
}

// TestSeriesFromFile verifies parsing, comments, and blank lines.
func TestSeriesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.txt")
	require.NoError(t, os.WriteFile(path, []byte("# gauge record\n1.25\n\n2.5\n 3.75 \n"), 0o644))

	src, err := SeriesFromFile(path)
	require.NoError(t, err)

	for _, want := range []float64{1.25, 2.5, 3.75} {
		src.Advance()
		assert.Equal(t, want, src.Current())
	}
	src.Advance()
	assert.True(t, IsUnavailable(src.Current()))
}

// TestSeriesFromFile_Errors verifies missing files and bad values fail.
func TestSeriesFromFile_Errors(t *testing.T) {
	_, err := SeriesFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("1.0\nnot-a-number\n"), 0o644))
	_, err = SeriesFromFile(path)
	assert.Error(t, err)
}

// TestUpstream verifies the process-backed source reads its producer
// once per Advance.
func TestUpstream(t *testing.T) {
	value := 10.0
	src := Upstream(func() float64 { return value })
	assert.True(t, IsUnavailable(src.Current()))

	src.Advance()
	assert.Equal(t, 10.0, src.Current())

	// The producer moves on; Current holds the step's snapshot.
	value = 20.0
	assert.Equal(t, 10.0, src.Current())
	src.Advance()
	assert.Equal(t, 20.0, src.Current())
}

// TestZero verifies the default lateral source.
func TestZero(t *testing.T) {
	src := Zero()
	assert.True(t, IsUnavailable(src.Current()))
	src.Advance()
	assert.Zero(t, src.Current())
}
