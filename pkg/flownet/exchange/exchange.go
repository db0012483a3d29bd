// Package exchange decouples node inflow sourcing from the graph.
//
// A Source yields one boundary value per simulation step. The graph's
// run loop calls Advance once per step; Current reads the value visible
// for the current step. Before the first Advance, Current returns the
// Unavailable sentinel rather than an arbitrary number, so a read before
// the run starts can never be conflated with a real zero flow.
package exchange

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Unavailable is the sentinel returned by Current before the first
// Advance, or after a stored series is exhausted. Test with IsUnavailable,
// never with ==.
var Unavailable = math.NaN()

// IsUnavailable reports whether v is the not-yet-available sentinel.
func IsUnavailable(v float64) bool {
	return math.IsNaN(v)
}

// Source supplies one boundary value per step.
type Source interface {
	// Advance moves the source to the next step's value.
	Advance()

	// Current returns the value for the current step, or Unavailable.
	Current() float64
}

// constant is a Source with the same value every step.
type constant struct {
	value    float64
	advanced bool
}

// Constant returns a Source that yields v every step after the first
// Advance.
func Constant(v float64) Source {
	return &constant{value: v}
}

// Zero returns a Source that yields 0 every step. Used as the default
// lateral source for nodes with no configured boundary inflow.
func Zero() Source {
	return Constant(0)
}

func (c *constant) Advance() { c.advanced = true }

func (c *constant) Current() float64 {
	if !c.advanced {
		return Unavailable
	}
	return c.value
}

// series is a file- or memory-backed stored time series with a cursor.
type series struct {
	values []float64
	cursor int
}

// Series returns a Source backed by the given stored values. The cursor
// starts before the first value; Advance past the end yields Unavailable.
// The slice is not copied; callers must not mutate it afterwards.
func Series(values []float64) Source {
	return &series{values: values, cursor: -1}
}

func (s *series) Advance() {
	if s.cursor < len(s.values) {
		s.cursor++
	}
}

func (s *series) Current() float64 {
	if s.cursor < 0 || s.cursor >= len(s.values) {
		return Unavailable
	}
	return s.values[s.cursor]
}

// SeriesFromFile reads a stored time series from a text file, one value
// per line. Blank lines and lines starting with '#' are skipped.
func SeriesFromFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	var values []float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse value: %w", path, line, err)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read series file: %w", err)
	}
	return Series(values), nil
}

// upstream is a process-backed Source reading the live current-step
// output of another simulation component.
type upstream struct {
	read     func() float64
	current  float64
	advanced bool
}

// Upstream returns a Source whose Advance pulls the current value from
// the given producer function. The producer is read once per step, at
// Advance time.
func Upstream(read func() float64) Source {
	return &upstream{read: read, current: Unavailable}
}

func (u *upstream) Advance() {
	u.current = u.read()
	u.advanced = true
}

func (u *upstream) Current() float64 {
	if !u.advanced {
		return Unavailable
	}
	return u.current
}
