// Package rate decides which polyphase phases produce an output after each
// input sample.
//
// The filter runs on a virtual upsampled timeline: input n sits at tick n*L
// and an output is due at every tick that is a multiple of M. The output at
// tick n*L+p (0 <= p < L) is computed from phase p once input n has been
// pushed. The pattern repeats every lcm(L, M) ticks, which is M/gcd inputs
// and L/gcd outputs.
package rate

import (
	"fmt"

	"github.com/tphakala/go-fir/internal/mathutil"
)

// Schedule is the precomputed phase table of one L/M rate change. It is
// immutable and shared by every channel cursor.
type Schedule struct {
	interp int
	decim  int

	// phases[n] lists the phases due after input n of the period
	phases [][]int

	outputs int
}

// NewSchedule builds the schedule for interpolation L and decimation M.
func NewSchedule(interp, decim int) (*Schedule, error) {
	if interp < 1 || decim < 1 {
		return nil, fmt.Errorf("invalid rate %d/%d: both factors must be positive", interp, decim)
	}

	period := mathutil.LCM(interp, decim)
	s := &Schedule{
		interp: interp,
		decim:  decim,
		phases: make([][]int, period/interp),
	}

	// step the output position by M across the upsampled period, like a
	// phase accumulator: input = at / L, phase = at % L
	for at := 0; at < period; at += decim {
		n, phase := at/interp, at%interp
		s.phases[n] = append(s.phases[n], phase)
		s.outputs++
	}
	return s, nil
}

// InterpRate returns L.
func (s *Schedule) InterpRate() int { return s.interp }

// DecimRate returns M.
func (s *Schedule) DecimRate() int { return s.decim }

// InputsPerPeriod returns the number of inputs before the pattern repeats.
func (s *Schedule) InputsPerPeriod() int { return len(s.phases) }

// OutputsPerPeriod returns the number of outputs produced per period.
func (s *Schedule) OutputsPerPeriod() int { return s.outputs }

// Phases returns the phases due after input n of the period. The returned
// slice must not be modified.
func (s *Schedule) Phases(n int) []int {
	return s.phases[n%len(s.phases)]
}

// MaxPhasesPerInput returns the largest number of outputs any single input
// can produce. Used to size output buffers.
func (s *Schedule) MaxPhasesPerInput() int {
	m := 0
	for _, p := range s.phases {
		m = max(m, len(p))
	}
	return m
}

// OutputsFor returns how many outputs a cursor at position pos produces
// over the next n inputs.
func (s *Schedule) OutputsFor(pos, n int) int {
	total := (n / len(s.phases)) * s.outputs
	for i := range n % len(s.phases) {
		total += len(s.Phases(pos + i))
	}
	return total
}

// Cursor tracks one channel's position inside the schedule period.
type Cursor struct {
	pos int
}

// Next returns the phases due for the input being consumed and advances
// the cursor, wrapping at the end of the period.
func (c *Cursor) Next(s *Schedule) []int {
	phases := s.phases[c.pos]
	c.pos++
	if c.pos == len(s.phases) {
		c.pos = 0
	}
	return phases
}

// Position returns the index of the next input within the period.
func (c *Cursor) Position() int { return c.pos }

// Reset moves the cursor back to the start of the period.
func (c *Cursor) Reset() { c.pos = 0 }
