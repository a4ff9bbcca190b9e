// Package polyphase splits a prototype coefficient set into the per-phase
// subfilters executed by the filter pipeline.
package polyphase

import (
	"fmt"

	"github.com/tphakala/go-fir/internal/fixed"
	"github.com/tphakala/go-fir/internal/mathutil"
)

const (
	minRate           = 1
	minZeroPackFactor = 1
)

// Params holds the rate parameters that shape the decomposition.
type Params struct {
	// InterpRate is the number of phases (L).
	InterpRate int

	// DecimRate (M) does not change the subfilters; it is carried so the
	// decomposition can be validated and described as a whole.
	DecimRate int

	// ZeroPackFactor inserts ZeroPackFactor-1 zeros between prototype taps.
	ZeroPackFactor int

	// Padding prepends this many zero taps to the prototype.
	Padding int
}

// Validate checks the rate parameters.
func (p Params) Validate() error {
	if p.InterpRate < minRate || p.DecimRate < minRate {
		return fmt.Errorf("rates must be positive: interp=%d decim=%d", p.InterpRate, p.DecimRate)
	}
	if p.ZeroPackFactor < minZeroPackFactor {
		return fmt.Errorf("zero pack factor %d must be at least %d", p.ZeroPackFactor, minZeroPackFactor)
	}
	if p.Padding < 0 {
		return fmt.Errorf("coefficient padding %d must not be negative", p.Padding)
	}
	return nil
}

// ExpandedLength returns the prototype length after padding and zero packing.
func (p Params) ExpandedLength(numTaps int) int {
	if numTaps == 0 {
		return p.Padding
	}
	return p.Padding + (numTaps-1)*p.ZeroPackFactor + 1
}

// RegisterLength returns the shift register length every channel needs:
// ceil(expanded length / InterpRate).
func (p Params) RegisterLength(numTaps int) int {
	return mathutil.CeilDiv(p.ExpandedLength(numTaps), p.InterpRate)
}

// Phase is one subfilter. Only taps that can be non-zero are listed;
// Offsets[i] is the register position (0 = newest sample) that Coeffs[i]
// multiplies.
type Phase struct {
	Coeffs  []fixed.Sample
	Offsets []int
}

// Dense returns the phase as a full-length tap slice with known zeros
// filled back in.
func (ph Phase) Dense(length int) []fixed.Sample {
	out := make([]fixed.Sample, length)
	for i, off := range ph.Offsets {
		out[off] = ph.Coeffs[i]
	}
	return out
}

// FilterBank is the polyphase decomposition of one coefficient bank.
//
// Tap k of the expanded prototype lands in phase k mod NumPhases at
// register offset k / NumPhases, so phase p holds taps p, p+L, p+2L, ...
type FilterBank struct {
	Phases []Phase

	// NumPhases equals the interpolation rate.
	NumPhases int

	// TapsPerPhase is the register length shared by all phases.
	TapsPerPhase int

	// TotalTaps is the expanded prototype length.
	TotalTaps int
}

// MACs returns the number of multiply-accumulates needed to compute every
// phase once.
func (fb *FilterBank) MACs() int {
	n := 0
	for _, ph := range fb.Phases {
		n += len(ph.Coeffs)
	}
	return n
}

// Decompose builds the polyphase filter bank of taps. knownZero, when not
// nil, marks prototype taps that are structurally zero (halfband); they are
// dropped from the multiply-accumulate lists just like padding and
// zero-pack taps. Decompose is pure.
func Decompose(taps []fixed.Sample, knownZero func(int) bool, p Params) (*FilterBank, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(taps) == 0 {
		return nil, fmt.Errorf("cannot decompose an empty coefficient set")
	}

	fb := &FilterBank{
		Phases:       make([]Phase, p.InterpRate),
		NumPhases:    p.InterpRate,
		TapsPerPhase: p.RegisterLength(len(taps)),
		TotalTaps:    p.ExpandedLength(len(taps)),
	}

	for phase := range fb.NumPhases {
		ph := Phase{
			Coeffs:  make([]fixed.Sample, 0, fb.TapsPerPhase),
			Offsets: make([]int, 0, fb.TapsPerPhase),
		}
		for off := range fb.TapsPerPhase {
			src, ok := p.PrototypeIndex(off*p.InterpRate+phase, len(taps))
			if !ok || (knownZero != nil && knownZero(src)) {
				continue
			}
			ph.Coeffs = append(ph.Coeffs, taps[src])
			ph.Offsets = append(ph.Offsets, off)
		}
		fb.Phases[phase] = ph
	}

	return fb, nil
}

// PrototypeIndex maps an index of the expanded prototype back to the source
// tap, reporting false for padding and zero-pack positions.
func (p Params) PrototypeIndex(expanded, numTaps int) (int, bool) {
	k := expanded - p.Padding
	if k < 0 || k%p.ZeroPackFactor != 0 {
		return 0, false
	}
	src := k / p.ZeroPackFactor
	if src >= numTaps {
		return 0, false
	}
	return src, true
}
