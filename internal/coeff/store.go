// Package coeff holds the quantized coefficient banks of a filter instance.
//
// Each bank is quantized once from float64 source taps and never changes
// afterwards; the store hands out read-only banks to every channel and path.
package coeff

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-fir/internal/fixed"
)

// Quantization selects how source taps are mapped to fixed-point values.
// Values match the quantization enumeration of the FIR compiler header.
type Quantization int

const (
	// IntegerCoeff treats source taps as integers; the fractional width must be 0.
	IntegerCoeff Quantization = iota
	// QuantizedOnly quantizes taps to the configured width and fraction.
	QuantizedOnly
	// MaximizeDynamicRange picks the largest fraction at which every tap of
	// every set still fits in the configured width.
	MaximizeDynamicRange
)

var (
	// ErrBankOutOfRange is returned when a bank index does not exist.
	ErrBankOutOfRange = errors.New("coefficient bank index out of range")

	// ErrMalformed is returned for coefficient sets that cannot be loaded.
	ErrMalformed = errors.New("malformed coefficient set")
)

// integralTolerance is how far from an integer an IntegerCoeff tap may be.
const integralTolerance = 1e-9

// LoadParams controls quantization of the source sets.
type LoadParams struct {
	Format       fixed.Format
	Quantization Quantization
	Halfband     bool
}

// Bank is one quantized coefficient set.
type Bank struct {
	// Taps holds every quantized tap, including the halfband zeros.
	Taps []fixed.Sample

	// NonZero lists the indices of Taps that take part in the
	// multiply-accumulate. For dense banks it lists every index.
	NonZero []int

	// Halfband is true when the zero taps were dropped from NonZero.
	Halfband bool

	// Saturated counts taps that had to be clamped during quantization.
	Saturated int
}

// IsKnownZero reports whether tap i is a structural halfband zero.
func (b *Bank) IsKnownZero(i int) bool {
	if !b.Halfband {
		return false
	}
	center := (len(b.Taps) - 1) / 2
	d := i - center
	return d != 0 && d%2 == 0
}

// Store owns the banks of one filter instance.
type Store struct {
	banks  []*Bank
	format fixed.Format
}

// Load quantizes every source set and returns the store. All sets must have
// the same non-zero length.
func Load(sets [][]float64, p LoadParams) (*Store, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: no coefficient sets", ErrMalformed)
	}
	n := len(sets[0])
	if n == 0 {
		return nil, fmt.Errorf("%w: empty coefficient set", ErrMalformed)
	}
	for i, set := range sets {
		if len(set) != n {
			return nil, fmt.Errorf("%w: set %d has %d taps, want %d", ErrMalformed, i, len(set), n)
		}
	}

	format, err := EffectiveFormat(sets, p.Format, p.Quantization)
	if err != nil {
		return nil, err
	}

	s := &Store{
		banks:  make([]*Bank, len(sets)),
		format: format,
	}
	for i, set := range sets {
		bank, err := quantizeSet(set, format, p)
		if err != nil {
			return nil, fmt.Errorf("set %d: %w", i, err)
		}
		s.banks[i] = bank
	}
	return s, nil
}

// EffectiveFormat returns the coefficient format actually used for the
// sets: the configured one, or for MaximizeDynamicRange the same width with
// the largest fraction that keeps every tap in range.
func EffectiveFormat(sets [][]float64, f fixed.Format, q Quantization) (fixed.Format, error) {
	switch q {
	case IntegerCoeff:
		if f.Fract != 0 {
			return f, fmt.Errorf("%w: integer coefficients need fractional width 0, got %d", ErrMalformed, f.Fract)
		}
		for i, set := range sets {
			for j, v := range set {
				if math.Abs(v-math.Round(v)) > integralTolerance {
					return f, fmt.Errorf("%w: set %d tap %d (%g) is not an integer", ErrMalformed, i, j, v)
				}
			}
		}
		return f, nil

	case QuantizedOnly:
		return f, nil

	case MaximizeDynamicRange:
		peak := 0.0
		for _, set := range sets {
			for _, v := range set {
				peak = math.Max(peak, math.Abs(v))
			}
		}
		if peak == 0 {
			return f, fmt.Errorf("%w: all taps are zero", ErrMalformed)
		}
		// largest fraction at which the peak still fits; the negative
		// range is never smaller than the positive one
		out := f
		for out.Fract = f.Width; out.Fract > 0; out.Fract-- {
			if _, sat := fixed.Quantize(peak, out, fixed.ConvergentEven); !sat {
				break
			}
		}
		return out, nil

	default:
		return f, fmt.Errorf("%w: unknown quantization mode %d", ErrMalformed, q)
	}
}

func quantizeSet(set []float64, f fixed.Format, p LoadParams) (*Bank, error) {
	b := &Bank{
		Taps:     make([]fixed.Sample, len(set)),
		Halfband: p.Halfband,
	}
	for i, v := range set {
		q, sat := fixed.Quantize(v, f, fixed.ConvergentEven)
		if sat {
			b.Saturated++
		}
		b.Taps[i] = q
	}

	if p.Halfband {
		if err := CheckHalfband(b.Taps); err != nil {
			return nil, err
		}
	}

	b.NonZero = make([]int, 0, len(b.Taps))
	for i := range b.Taps {
		if !b.IsKnownZero(i) {
			b.NonZero = append(b.NonZero, i)
		}
	}
	return b, nil
}

// CheckHalfband verifies the halfband structure of quantized taps: odd
// length, symmetric, and zero at every even non-zero distance from the centre.
func CheckHalfband(taps []fixed.Sample) error {
	n := len(taps)
	if n%2 == 0 {
		return fmt.Errorf("%w: halfband set needs odd length, got %d", ErrMalformed, n)
	}
	center := (n - 1) / 2
	for i := range center {
		if taps[i] != taps[n-1-i] {
			return fmt.Errorf("%w: halfband set not symmetric at tap %d", ErrMalformed, i)
		}
		if d := center - i; d%2 == 0 && taps[i] != 0 {
			return fmt.Errorf("%w: halfband tap %d must be zero", ErrMalformed, i)
		}
	}
	return nil
}

// Select returns bank i.
func (s *Store) Select(i int) (*Bank, error) {
	if i < 0 || i >= len(s.banks) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrBankOutOfRange, i, len(s.banks))
	}
	return s.banks[i], nil
}

// Len returns the number of banks.
func (s *Store) Len() int {
	return len(s.banks)
}

// Format returns the effective coefficient format.
func (s *Store) Format() fixed.Format {
	return s.format
}

// NumTaps returns the length of every bank.
func (s *Store) NumTaps() int {
	return len(s.banks[0].Taps)
}
