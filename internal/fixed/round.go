package fixed

import "fmt"

// RoundingMode selects how bits below the output LSB are discarded.
// The numeric values match the output_rounding_mode enumeration of the
// FIR compiler C-model header.
type RoundingMode int

const (
	// FullPrecision keeps every accumulator bit; the output format is the
	// accumulator format.
	FullPrecision RoundingMode = iota
	// TruncateLSBs drops the low bits (rounds toward negative infinity).
	TruncateLSBs
	// SymmetricZero rounds to nearest, ties toward zero.
	SymmetricZero
	// SymmetricInf rounds to nearest, ties away from zero.
	SymmetricInf
	// ConvergentEven rounds to nearest, ties to the even neighbour.
	ConvergentEven
	// ConvergentOdd rounds to nearest, ties to the odd neighbour.
	ConvergentOdd
	// NonSymmetricDown rounds to nearest, ties toward negative infinity.
	NonSymmetricDown
	// NonSymmetricUp rounds to nearest, ties toward positive infinity.
	NonSymmetricUp
)

const tieHalf = 0.5

var roundingModeNames = [...]string{
	FullPrecision:    "full_precision",
	TruncateLSBs:     "truncate_lsbs",
	SymmetricZero:    "symmetric_zero",
	SymmetricInf:     "symmetric_inf",
	ConvergentEven:   "convergent_even",
	ConvergentOdd:    "convergent_odd",
	NonSymmetricDown: "non_symmetric_down",
	NonSymmetricUp:   "non_symmetric_up",
}

// Valid reports whether m is one of the defined modes.
func (m RoundingMode) Valid() bool {
	return m >= FullPrecision && m <= NonSymmetricUp
}

func (m RoundingMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("RoundingMode(%d)", int(m))
	}
	return roundingModeNames[m]
}

// ParseRoundingMode is the inverse of RoundingMode.String.
func ParseRoundingMode(s string) (RoundingMode, error) {
	for i, name := range roundingModeNames {
		if name == s {
			return RoundingMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rounding mode %q", s)
}

// Round reduces a full-precision accumulator with accFract fractional bits
// to the output format, applying mode to the discarded bits and saturating
// to the output range. The boolean reports saturation.
func Round(acc Accumulator, accFract int, out Format, mode RoundingMode) (Sample, bool) {
	shift := accFract - out.Fract
	var q int64

	switch {
	case shift <= 0:
		v := int64(acc)
		// widening the fraction cannot lose bits, only overflow
		for range -shift {
			if v > int64(out.Max()) || v < int64(out.Min()) {
				break
			}
			v <<= 1
		}
		q = v
	case mode == FullPrecision || mode == TruncateLSBs:
		q = int64(acc) >> shift
	default:
		q = roundShift(int64(acc), shift, mode)
	}

	return out.Saturate(Sample(q))
}

// roundShift divides x by 2^shift (shift > 0) rounding to nearest with the
// tie rule of mode.
func roundShift(x int64, shift int, mode RoundingMode) int64 {
	q := x >> shift
	rem := x - q<<shift
	half := int64(1) << (shift - 1)

	switch {
	case rem < half:
		return q
	case rem > half:
		return q + 1
	}
	return q + tieIncrement(q, x < 0, mode)
}

// tieIncrement returns 0 or 1: whether an exact tie between floor value q
// and q+1 resolves upward.
func tieIncrement(q int64, negative bool, mode RoundingMode) int64 {
	switch mode {
	case SymmetricZero:
		if negative {
			return 1
		}
		return 0
	case SymmetricInf:
		if negative {
			return 0
		}
		return 1
	case ConvergentEven:
		if q&1 == 0 {
			return 0
		}
		return 1
	case ConvergentOdd:
		if q&1 != 0 {
			return 0
		}
		return 1
	case NonSymmetricDown:
		return 0
	default:
		return 1
	}
}
