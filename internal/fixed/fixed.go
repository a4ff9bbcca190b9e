// Package fixed implements the width- and fraction-aware two's complement
// arithmetic shared by every stage of the FIR engine.
//
// A value is carried as a raw integer (Sample) together with a Format that
// says how many bits it occupies and how many of those bits are fractional.
// The real number represented by raw integer s in format {W, F} is s / 2^F.
package fixed

import (
	"fmt"
	"math"

	"github.com/tphakala/go-fir/internal/mathutil"
)

const (
	// MaxWidth is the widest unsigned format the int64 backend represents.
	MaxWidth = 62

	// MaxAccumulatorWidth bounds signed formats, the full-precision
	// accumulator included, so that sums never wrap in an int64.
	MaxAccumulatorWidth = 63
)

// Sample is a raw fixed-point value. Its meaning depends on the Format it
// was produced for.
type Sample int64

// Accumulator holds a full-precision sum of products. No rounding is applied
// until Round is called.
type Accumulator int64

// Format describes a fixed-point number: total Width in bits and the number
// of fractional bits. Unsigned formats use all Width bits for magnitude.
type Format struct {
	Width    int
	Fract    int
	Unsigned bool
}

// Validate reports whether the format is representable by this backend.
func (f Format) Validate() error {
	limit := MaxAccumulatorWidth
	if f.Unsigned {
		limit = MaxWidth
	}
	if f.Width < 1 || f.Width > limit {
		return fmt.Errorf("width %d out of range [1, %d]", f.Width, limit)
	}
	if f.Fract < 0 || f.Fract > f.Width {
		return fmt.Errorf("fractional width %d out of range [0, %d]", f.Fract, f.Width)
	}
	return nil
}

// Min returns the most negative raw value of the format.
func (f Format) Min() Sample {
	if f.Unsigned {
		return 0
	}
	return -Sample(1) << (f.Width - 1)
}

// Max returns the most positive raw value of the format.
func (f Format) Max() Sample {
	if f.Unsigned {
		return Sample(1)<<f.Width - 1
	}
	return Sample(1)<<(f.Width-1) - 1
}

// LSB returns the real value of one least significant bit.
func (f Format) LSB() float64 {
	return math.Ldexp(1, -f.Fract)
}

// Float converts a raw sample back to a real number.
func (f Format) Float(s Sample) float64 {
	return math.Ldexp(float64(s), -f.Fract)
}

// Saturate clamps s into the representable range and reports whether
// clamping occurred.
func (f Format) Saturate(s Sample) (Sample, bool) {
	if lo := f.Min(); s < lo {
		return lo, true
	}
	if hi := f.Max(); s > hi {
		return hi, true
	}
	return s, false
}

// String formats as the usual Q notation, e.g. "s16.15".
func (f Format) String() string {
	sign := "s"
	if f.Unsigned {
		sign = "u"
	}
	return fmt.Sprintf("%s%d.%d", sign, f.Width, f.Fract)
}

// Quantize converts a real value to format f using the given rounding mode
// on the bits below the LSB. Values outside the range saturate; the boolean
// reports saturation. NaN quantizes to zero.
func Quantize(v float64, f Format, mode RoundingMode) (Sample, bool) {
	if math.IsNaN(v) {
		return 0, true
	}
	scaled := math.Ldexp(v, f.Fract)

	var r float64
	switch mode {
	case FullPrecision, TruncateLSBs:
		r = math.Floor(scaled)
	default:
		r = roundFloat(scaled, mode)
	}

	if r < float64(f.Min()) {
		return f.Min(), true
	}
	if r > float64(f.Max()) {
		return f.Max(), true
	}
	return Sample(r), false
}

// roundFloat applies the tie rule of mode to an already scaled real value.
func roundFloat(x float64, mode RoundingMode) float64 {
	fl := math.Floor(x)
	diff := x - fl
	switch {
	case diff < tieHalf:
		return fl
	case diff > tieHalf:
		return fl + 1
	}
	return fl + float64(tieIncrement(int64(fl), x < 0, mode))
}

// MAC returns acc + a*b.
func MAC(acc Accumulator, a, b Sample) Accumulator {
	return acc + Accumulator(a)*Accumulator(b)
}

// AccumulatorFormat returns the format wide enough to hold the sum of taps
// products of data and coefficient samples without intermediate rounding.
func AccumulatorFormat(data, coeff Format, taps int) Format {
	width := data.Width + coeff.Width + mathutil.CeilLog2(taps)
	if data.Unsigned != coeff.Unsigned {
		// mixed-sign product needs one extra bit to stay signed
		width++
	}
	return Format{
		Width:    width,
		Fract:    data.Fract + coeff.Fract,
		Unsigned: data.Unsigned && coeff.Unsigned,
	}
}
