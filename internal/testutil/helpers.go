// Package testutil provides reusable test helpers for the FIR engine tests.
package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tphakala/go-fir/internal/fixed"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10
	DBTolerance      = 0.01
)

// halfDivisor is used for finding center indices in symmetric arrays.
const halfDivisor = 2

// Samples converts integer literals to raw fixed-point samples.
func Samples(v ...int64) []fixed.Sample {
	out := make([]fixed.Sample, len(v))
	for i, x := range v {
		out[i] = fixed.Sample(x)
	}
	return out
}

// Impulse returns n zero samples with amp at index at.
func Impulse(n, at int, amp fixed.Sample) []fixed.Sample {
	out := make([]fixed.Sample, n)
	out[at] = amp
	return out
}

// Sine returns n samples of a sine at freq cycles per sample.
func Sine(n int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i))
	}
	return out
}

// ZeroStuff inserts l-1 zeros after every sample of x.
func ZeroStuff(x []fixed.Sample, l int) []fixed.Sample {
	out := make([]fixed.Sample, len(x)*l)
	for i, v := range x {
		out[i*l] = v
	}
	return out
}

// DirectForm convolves x with taps from a zero history, returning the
// full-precision accumulators y[n] = sum h[k] * x[n-k] for every n of x.
func DirectForm(taps, x []fixed.Sample) []fixed.Accumulator {
	out := make([]fixed.Accumulator, len(x))
	for n := range x {
		var acc fixed.Accumulator
		for k, h := range taps {
			if n-k < 0 {
				break
			}
			acc = fixed.MAC(acc, x[n-k], h)
		}
		out[n] = acc
	}
	return out
}

// AssertSymmetric verifies that a slice is symmetric (s[i] == s[n-1-i]).
func AssertSymmetric(t *testing.T, s []float64, tolerance float64) bool {
	t.Helper()
	n := len(s)
	for i := range n / halfDivisor {
		j := n - 1 - i
		if !assert.InDelta(t, s[i], s[j], tolerance,
			"slice not symmetric at i=%d: s[%d]=%f != s[%d]=%f", i, i, s[i], j, s[j]) {
			return false
		}
	}
	return true
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertDCGain verifies that the sum of coefficients equals the expected DC gain.
func AssertDCGain(t *testing.T, coeffs []float64, expectedGain, tolerance float64) bool {
	t.Helper()
	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	return assert.InDelta(t, expectedGain, sum, tolerance,
		"DC gain = %f, want %f", sum, expectedGain)
}

// AssertWithinLSBs verifies that every fixed-point value, read in format f,
// is within lsbs output LSBs of the float reference.
func AssertWithinLSBs(t *testing.T, want []float64, got []fixed.Sample, f fixed.Format, lsbs float64) bool {
	t.Helper()
	if !assert.Len(t, got, len(want)) {
		return false
	}
	tol := lsbs * f.LSB()
	for i := range want {
		if !assert.InDelta(t, want[i], f.Float(got[i]), tol, "sample %d", i) {
			return false
		}
	}
	return true
}
