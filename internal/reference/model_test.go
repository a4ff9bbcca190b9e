package reference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-fir/internal/polyphase"
	"github.com/tphakala/go-fir/internal/testutil"
)

func params(l, m int) polyphase.Params {
	return polyphase.Params{InterpRate: l, DecimRate: m, ZeroPackFactor: 1}
}

// naive upsamples by zero stuffing, convolves, then keeps every m-th output.
func naive(taps, x []float64, l, m int) []float64 {
	up := make([]float64, len(x)*l)
	for i, v := range x {
		up[i*l] = v
	}
	var out []float64
	for n := 0; n < len(up); n += m {
		var acc float64
		for k, h := range taps {
			if n-k >= 0 {
				acc += h * up[n-k]
			}
		}
		out = append(out, acc)
	}
	return out
}

func TestModel_ImpulseInterp2(t *testing.T) {
	m, err := New[float64]([]float64{1, 2, 3, 4}, params(2, 1))
	require.NoError(t, err)

	out := m.Process([]float64{1, 0, 0, 0})
	assert.InDeltaSlice(t, []float64{1, 2, 3, 4, 0, 0, 0, 0}, out, 1e-12)
}

func TestModel_MatchesNaive(t *testing.T) {
	taps := []float64{0.1, -0.2, 0.35, 0.5, 0.35, -0.2, 0.1}
	x := testutil.Sine(30, 0.07, 0.8)

	for _, r := range [][2]int{{1, 1}, {3, 1}, {1, 3}, {3, 2}, {2, 3}} {
		m, err := New[float64](taps, params(r[0], r[1]))
		require.NoError(t, err)
		assert.InDeltaSlice(t, naive(taps, x, r[0], r[1]), m.Process(x), 1e-9, "rate %d/%d", r[0], r[1])
	}
}

func TestModel_StreamingMatchesOneShot(t *testing.T) {
	taps := []float64{0.25, 0.5, 0.25, 0.125, -0.125}
	x := testutil.Sine(40, 0.03, 0.5)

	whole, err := New[float64](taps, params(3, 2))
	require.NoError(t, err)
	want := whole.Process(x)

	chunked, err := New[float64](taps, params(3, 2))
	require.NoError(t, err)
	var got []float64
	for start := 0; start < len(x); start += 7 {
		end := min(start+7, len(x))
		got = append(got, chunked.Process(x[start:end])...)
	}
	assert.InDeltaSlice(t, want, got, 1e-12)

	chunked.Reset()
	assert.InDeltaSlice(t, want, chunked.Process(x), 1e-12)
}

func TestModel_Float32(t *testing.T) {
	m, err := New[float32]([]float64{0.5, 0.5}, params(1, 1))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.5, 1, 1}, m.Process([]float32{1, 1, 1}), 1e-6)
}

func TestModel_PhaseGains(t *testing.T) {
	m, err := New[float64]([]float64{1, 2, 3, 4, 5}, params(2, 1))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{9, 6}, m.PhaseGains(), 1e-12)
}

func TestNew_Errors(t *testing.T) {
	_, err := New[float64](nil, params(1, 1))
	assert.Error(t, err)
	_, err = New[float64]([]float64{1}, params(0, 1))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	stats, err := Compare([]float64{1, -1, 1, -1}, []float64{1.5, -1, 1, -0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, stats.MaxAbs, 1e-12)
	assert.InDelta(t, math.Sqrt(0.125), stats.RMS, 1e-12)
	assert.InDelta(t, 0.25, stats.Mean, 1e-12)
	assert.InDelta(t, 10*math.Log10(4/0.5), stats.SNRdB, 1e-9)

	exact, err := Compare([]float64{1, 2}, []float64{1, 2})
	require.NoError(t, err)
	assert.True(t, math.IsInf(exact.SNRdB, 1))

	_, err = Compare([]float64{1}, []float64{})
	assert.Error(t, err)
}
