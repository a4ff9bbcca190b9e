package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-fir/internal/coeff"
	"github.com/tphakala/go-fir/internal/fixed"
	"github.com/tphakala/go-fir/internal/polyphase"
	"github.com/tphakala/go-fir/internal/rate"
	"github.com/tphakala/go-fir/internal/testutil"
)

var intFormat = fixed.Format{Width: 16}

func decompose(t *testing.T, taps []fixed.Sample, knownZero func(int) bool, interp int) *polyphase.FilterBank {
	t.Helper()
	fb, err := polyphase.Decompose(taps, knownZero, polyphase.Params{InterpRate: interp, DecimRate: 1, ZeroPackFactor: 1})
	require.NoError(t, err)
	return fb
}

func run(t *testing.T, p *Pipeline, fb *polyphase.FilterBank, sched *rate.Schedule, x []fixed.Sample) ([]fixed.Sample, []Result) {
	t.Helper()
	arena := NewArena(1, 1, fb.TapsPerPhase)
	st := arena.State(0, 0)

	var out []fixed.Sample
	var results []Result
	for _, v := range x {
		res := p.Push(st, v, fb, st.Cursor.Next(sched), out)
		out = res.Values
		results = append(results, res)
	}
	return out, results
}

func TestNew_RejectsBadFormats(t *testing.T) {
	_, err := New(Params{Data: fixed.Format{Width: 0}, Coeff: intFormat, Output: intFormat})
	assert.Error(t, err)

	_, err = New(Params{Data: intFormat, Coeff: intFormat, Output: intFormat, Rounding: fixed.RoundingMode(99)})
	assert.Error(t, err)
}

// TestPush_ThreeTapSmoother runs [0.25, 0.5, 0.25] with unsigned 16/16
// coefficients over 8-bit data and truncation.
func TestPush_ThreeTapSmoother(t *testing.T) {
	coeffFormat := fixed.Format{Width: 16, Fract: 16, Unsigned: true}
	store, err := coeff.Load([][]float64{{0.25, 0.5, 0.25}}, coeff.LoadParams{
		Format:       coeffFormat,
		Quantization: coeff.QuantizedOnly,
	})
	require.NoError(t, err)
	bank, err := store.Select(0)
	require.NoError(t, err)

	p, err := New(Params{
		Data:     fixed.Format{Width: 8},
		Coeff:    coeffFormat,
		Output:   fixed.Format{Width: 8},
		Rounding: fixed.TruncateLSBs,
	})
	require.NoError(t, err)

	sched, err := rate.NewSchedule(1, 1)
	require.NoError(t, err)

	out, results := run(t, p, decompose(t, bank.Taps, nil, 1), sched, testutil.Samples(1, 2, 3, 4, 0, 0))
	assert.Equal(t, testutil.Samples(0, 1, 2, 3, 2, 1), out)

	assert.True(t, results[0].Underrun)
	assert.True(t, results[1].Underrun)
	assert.False(t, results[2].Underrun)
	for _, r := range results {
		assert.Zero(t, r.Saturated)
	}
}

// TestPush_InterpolationMatchesZeroStuffed checks the polyphase output
// against direct convolution of the zero-stuffed input.
func TestPush_InterpolationMatchesZeroStuffed(t *testing.T) {
	taps := testutil.Samples(1, -2, 3, 4, -5, 6, 7)
	x := testutil.Samples(3, -1, 4, 1, -5, 9, 2, -6)

	for _, l := range []int{1, 2, 3, 4} {
		p, err := New(Params{
			Data:     intFormat,
			Coeff:    intFormat,
			Output:   fixed.Format{Width: 40},
			Rounding: fixed.FullPrecision,
		})
		require.NoError(t, err)
		sched, err := rate.NewSchedule(l, 1)
		require.NoError(t, err)

		out, _ := run(t, p, decompose(t, taps, nil, l), sched, x)

		want := testutil.DirectForm(taps, testutil.ZeroStuff(x, l))
		require.Len(t, out, len(want), "L=%d", l)
		for i := range want {
			assert.Equal(t, fixed.Sample(want[i]), out[i], "L=%d output %d", l, i)
		}
	}
}

func TestPush_ImpulseResponseIsTaps(t *testing.T) {
	taps := testutil.Samples(4, -3, 2, 7, 1)
	p, err := New(Params{Data: intFormat, Coeff: intFormat, Output: fixed.Format{Width: 40}, Rounding: fixed.FullPrecision})
	require.NoError(t, err)
	sched, err := rate.NewSchedule(1, 1)
	require.NoError(t, err)

	out, _ := run(t, p, decompose(t, taps, nil, 1), sched, testutil.Impulse(len(taps)+2, 0, 1))
	assert.Equal(t, append(taps, 0, 0), out)
}

func TestPush_DecimationKeepsEveryMth(t *testing.T) {
	taps := testutil.Samples(2, 1, 1)
	x := testutil.Samples(1, 2, 3, 4, 5, 6, 7)

	p, err := New(Params{Data: intFormat, Coeff: intFormat, Output: fixed.Format{Width: 40}, Rounding: fixed.FullPrecision})
	require.NoError(t, err)
	sched, err := rate.NewSchedule(1, 3)
	require.NoError(t, err)

	out, _ := run(t, p, decompose(t, taps, nil, 1), sched, x)

	full := testutil.DirectForm(taps, x)
	assert.Equal(t, testutil.Samples(int64(full[0]), int64(full[3]), int64(full[6])), out)
}

func TestPush_HalfbandMatchesDense(t *testing.T) {
	store, err := coeff.Load([][]float64{{-1.0 / 32, 0, 9.0 / 32, 0.5, 9.0 / 32, 0, -1.0 / 32}}, coeff.LoadParams{
		Format:       fixed.Format{Width: 16, Fract: 15},
		Quantization: coeff.QuantizedOnly,
		Halfband:     true,
	})
	require.NoError(t, err)
	bank, err := store.Select(0)
	require.NoError(t, err)

	p, err := New(Params{
		Data:     intFormat,
		Coeff:    store.Format(),
		Output:   intFormat,
		Rounding: fixed.ConvergentEven,
	})
	require.NoError(t, err)
	sched, err := rate.NewSchedule(1, 2)
	require.NoError(t, err)

	x := testutil.Samples(1000, -2000, 3000, 32767, -32768, 5, 17, -400, 12000, 0, 0, 0)
	sparse, _ := run(t, p, decompose(t, bank.Taps, bank.IsKnownZero, 1), sched, x)
	dense, _ := run(t, p, decompose(t, bank.Taps, nil, 1), sched, x)

	assert.Equal(t, dense, sparse)
	assert.Len(t, sparse, 6)
}

func TestPush_SaturationCounted(t *testing.T) {
	p, err := New(Params{Data: intFormat, Coeff: intFormat, Output: fixed.Format{Width: 8}, Rounding: fixed.TruncateLSBs})
	require.NoError(t, err)
	sched, err := rate.NewSchedule(1, 1)
	require.NoError(t, err)

	out, results := run(t, p, decompose(t, testutil.Samples(10), nil, 1), sched, testutil.Samples(5, 100, -100))
	assert.Equal(t, testutil.Samples(50, 127, -128), out)
	assert.Equal(t, 0, results[0].Saturated)
	assert.Equal(t, 1, results[1].Saturated)
	assert.Equal(t, 1, results[2].Saturated)
}

func TestPush_ChannelsIndependent(t *testing.T) {
	fb := decompose(t, testutil.Samples(1, 1), nil, 1)
	p, err := New(Params{Data: intFormat, Coeff: intFormat, Output: fixed.Format{Width: 40}, Rounding: fixed.FullPrecision})
	require.NoError(t, err)

	arena := NewArena(2, 1, fb.TapsPerPhase)
	a, b := arena.State(0, 0), arena.State(1, 0)

	p.Push(a, 10, fb, []int{0}, nil)
	p.Push(b, 1, fb, []int{0}, nil)
	ra := p.Push(a, 20, fb, []int{0}, nil)
	rb := p.Push(b, 2, fb, []int{0}, nil)

	assert.Equal(t, testutil.Samples(30), ra.Values)
	assert.Equal(t, testutil.Samples(3), rb.Values)
}

func BenchmarkPush(b *testing.B) {
	taps := make([]fixed.Sample, 63)
	for i := range taps {
		taps[i] = fixed.Sample(i*37%101 - 50)
	}
	fb, err := polyphase.Decompose(taps, nil, polyphase.Params{InterpRate: 1, DecimRate: 1, ZeroPackFactor: 1})
	require.NoError(b, err)
	p, err := New(Params{Data: intFormat, Coeff: intFormat, Output: intFormat, Rounding: fixed.ConvergentEven})
	require.NoError(b, err)

	arena := NewArena(1, 1, fb.TapsPerPhase)
	st := arena.State(0, 0)
	phases := []int{0}
	buf := make([]fixed.Sample, 0, 1)

	for b.Loop() {
		p.Push(st, 1234, fb, phases, buf[:0])
	}
}
