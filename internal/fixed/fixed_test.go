package fixed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_Range(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		min    Sample
		max    Sample
	}{
		{"s8.0", Format{Width: 8}, -128, 127},
		{"s16.15", Format{Width: 16, Fract: 15}, -32768, 32767},
		{"u16.16", Format{Width: 16, Fract: 16, Unsigned: true}, 0, 65535},
		{"s1.0", Format{Width: 1}, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.min, tt.format.Min())
			assert.Equal(t, tt.max, tt.format.Max())
			assert.Equal(t, tt.name, tt.format.String())
		})
	}
}

func TestFormat_Validate(t *testing.T) {
	assert.NoError(t, Format{Width: 16, Fract: 16}.Validate())
	assert.NoError(t, Format{Width: MaxAccumulatorWidth, Fract: 0}.Validate())
	assert.NoError(t, Format{Width: MaxWidth, Unsigned: true}.Validate())
	assert.Error(t, Format{Width: 0}.Validate())
	assert.Error(t, Format{Width: MaxAccumulatorWidth + 1}.Validate())
	assert.Error(t, Format{Width: MaxWidth + 1, Unsigned: true}.Validate())
	assert.Error(t, Format{Width: 8, Fract: 9}.Validate())
	assert.Error(t, Format{Width: 8, Fract: -1}.Validate())
}

// TestQuantize_RoundTrip checks that quantize-then-Float stays within one LSB.
func TestQuantize_RoundTrip(t *testing.T) {
	formats := []Format{
		{Width: 16, Fract: 15},
		{Width: 16, Fract: 16, Unsigned: true},
		{Width: 24, Fract: 20},
		{Width: 18, Fract: 17},
	}
	values := []float64{0, 0.25, -0.25, 0.1879970473607177, -0.0002080117075788305, 0.49999, -0.49}

	for _, f := range formats {
		for _, v := range values {
			if v < f.Float(f.Min()) || v > f.Float(f.Max()) {
				continue
			}
			for _, mode := range []RoundingMode{TruncateLSBs, ConvergentEven, SymmetricInf} {
				s, sat := Quantize(v, f, mode)
				require.False(t, sat, "%v saturated for %v", v, f)
				assert.InDelta(t, v, f.Float(s), f.LSB(),
					"format %v mode %v value %v", f, mode, v)
			}
		}
	}
}

func TestQuantize_Saturates(t *testing.T) {
	f := Format{Width: 16, Fract: 16}

	s, sat := Quantize(0.5, f, ConvergentEven)
	assert.True(t, sat)
	assert.Equal(t, f.Max(), s)

	s, sat = Quantize(-0.75, f, ConvergentEven)
	assert.True(t, sat)
	assert.Equal(t, f.Min(), s)

	u := Format{Width: 16, Fract: 16, Unsigned: true}
	s, sat = Quantize(0.5, u, ConvergentEven)
	assert.False(t, sat)
	assert.Equal(t, Sample(32768), s)

	s, sat = Quantize(math.NaN(), f, ConvergentEven)
	assert.True(t, sat)
	assert.Equal(t, Sample(0), s)
}

func TestMAC(t *testing.T) {
	var acc Accumulator
	acc = MAC(acc, 3, 4)
	acc = MAC(acc, -2, 5)
	assert.Equal(t, Accumulator(2), acc)
}

func TestAccumulatorFormat(t *testing.T) {
	data := Format{Width: 16}
	coeff := Format{Width: 16, Fract: 16}

	acc := AccumulatorFormat(data, coeff, 69)
	assert.Equal(t, 16+16+7, acc.Width)
	assert.Equal(t, 16, acc.Fract)
	assert.False(t, acc.Unsigned)

	acc = AccumulatorFormat(data, coeff, 1)
	assert.Equal(t, 32, acc.Width)

	mixed := AccumulatorFormat(Format{Width: 8}, Format{Width: 16, Fract: 16, Unsigned: true}, 3)
	assert.Equal(t, 8+16+2+1, mixed.Width)
}

func TestRound_TieRules(t *testing.T) {
	out := Format{Width: 16}

	// accumulator values with one fractional bit: x.5 ties
	tests := []struct {
		mode RoundingMode
		acc  Accumulator
		want Sample
	}{
		{TruncateLSBs, 5, 2},   // 2.5
		{TruncateLSBs, -5, -3}, // -2.5
		{TruncateLSBs, 7, 3},   // 3.5
		{SymmetricZero, 5, 2},
		{SymmetricZero, -5, -2},
		{SymmetricInf, 5, 3},
		{SymmetricInf, -5, -3},
		{ConvergentEven, 5, 2},
		{ConvergentEven, 7, 4},
		{ConvergentEven, -5, -2},
		{ConvergentEven, -7, -4},
		{ConvergentOdd, 5, 3},
		{ConvergentOdd, 7, 3},
		{ConvergentOdd, -5, -3},
		{NonSymmetricDown, 5, 2},
		{NonSymmetricDown, -5, -3},
		{NonSymmetricUp, 5, 3},
		{NonSymmetricUp, -5, -2},
		{ConvergentEven, 11, 6}, // 5.5
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got, sat := Round(tt.acc, 1, out, tt.mode)
			assert.False(t, sat)
			assert.Equal(t, tt.want, got, "acc=%d", tt.acc)
		})
	}
}

func TestRound_NonTies(t *testing.T) {
	out := Format{Width: 16}
	// 2.75 and -2.25 with two fractional bits
	for _, mode := range []RoundingMode{SymmetricZero, SymmetricInf, ConvergentEven, ConvergentOdd, NonSymmetricDown, NonSymmetricUp} {
		got, _ := Round(11, 2, out, mode)
		assert.Equal(t, Sample(3), got, mode.String())
		got, _ = Round(-9, 2, out, mode)
		assert.Equal(t, Sample(-2), got, mode.String())
	}
}

func TestRound_Saturates(t *testing.T) {
	out := Format{Width: 8}

	got, sat := Round(1000<<4, 4, out, TruncateLSBs)
	assert.True(t, sat)
	assert.Equal(t, Sample(127), got)

	got, sat = Round(-1000<<4, 4, out, ConvergentEven)
	assert.True(t, sat)
	assert.Equal(t, Sample(-128), got)
}

func TestRound_WidensFraction(t *testing.T) {
	out := Format{Width: 16, Fract: 4}

	got, sat := Round(3, 1, out, TruncateLSBs) // 1.5
	assert.False(t, sat)
	assert.Equal(t, Sample(24), got)
	assert.InDelta(t, 1.5, out.Float(got), 0)

	_, sat = Round(1<<20, 0, out, TruncateLSBs)
	assert.True(t, sat)
}

func TestRoundingMode_Parse(t *testing.T) {
	for m := FullPrecision; m <= NonSymmetricUp; m++ {
		parsed, err := ParseRoundingMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseRoundingMode("banker")
	assert.Error(t, err)
	assert.False(t, RoundingMode(42).Valid())
}

func BenchmarkRound(b *testing.B) {
	out := Format{Width: 16}
	var sink Sample
	for b.Loop() {
		sink, _ = Round(123456789, 16, out, ConvergentEven)
	}
	_ = sink
}
