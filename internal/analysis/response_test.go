package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-fir/internal/testutil"
)

func TestFrequencyResponse_Smoother(t *testing.T) {
	// H(f) = 0.5 + 0.5 cos(2 pi f)
	r, err := FrequencyResponse([]float64{0.25, 0.5, 0.25}, 0)
	require.NoError(t, err)

	require.Len(t, r.Freqs, minPoints/2+1)
	testutil.AssertNoNaNOrInf(t, r.Magnitude)
	assert.InDelta(t, 1.0, r.DCGain(), testutil.DefaultTolerance)
	assert.InDelta(t, 0.5, r.Freqs[len(r.Freqs)-1], testutil.DefaultTolerance)
	assert.InDelta(t, 0.0, r.Magnitude[len(r.Magnitude)-1], 1e-9)

	for i, f := range r.Freqs {
		want := 0.5 + 0.5*math.Cos(2*math.Pi*f)
		assert.InDelta(t, want, r.Magnitude[i], 1e-9, "bin %d", i)
	}

	quarter := minPoints / 4
	assert.InDelta(t, -6.0206, r.MagnitudeDB()[quarter], testutil.DBTolerance)
}

func TestResponse_Cutoff(t *testing.T) {
	r, err := FrequencyResponse([]float64{0.25, 0.5, 0.25}, 0)
	require.NoError(t, err)

	// -3 dB where cos(2 pi f) = 2*10^(-3/20) - 1
	want := math.Acos(2*math.Pow(10, -3.0/20)-1) / (2 * math.Pi)
	assert.InDelta(t, want, r.Cutoff(3), 1.0/minPoints)

	flat, err := FrequencyResponse([]float64{1}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, flat.Cutoff(3), testutil.DefaultTolerance)
	assert.InDelta(t, 0.0, flat.PassbandRipple(0.5), testutil.DefaultTolerance)
}

func TestResponse_StopbandAttenuation(t *testing.T) {
	r, err := FrequencyResponse([]float64{0.25, 0.5, 0.25}, 0)
	require.NoError(t, err)

	// strongest bin at or above 0.25 is the 0.25 bin itself, 0.5 linear
	assert.InDelta(t, 6.0206, r.StopbandAttenuation(0.25), testutil.DBTolerance)
	assert.InDelta(t, 6.0206, r.PassbandRipple(0.25), testutil.DBTolerance)
}

func TestFrequencyResponse_SizeGrowsWithTaps(t *testing.T) {
	taps := make([]float64, 700)
	taps[0] = 1
	r, err := FrequencyResponse(taps, 0)
	require.NoError(t, err)
	assert.Len(t, r.Freqs, 2048/2+1)

	r, err = FrequencyResponse([]float64{1}, 4000)
	require.NoError(t, err)
	assert.Len(t, r.Freqs, 4096/2+1)
}

func TestFrequencyResponse_Empty(t *testing.T) {
	_, err := FrequencyResponse(nil, 0)
	assert.Error(t, err)
}

func TestDB(t *testing.T) {
	assert.InDelta(t, 0.0, DB(1), testutil.DefaultTolerance)
	assert.InDelta(t, -20.0, DB(0.1), testutil.DefaultTolerance)
	assert.Equal(t, silenceDB, DB(0))
}
