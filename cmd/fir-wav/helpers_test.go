package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	fir "github.com/tphakala/go-fir"
)

// identityConfig passes s16.15 samples through a single unity tap.
func identityConfig() fir.FilterConfig {
	return fir.FilterConfig{
		Name:               "identity",
		InterpRate:         1,
		DecimRate:          1,
		Coefficients:       [][]float64{{1}},
		Quantization:       fir.QuantizedOnly,
		CoeffWidth:         18,
		CoeffFractWidth:    16,
		NumChannels:        1,
		NumPaths:           1,
		DataWidth:          16,
		DataFractWidth:     15,
		OutputRoundingMode: fir.RoundConvergentEven,
		OutputWidth:        16,
		OutputFractWidth:   15,
	}
}

func writeTestWAV(t *testing.T, path string, rate, bitDepth, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, bitDepth, channels, wavAudioFormatPCM)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func readTestWAV(t *testing.T, path string) *audio.IntBuffer {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	require.NoError(t, err)
	return buf
}

func stereoRamp(frames int) []int {
	data := make([]int, frames*2)
	for i := range frames {
		data[2*i] = i * 100
		data[2*i+1] = -i * 50
	}
	return data
}

func TestOpenWAVInput_FileNotFound(t *testing.T) {
	_, err := openWAVInput("/nonexistent/path/file.wav", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open input file")
}

func TestOpenWAVInput_InvalidWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0o600))

	_, err := openWAVInput(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid WAV file")
}

func TestOpenWAVInput_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	writeTestWAV(t, path, 8000, 16, 2, stereoRamp(16))

	input, err := openWAVInput(path, true)
	require.NoError(t, err)
	defer func() { _ = input.Close() }()

	assert.Equal(t, 8000, input.rate)
	assert.Equal(t, 2, input.channels)
	assert.Equal(t, 16, input.bitDepth)
}

func TestOutputRate(t *testing.T) {
	tests := []struct {
		name    string
		in      int
		l, m    int
		want    int
		wantErr bool
	}{
		{"same rate", 48000, 1, 1, 48000, false},
		{"interpolate", 24000, 2, 1, 48000, false},
		{"decimate", 48000, 1, 3, 16000, false},
		{"fractional", 44100, 160, 147, 48000, false},
		{"not integral", 44100, 1, 8, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := outputRate(tt.in, tt.l, tt.m)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTailLength(t *testing.T) {
	assert.Equal(t, 68, tailLength(fir.Info{ExpandedTaps: 69, InterpRate: 1, Channels: 1}))
	assert.Equal(t, 6, tailLength(fir.Info{ExpandedTaps: 7, InterpRate: 2, Channels: 2}))
	assert.Zero(t, tailLength(fir.Info{ExpandedTaps: 1, InterpRate: 1, Channels: 1}))
}

func TestSampleScaler(t *testing.T) {
	t.Run("matching width", func(t *testing.T) {
		s := newSampleScaler(16, fir.Format{Width: 16, Fract: 15})
		assert.Equal(t, fir.Sample(1000), s.in(1000))
		assert.Equal(t, 1000, s.out(1000.0/32768))
	})

	t.Run("wider input", func(t *testing.T) {
		s := newSampleScaler(24, fir.Format{Width: 16, Fract: 15})
		assert.Equal(t, fir.Sample(5), s.in(5*256))
		assert.Equal(t, 5*256, s.out(5.0/32768))
	})

	t.Run("narrower input", func(t *testing.T) {
		s := newSampleScaler(16, fir.Format{Width: 24, Fract: 23})
		assert.Equal(t, fir.Sample(768), s.in(3))
		assert.Equal(t, 3, s.out(768.0/(1<<23)))
	})

	t.Run("integer data", func(t *testing.T) {
		s := newSampleScaler(16, fir.Format{Width: 16, Fract: 0})
		assert.Equal(t, fir.Sample(-1234), s.in(-1234))
		assert.Equal(t, -1234, s.out(-1234))
	})

	t.Run("clamps", func(t *testing.T) {
		s := newSampleScaler(16, fir.Format{Width: 16, Fract: 15})
		assert.Equal(t, 32767, s.out(2))
		assert.Equal(t, -32768, s.out(-2))
	})
}

func TestDeinterleaveInterleave(t *testing.T) {
	cfg := identityConfig()
	cfg.NumPaths = 2
	e, err := fir.New(cfg, nil)
	require.NoError(t, err)

	scale := newSampleScaler(16, e.Info().DataFormat)
	buffers := newFrameBuffers(2, &audio.Format{NumChannels: 2, SampleRate: 8000})
	data := stereoRamp(8)

	deinterleaveInto(data, buffers.paths, 8, scale)
	assert.Equal(t, fir.Sample(700), buffers.paths[0][7])
	assert.Equal(t, fir.Sample(-350), buffers.paths[1][7])

	out, err := e.ProcessRaw([][]fir.Sample{buffers.paths[0][:8], buffers.paths[1][:8]})
	require.NoError(t, err)
	assert.Equal(t, 8, buffers.interleave(out, e, scale))
	assert.Equal(t, data, buffers.out)

	assert.Zero(t, buffers.interleave(nil, e, scale))
	assert.Empty(t, buffers.out)
}

func TestFrameBuffersGrow(t *testing.T) {
	buffers := newFrameBuffers(2, &audio.Format{NumChannels: 2})
	buffers.grow(bufferSize + 10)
	for _, p := range buffers.paths {
		assert.Len(t, p, bufferSize+10)
	}
}

func TestNewEngine_PathsFollowChannels(t *testing.T) {
	e, err := newEngine(identityConfig(), 6, jobOptions{parallel: true, bank: -1})
	require.NoError(t, err)
	assert.Equal(t, 6, e.Info().Paths)

	// a single-set filter has nothing to reload
	_, err = newEngine(identityConfig(), 2, jobOptions{bank: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, fir.ErrReloadNotSupported)
}

func TestFilterWAV_Identity(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	data := stereoRamp(100)
	writeTestWAV(t, in, 8000, 16, 2, data)

	stats, err := filterWAV(in, out, identityConfig(), jobOptions{bank: -1, parallel: true, tail: true})
	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.inputSamples)
	assert.Equal(t, int64(100), stats.outputSamples)
	assert.Equal(t, 8000, stats.outputRate)
	assert.Zero(t, stats.engine.Overflows)

	got := readTestWAV(t, out)
	assert.Equal(t, 2, got.Format.NumChannels)
	assert.Equal(t, 8000, got.Format.SampleRate)
	assert.Equal(t, data, got.Data)
}

func TestFilterWAV_Interpolate(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	out := filepath.Join(dir, "out.wav")
	writeTestWAV(t, in, 8000, 16, 2, stereoRamp(64))

	cfg := identityConfig()
	cfg.FilterType = fir.Interpolation
	cfg.InterpRate = 2
	cfg.Coefficients = [][]float64{{0.5, 1, 0.5}}

	e, err := fir.New(cfg, nil)
	require.NoError(t, err)
	wantFrames := 2 * (64 + tailLength(e.Info()))

	stats, err := filterWAV(in, out, cfg, jobOptions{bank: -1, tail: true})
	require.NoError(t, err)
	assert.Equal(t, 16000, stats.outputRate)
	assert.Equal(t, int64(wantFrames), stats.outputSamples)

	got := readTestWAV(t, out)
	assert.Equal(t, 16000, got.Format.SampleRate)
	assert.Len(t, got.Data, wantFrames*2)
}

func TestFilterWAV_RejectsFractionalOutputRate(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	writeTestWAV(t, in, 8001, 16, 1, make([]int, 32))

	cfg := identityConfig()
	cfg.FilterType = fir.Decimation
	cfg.DecimRate = 2
	cfg.Coefficients = [][]float64{{0.5, 0.5}}

	_, err := filterWAV(in, filepath.Join(dir, "out.wav"), cfg, jobOptions{bank: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an integer")
}
