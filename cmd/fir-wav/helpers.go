package main

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	fir "github.com/tphakala/go-fir"
)

// wavAudioFormatPCM is the WAVE_FORMAT_PCM tag.
const wavAudioFormatPCM = 1

// wavInputInfo holds validated input file information.
type wavInputInfo struct {
	file         *os.File
	decoder      *wav.Decoder
	rate         int
	channels     int
	bitDepth     int
	totalSamples int64
	format       *audio.Format
}

// openWAVInput opens and validates a WAV file, returning format information.
func openWAVInput(path string, verbose bool) (*wavInputInfo, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	switch bitDepth {
	case bitsPerSample16, bitsPerSample24, bitsPerSample32:
	default:
		_ = inputFile.Close()
		return nil, fmt.Errorf("unsupported bit depth %d: %s", bitDepth, path)
	}

	if verbose {
		log.Printf("Input format: %d Hz, %d channels, %d-bit", format.SampleRate, format.NumChannels, bitDepth)
	}

	// Get total duration for progress reporting
	duration, err := decoder.Duration()
	if err != nil {
		duration = 0
	}
	totalSamples := int64(duration.Seconds() * float64(format.SampleRate))

	return &wavInputInfo{
		file:         inputFile,
		decoder:      decoder,
		rate:         format.SampleRate,
		channels:     format.NumChannels,
		bitDepth:     bitDepth,
		totalSamples: totalSamples,
		format:       format,
	}, nil
}

// Close closes the input file.
func (w *wavInputInfo) Close() error {
	return w.file.Close()
}

// newEngine builds an engine with one datapath per WAV channel and stages
// the requested coefficient set.
func newEngine(cfg fir.FilterConfig, channels int, job jobOptions) (*fir.Engine, error) {
	if job.verbose && cfg.NumPaths != channels {
		log.Printf("Using %d datapaths for %d WAV channels (config has %d)", channels, channels, cfg.NumPaths)
	}
	cfg.NumPaths = channels

	e, err := fir.New(cfg, &fir.Options{EnableParallel: job.parallel})
	if err != nil {
		return nil, fmt.Errorf("failed to create filter: %w", err)
	}
	if job.bank >= 0 {
		if err := e.Reload(job.bank); err != nil {
			return nil, fmt.Errorf("failed to select coefficient set %d: %w", job.bank, err)
		}
	}
	return e, nil
}

// outputRate returns inputRate*l/m, which must be a whole number of hertz.
func outputRate(inputRate, l, m int) (int, error) {
	if inputRate*l%m != 0 {
		return 0, fmt.Errorf("output rate %d*%d/%d Hz is not an integer", inputRate, l, m)
	}
	return inputRate * l / m, nil
}

// tailLength is the number of silent inputs per path that flush the last
// real input through every tap.
func tailLength(info fir.Info) int {
	perChannel := (info.ExpandedTaps - 1 + info.InterpRate - 1) / info.InterpRate
	return perChannel * info.Channels
}

// wavOutputWriter wraps the output file and its encoder.
type wavOutputWriter struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
}

// createWAVOutput creates output file and encoder.
func createWAVOutput(path string, sampleRate, bitDepth, channels int) (*wavOutputWriter, error) {
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &wavOutputWriter{
		file:    outputFile,
		encoder: wav.NewEncoder(outputFile, sampleRate, bitDepth, channels, wavAudioFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Write writes interleaved samples to the output file.
func (w *wavOutputWriter) Write(samples []int) error {
	w.buf.Data = samples
	return w.encoder.Write(w.buf)
}

// Close finalizes the WAV header and closes the file.
func (w *wavOutputWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// sampleScaler maps PCM integers to and from the engine's fixed-point
// formats. Inputs are MSB-aligned to the data width; outputs are scaled back
// by the same factor so a unity-gain filter reproduces its input.
type sampleScaler struct {
	shift  int     // data width minus PCM bit depth
	toPCM  float64 // PCM units per real output unit
	minPCM int
	maxPCM int
}

func newSampleScaler(bitDepth int, data fir.Format) sampleScaler {
	shift := data.Width - bitDepth
	return sampleScaler{
		shift:  shift,
		toPCM:  math.Ldexp(1, data.Fract-shift),
		minPCM: -1 << (bitDepth - 1),
		maxPCM: 1<<(bitDepth-1) - 1,
	}
}

// in converts one PCM sample to a raw data-format sample.
func (s sampleScaler) in(pcm int) fir.Sample {
	if s.shift >= 0 {
		return fir.Sample(pcm) << s.shift
	}
	return fir.Sample(pcm) >> -s.shift
}

// out converts one real output value to a clamped PCM sample.
func (s sampleScaler) out(v float64) int {
	x := math.RoundToEven(v * s.toPCM)
	if x < float64(s.minPCM) {
		return s.minPCM
	}
	if x > float64(s.maxPCM) {
		return s.maxPCM
	}
	return int(x)
}

// frameBuffers holds the reusable buffers of the processing loop.
type frameBuffers struct {
	intBuffer *audio.IntBuffer
	paths     [][]fir.Sample
	out       []int
}

// newFrameBuffers preallocates buffers for bufferSize frames.
func newFrameBuffers(channels int, format *audio.Format) *frameBuffers {
	paths := make([][]fir.Sample, channels)
	for p := range paths {
		paths[p] = make([]fir.Sample, bufferSize)
	}
	return &frameBuffers{
		intBuffer: &audio.IntBuffer{
			Data:   make([]int, bufferSize*channels),
			Format: format,
		},
		paths: paths,
	}
}

// grow makes every path buffer hold at least frames samples.
func (b *frameBuffers) grow(frames int) {
	for p := range b.paths {
		if len(b.paths[p]) < frames {
			b.paths[p] = make([]fir.Sample, frames)
		}
	}
}

// deinterleaveInto splits interleaved PCM into per-path raw samples.
func deinterleaveInto(data []int, paths [][]fir.Sample, frames int, scale sampleScaler) {
	channels := len(paths)
	for i := range frames {
		for ch := range channels {
			paths[ch][i] = scale.in(data[i*channels+ch])
		}
	}
}

// interleave converts per-path outputs into b.out and returns the frame
// count. All paths of an engine produce the same number of outputs.
func (b *frameBuffers) interleave(outs [][]fir.Output, e *fir.Engine, scale sampleScaler) int {
	if len(outs) == 0 {
		b.out = b.out[:0]
		return 0
	}
	channels := len(outs)
	frames := len(outs[0])

	if cap(b.out) < frames*channels {
		b.out = make([]int, frames*channels)
	}
	b.out = b.out[:frames*channels]

	for i := range frames {
		for ch := range channels {
			b.out[i*channels+ch] = scale.out(e.Float(outs[ch][i].Value))
		}
	}
	return frames
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalSamples int64
	lastProgress int
	verbose      bool
}

// newProgressTracker creates a new progress tracker.
func newProgressTracker(totalSamples int64, verbose bool) *progressTracker {
	return &progressTracker{
		totalSamples: totalSamples,
		verbose:      verbose,
	}
}

// reportIfNeeded reports progress if threshold crossed.
func (p *progressTracker) reportIfNeeded(currentSamples int64) {
	if !p.verbose || p.totalSamples == 0 {
		return
	}

	progress := int(float64(currentSamples) / float64(p.totalSamples) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		log.Printf("Progress: %d%%", progress)
		p.lastProgress = progress
	}
}
