// Command fir-wav runs WAV audio through a fixed-point FIR filter.
//
// Usage:
//
//	fir-wav -config lowpass.yaml input.wav output.wav
//	fir-wav -config fir_compiler_0.h -v input.wav output.wav
//	fir-wav -config bands.yaml -bank 1 input.wav output.wav    # filter with coefficient set 1
//	fir-wav -config decim.yaml -parallel=false input.wav out.wav
//
// Every WAV channel is fed to its own datapath, so a stereo file runs on a
// two-path engine regardless of num_paths in the configuration. The output
// sample rate is the input rate times interp_rate/decim_rate.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	fir "github.com/tphakala/go-fir"
)

const (
	// Buffer size for processing (number of frames per chunk)
	bufferSize = 65536

	// Sample format constants
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	progressInterval = 10 // Print progress every N%
	minRequiredArgs  = 2
	percentScale     = 100
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Filter configuration (.yaml or generated .h header)")
	bank := flag.Int("bank", -1, "Coefficient set to filter with (default: set 0)")
	parallel := flag.Bool("parallel", true, "Process datapaths concurrently (faster for stereo/multichannel)")
	tail := flag.Bool("tail", true, "Feed silence at the end so the filter tail is written")
	verbose := flag.Bool("v", false, "Verbose output")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file (for PGO)")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs || *configPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -config filter.yaml [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -config lowpass.yaml in.wav out.wav       # Filter at the same rate\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config fir_compiler_0.h in.wav out.wav   # Use a generated header\n", os.Args[0])
		return errors.New("insufficient arguments")
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	cfg, err := fir.ReadConfigFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to read filter configuration: %w", err)
	}

	inputPath := args[0]
	outputPath := args[1]

	if *verbose {
		log.Printf("Input: %s", inputPath)
		log.Printf("Output: %s", outputPath)
		log.Printf("Config: %s", *configPath)
		if *parallel {
			log.Printf("Parallel: enabled (concurrent datapath processing)")
		} else {
			log.Printf("Parallel: disabled (sequential processing)")
		}
	}

	start := time.Now()
	stats, err := filterWAV(inputPath, outputPath, cfg, jobOptions{
		bank:     *bank,
		parallel: *parallel,
		tail:     *tail,
		verbose:  *verbose,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("Filtered %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  %d Hz -> %d Hz (%d channels, %d-bit)\n",
		stats.inputRate, stats.outputRate, stats.channels, stats.bitDepth)
	fmt.Printf("  %d samples -> %d samples\n", stats.inputSamples, stats.outputSamples)
	fmt.Printf("  Input saturations: %d, overflows: %d, underruns: %d\n",
		stats.engine.InputSaturations, stats.engine.Overflows, stats.engine.Underruns)
	if elapsed > 0 && stats.inputRate > 0 {
		fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime\n",
			elapsed.Seconds(),
			float64(stats.inputSamples)/float64(stats.inputRate)/elapsed.Seconds())
	}

	return nil
}

// jobOptions carries the command line switches into filterWAV.
type jobOptions struct {
	bank     int
	parallel bool
	tail     bool
	verbose  bool
}

type filterStats struct {
	inputRate     int
	outputRate    int
	channels      int
	bitDepth      int
	inputSamples  int64
	outputSamples int64
	engine        fir.Stats
}

func filterWAV(inputPath, outputPath string, cfg fir.FilterConfig, job jobOptions) (stats *filterStats, err error) {
	// 1. Open and validate input
	input, err := openWAVInput(inputPath, job.verbose)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	// 2. Build the engine, one datapath per WAV channel
	e, err := newEngine(cfg, input.channels, job)
	if err != nil {
		return nil, err
	}
	info := e.Info()
	if job.verbose {
		logEngineInfo(info)
	}

	outRate, err := outputRate(input.rate, info.InterpRate, info.DecimRate)
	if err != nil {
		return nil, err
	}

	// 3. Create output writer
	output, err := createWAVOutput(outputPath, outRate, input.bitDepth, input.channels)
	if err != nil {
		return nil, err
	}
	// Close output, capturing close errors on success path (the encoder writes the header sizes)
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
		}
	}()

	// 4. Initialize processing buffers
	scale := newSampleScaler(input.bitDepth, info.DataFormat)
	buffers := newFrameBuffers(input.channels, input.format)

	stats = &filterStats{
		inputRate:  input.rate,
		outputRate: outRate,
		channels:   input.channels,
		bitDepth:   input.bitDepth,
	}
	progress := newProgressTracker(input.totalSamples, job.verbose)

	// 5. Main processing loop
	for {
		n, err := input.decoder.PCMBuffer(buffers.intBuffer)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		frames := n / input.channels
		if frames == 0 {
			break
		}
		stats.inputSamples += int64(frames)

		deinterleaveInto(buffers.intBuffer.Data[:frames*input.channels], buffers.paths, frames, scale)
		written, err := filterChunk(e, output, buffers, frames, scale)
		if err != nil {
			return nil, err
		}
		stats.outputSamples += int64(written)

		progress.reportIfNeeded(stats.inputSamples)
		buffers.intBuffer.Data = buffers.intBuffer.Data[:cap(buffers.intBuffer.Data)]
	}

	// 6. Drain the filter tail with silence
	if job.tail {
		frames := tailLength(info)
		buffers.grow(frames)
		for p := range buffers.paths {
			clear(buffers.paths[p][:frames])
		}
		written, err := filterChunk(e, output, buffers, frames, scale)
		if err != nil {
			return nil, err
		}
		stats.outputSamples += int64(written)
	}

	stats.engine = e.Stats()
	if job.verbose {
		for _, ev := range e.Events() {
			log.Printf("Event: %s", ev)
		}
	}
	return stats, nil
}

// filterChunk runs the first frames samples of every path buffer through e
// and writes the interleaved result. It returns the number of frames written.
func filterChunk(e *fir.Engine, output *wavOutputWriter, buffers *frameBuffers, frames int, scale sampleScaler) (int, error) {
	if frames == 0 {
		return 0, nil
	}
	in := make([][]fir.Sample, len(buffers.paths))
	for p := range in {
		in[p] = buffers.paths[p][:frames]
	}
	out, err := e.ProcessRaw(in)
	if err != nil {
		return 0, fmt.Errorf("filtering failed: %w", err)
	}

	written := buffers.interleave(out, e, scale)
	if written == 0 {
		return 0, nil
	}
	if err := output.Write(buffers.out); err != nil {
		return 0, fmt.Errorf("failed to write audio data: %w", err)
	}
	return written, nil
}

func logEngineInfo(info fir.Info) {
	log.Printf("Filter: %s (%s, L=%d M=%d)", info.Name, info.FilterType, info.InterpRate, info.DecimRate)
	log.Printf("Taps: %d (%d expanded, %d phases, register %d)",
		info.NumTaps, info.ExpandedTaps, info.Phases, info.RegisterLength)
	log.Printf("Formats: data %s, coeff %s, acc %s, out %s",
		info.DataFormat, info.CoeffFormat, info.AccumulatorFormat, info.OutputFormat)
	log.Printf("Cost: %.1f MACs/input, %d banks, %d channels x %d paths",
		info.MACsPerInput, info.Banks, info.Channels, info.Paths)
	log.Printf("SIMD: %s", info.SIMDType)
}
