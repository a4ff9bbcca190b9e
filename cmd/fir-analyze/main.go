// Command fir-analyze reports the frequency response of a filter
// configuration and the error its fixed-point datapath adds to a test tone.
//
// Usage:
//
//	fir-analyze -config lowpass.yaml
//	fir-analyze -config fir_compiler_0.h -stopband 0.2
//	fir-analyze -config bands.yaml -set 1 -n 8192
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	fir "github.com/tphakala/go-fir"
	"github.com/tphakala/go-fir/internal/analysis"
	"github.com/tphakala/go-fir/internal/polyphase"
	"github.com/tphakala/go-fir/internal/reference"
)

const (
	// Response evaluation
	responsePoints = 4096
	cutoffDropDB   = 3.0

	// Test tone defaults, relative to the data format's full scale
	defaultToneLength = 4096
	defaultToneFreq   = 0.01
	toneAmplitude     = 0.5

	// Display limits
	maxPhasesToShow = 8
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Filter configuration (.yaml or generated .h header)")
	set := flag.Int("set", -1, "Coefficient set to analyze (default: all)")
	stopband := flag.Float64("stopband", 0, "Stopband edge in cycles/sample of the filter rate (default: from the rates)")
	toneLen := flag.Int("n", defaultToneLength, "Test tone length in input samples")
	toneFreq := flag.Float64("freq", defaultToneFreq, "Test tone frequency in cycles/input sample")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -config filter.yaml [options]\n\n", os.Args[0])
		flag.PrintDefaults()
		return errors.New("missing -config")
	}

	cfg, err := fir.ReadConfigFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to read filter configuration: %w", err)
	}
	v, err := fir.Validate(cfg)
	if err != nil {
		return err
	}

	a := &analyzer{
		out:      os.Stdout,
		cfg:      v,
		stopband: *stopband,
		toneLen:  *toneLen,
		toneFreq: *toneFreq,
	}
	return a.run(*set)
}

// analyzer writes the report for one validated configuration.
type analyzer struct {
	out      io.Writer
	cfg      *fir.ValidatedConfig
	stopband float64
	toneLen  int
	toneFreq float64
}

func (a *analyzer) run(only int) error {
	c := a.cfg.Config()
	a.printf("=== %s ===\n", c.Name)
	a.printf("  Type: %s, L=%d M=%d, %d taps x %d sets\n",
		c.FilterType, c.InterpRate, c.DecimRate, c.NumCoeffs, c.CoeffSets)
	a.printf("  Formats: data %s, coeff %s, acc %s, out %s\n",
		a.cfg.DataFormat(), a.cfg.CoeffFormat(), a.cfg.AccumulatorFormat(), a.cfg.OutputFormat())
	a.printf("  Register length: %d\n", a.cfg.RegisterLength())

	if only >= c.CoeffSets {
		return fmt.Errorf("%w: set %d of %d", fir.ErrBankOutOfRange, only, c.CoeffSets)
	}
	for set := range c.CoeffSets {
		if only >= 0 && set != only {
			continue
		}
		if err := a.analyzeSet(set); err != nil {
			return err
		}
	}
	return nil
}

func (a *analyzer) analyzeSet(set int) error {
	c := a.cfg.Config()
	p := params(c)
	taps := c.Coefficients[set]

	raw, err := a.cfg.QuantizedCoefficients(set)
	if err != nil {
		return err
	}
	quantized := make([]float64, len(raw))
	for i, s := range raw {
		quantized[i] = a.cfg.CoeffFormat().Float(s)
	}

	a.printf("\n--- Coefficient set %d ---\n", set)

	ideal, err := analysis.FrequencyResponse(expand(taps, p), responsePoints)
	if err != nil {
		return err
	}
	fixedResp, err := analysis.FrequencyResponse(expand(quantized, p), responsePoints)
	if err != nil {
		return err
	}

	edge := a.stopbandEdge(c, ideal)
	cutoff := ideal.Cutoff(cutoffDropDB)
	a.printf("  DC gain: %.10f (quantized %.10f)\n", ideal.DCGain(), fixedResp.DCGain())
	a.printf("  -3 dB cutoff: %.5f cycles/sample\n", cutoff)
	a.printf("  Passband ripple: %.4f dB\n", ideal.PassbandRipple(cutoff/2))
	a.printf("  Stopband from %.5f: %.2f dB (quantized %.2f dB)\n",
		edge, ideal.StopbandAttenuation(edge), fixedResp.StopbandAttenuation(edge))

	model, err := reference.New[float64](taps, p)
	if err != nil {
		return err
	}
	gains := model.PhaseGains()
	a.printf("  Phase DC gains:\n")
	for ph, g := range gains {
		if ph >= maxPhasesToShow {
			a.printf("    ... (%d more phases)\n", len(gains)-maxPhasesToShow)
			break
		}
		a.printf("    Phase %2d: %.10f\n", ph, g)
	}

	stats, err := a.toneError(set, model)
	if err != nil {
		return err
	}
	a.printf("  Tone error: max %.3g, rms %.3g, mean %.3g, SNR %.2f dB\n",
		stats.MaxAbs, stats.RMS, stats.Mean, stats.SNRdB)
	return nil
}

// toneError runs a sine through a single-channel engine on coefficient set
// set and through the float model, and compares the two.
func (a *analyzer) toneError(set int, model *reference.Model[float64]) (reference.ErrorStats, error) {
	c := a.cfg.Config()
	c.NumChannels = 1
	c.NumPaths = 1
	c.ChanSeq = fir.ChanSeqBasic
	c.ChannelPattern = nil

	e, err := fir.New(c, nil)
	if err != nil {
		return reference.ErrorStats{}, err
	}
	if set > 0 {
		if err := e.Reload(set); err != nil {
			return reference.ErrorStats{}, err
		}
	}

	df := a.cfg.DataFormat()
	fullScale := math.Ldexp(1, df.Width-1-df.Fract)
	tone := sine(a.toneLen, a.toneFreq, toneAmplitude*fullScale)

	model.Reset()
	want := model.Process(tone)
	got, err := e.Process(tone)
	if err != nil {
		return reference.ErrorStats{}, err
	}
	return reference.Compare(want, e.Floats(got))
}

// stopbandEdge picks the frequency from which stopband attenuation is
// measured.
func (a *analyzer) stopbandEdge(c fir.FilterConfig, r *analysis.Response) float64 {
	if a.stopband > 0 {
		return a.stopband
	}
	if k := max(c.InterpRate, c.DecimRate); k > 1 {
		return 0.5 / float64(k)
	}
	return math.Min(2*r.Cutoff(cutoffDropDB), 0.5)
}

func (a *analyzer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// params returns the decomposition parameters of a validated config.
func params(c fir.FilterConfig) polyphase.Params {
	return polyphase.Params{
		InterpRate:     c.InterpRate,
		DecimRate:      c.DecimRate,
		ZeroPackFactor: c.ZeroPackFactor,
		Padding:        c.CoeffPadding,
	}
}

// expand applies padding and zero packing to a prototype.
func expand(taps []float64, p polyphase.Params) []float64 {
	out := make([]float64, p.ExpandedLength(len(taps)))
	for k := range out {
		if src, ok := p.PrototypeIndex(k, len(taps)); ok {
			out[k] = taps[src]
		}
	}
	return out
}

// sine returns n samples of amp*sin(2*pi*freq*i).
func sine(n int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i))
	}
	return out
}
