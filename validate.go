package fir

import (
	"errors"
	"math"

	"github.com/tphakala/go-fir/internal/coeff"
	"github.com/tphakala/go-fir/internal/fixed"
	"github.com/tphakala/go-fir/internal/mathutil"
	"github.com/tphakala/go-fir/internal/polyphase"
	"github.com/tphakala/go-fir/internal/rate"
	"github.com/tphakala/go-fir/internal/sequencer"
)

const (
	minRate         = 1
	minChannels     = 1
	minPaths        = 1
	minCoeffSets    = 1
	singleRateValue = 1
)

// ValidatedConfig is a configuration that passed Validate, together with
// everything derived from it: quantized coefficient banks, their polyphase
// decomposition, number formats and the rate schedule. It is immutable and
// may be shared by several engines.
type ValidatedConfig struct {
	config FilterConfig

	store    *coeff.Store
	banks    []*polyphase.FilterBank
	params   polyphase.Params
	schedule *rate.Schedule
	pattern  sequencer.Pattern
	sequence []int

	dataFormat   Format
	coeffFormat  Format
	accFormat    Format
	outputFormat Format
}

// Validate checks every structural invariant of c and derives the
// quantized, decomposed filter. It is pure: c is not modified and later
// changes to c do not affect the result.
func Validate(c FilterConfig) (*ValidatedConfig, error) {
	cfg := c.Clone()
	normalize(&cfg)

	if err := validateEnums(&cfg); err != nil {
		return nil, err
	}
	if err := validateRates(&cfg); err != nil {
		return nil, err
	}
	pattern, sequence, err := validateChannels(&cfg)
	if err != nil {
		return nil, err
	}
	if err := validateCoefficientShape(&cfg); err != nil {
		return nil, err
	}
	if err := validateReload(&cfg); err != nil {
		return nil, err
	}

	data := Format{Width: cfg.DataWidth, Fract: cfg.DataFractWidth}
	if err := data.Validate(); err != nil {
		return nil, configErr("data_width", ErrWidthOverflow, "data format %v: %v", data, err)
	}
	coeffFormat := Format{
		Width:    cfg.CoeffWidth,
		Fract:    cfg.CoeffFractWidth,
		Unsigned: cfg.CoeffSign == CoeffUnsigned,
	}
	if err := coeffFormat.Validate(); err != nil {
		return nil, configErr("coeff_width", ErrWidthOverflow, "coefficient format %v: %v", coeffFormat, err)
	}

	store, err := coeff.Load(cfg.Coefficients, coeff.LoadParams{
		Format:       coeffFormat,
		Quantization: coeff.Quantization(cfg.Quantization),
		Halfband:     cfg.IsHalfband,
	})
	if err != nil {
		if errors.Is(err, coeff.ErrMalformed) {
			return nil, configErr("coefficients", ErrMalformedCoefficients, "%v", err)
		}
		return nil, configErr("coefficients", ErrInvalidConfig, "%v", err)
	}

	params := polyphase.Params{
		InterpRate:     cfg.InterpRate,
		DecimRate:      cfg.DecimRate,
		ZeroPackFactor: cfg.ZeroPackFactor,
		Padding:        cfg.CoeffPadding,
	}
	banks := make([]*polyphase.FilterBank, store.Len())
	longestPhase := 1
	for i := range banks {
		bank, _ := store.Select(i)
		fb, err := polyphase.Decompose(bank.Taps, bank.IsKnownZero, params)
		if err != nil {
			return nil, configErr("coefficients", ErrMalformedCoefficients, "set %d: %v", i, err)
		}
		for _, ph := range fb.Phases {
			longestPhase = max(longestPhase, len(ph.Coeffs))
		}
		banks[i] = fb
	}

	acc := fixed.AccumulatorFormat(data, store.Format(), longestPhase)
	if acc.Width > fixed.MaxAccumulatorWidth {
		return nil, configErr("accumulator", ErrWidthOverflow,
			"accumulator needs %d bits (data %d + coefficient %d + growth %d), limit is %d",
			acc.Width, data.Width, store.Format().Width, mathutil.CeilLog2(longestPhase), fixed.MaxAccumulatorWidth)
	}

	output, err := outputFormat(&cfg, acc)
	if err != nil {
		return nil, err
	}

	schedule, err := rate.NewSchedule(cfg.InterpRate, cfg.DecimRate)
	if err != nil {
		return nil, configErr("interp_rate", ErrInconsistentRates, "%v", err)
	}

	return &ValidatedConfig{
		config:       cfg,
		store:        store,
		banks:        banks,
		params:       params,
		schedule:     schedule,
		pattern:      pattern,
		sequence:     sequence,
		dataFormat:   data,
		coeffFormat:  store.Format(),
		accFormat:    acc,
		outputFormat: output,
	}, nil
}

// normalize fills the fields whose zero value has an obvious meaning.
func normalize(c *FilterConfig) {
	if c.ZeroPackFactor == 0 {
		c.ZeroPackFactor = 1
	}
	if c.CoeffSets == 0 {
		c.CoeffSets = len(c.Coefficients)
	}
	if c.NumCoeffs == 0 && len(c.Coefficients) > 0 {
		c.NumCoeffs = len(c.Coefficients[0])
	}
}

func validateEnums(c *FilterConfig) error {
	switch {
	case !c.FilterType.Valid():
		return configErr("filter_type", ErrInconsistentRates, "unknown filter type %d", int(c.FilterType))
	case !c.RateChange.Valid():
		return configErr("rate_change", ErrInconsistentRates, "unknown rate change %d", int(c.RateChange))
	case !c.Quantization.Valid():
		return configErr("quantization", ErrMalformedCoefficients, "unknown quantization %d", int(c.Quantization))
	case !c.CoeffSign.Valid():
		return configErr("coeff_sign", ErrMalformedCoefficients, "unknown coefficient sign %d", int(c.CoeffSign))
	case !c.ChanSeq.Valid():
		return configErr("chan_seq", ErrInvalidChannels, "unknown channel sequence %d", int(c.ChanSeq))
	case !c.ConfigMethod.Valid():
		return configErr("config_method", ErrInvalidReload, "unknown config method %d", int(c.ConfigMethod))
	case !c.OutputRoundingMode.Valid():
		return configErr("output_rounding_mode", ErrWidthOverflow, "unknown rounding mode %d", int(c.OutputRoundingMode))
	}
	return nil
}

func validateRates(c *FilterConfig) error {
	l, m := c.InterpRate, c.DecimRate
	if l < minRate {
		return configErr("interp_rate", ErrInconsistentRates, "must be positive, got %d", l)
	}
	if m < minRate {
		return configErr("decim_rate", ErrInconsistentRates, "must be positive, got %d", m)
	}
	if c.ZeroPackFactor < 1 {
		return configErr("zero_pack_factor", ErrInconsistentRates, "must be at least 1, got %d", c.ZeroPackFactor)
	}

	switch c.FilterType {
	case SingleRate:
		if l != singleRateValue || m != singleRateValue {
			return configErr("filter_type", ErrInconsistentRates, "single-rate filter needs L = M = 1, got %d/%d", l, m)
		}
		if c.RateChange != IntegerRate {
			return configErr("rate_change", ErrInconsistentRates, "single-rate filter cannot use fractional rate change")
		}
	case Interpolation:
		if l < 2 || m != singleRateValue {
			return configErr("filter_type", ErrInconsistentRates, "interpolator needs L >= 2 and M = 1, got %d/%d", l, m)
		}
	case Decimation:
		if l != singleRateValue || m < 2 {
			return configErr("filter_type", ErrInconsistentRates, "decimator needs L = 1 and M >= 2, got %d/%d", l, m)
		}
	case InterpDecim:
		if l < 2 || m < 2 {
			return configErr("filter_type", ErrInconsistentRates, "interp/decim filter needs L, M >= 2, got %d/%d", l, m)
		}
		if c.RateChange != FractionalRate {
			return configErr("rate_change", ErrInconsistentRates, "interp/decim filter needs fractional rate change")
		}
	}

	if c.RateChange == FractionalRate && !mathutil.Coprime(l, m) {
		return configErr("rate_change", ErrInconsistentRates,
			"fractional rate %d/%d is not in lowest terms (gcd %d)", l, m, mathutil.GCD(l, m))
	}
	return nil
}

func validateChannels(c *FilterConfig) (sequencer.Pattern, []int, error) {
	if c.NumChannels < minChannels {
		return sequencer.Pattern{}, nil, configErr("num_channels", ErrInvalidChannels, "need at least %d, got %d", minChannels, c.NumChannels)
	}
	if c.NumPaths < minPaths {
		return sequencer.Pattern{}, nil, configErr("num_paths", ErrInvalidChannels, "need at least %d, got %d", minPaths, c.NumPaths)
	}

	p := sequencer.Pattern{Kind: sequencer.Basic}
	if c.ChanSeq == ChanSeqCustom {
		p = sequencer.Pattern{Kind: sequencer.Custom, Sequence: c.ChannelPattern}
	}
	seq, err := p.Expand(c.NumChannels)
	if err != nil {
		return sequencer.Pattern{}, nil, configErr("channel_pattern", ErrInvalidChannels, "%v", err)
	}
	return p, seq, nil
}

func validateCoefficientShape(c *FilterConfig) error {
	if c.CoeffSets < minCoeffSets {
		return configErr("coeff_sets", ErrMalformedCoefficients, "need at least %d coefficient set", minCoeffSets)
	}
	if len(c.Coefficients) != c.CoeffSets {
		return configErr("coeff_sets", ErrMalformedCoefficients, "declared %d sets, got %d", c.CoeffSets, len(c.Coefficients))
	}
	if c.NumCoeffs < 1 {
		return configErr("num_coeffs", ErrMalformedCoefficients, "need at least one coefficient, got %d", c.NumCoeffs)
	}
	for i, set := range c.Coefficients {
		if len(set) != c.NumCoeffs {
			return configErr("num_coeffs", ErrMalformedCoefficients, "set %d has %d taps, want %d", i, len(set), c.NumCoeffs)
		}
		for j, v := range set {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return configErr("coefficients", ErrMalformedCoefficients, "set %d tap %d is not finite", i, j)
			}
		}
	}
	if c.CoeffPadding < 0 {
		return configErr("coeff_padding", ErrMalformedCoefficients, "must not be negative, got %d", c.CoeffPadding)
	}
	return nil
}

func validateReload(c *FilterConfig) error {
	if c.CoeffSets > 1 && !c.Reloadable && c.ConfigMethod != ConfigByChannel {
		return configErr("coeff_sets", ErrInvalidReload,
			"%d coefficient sets need reloadable or by-channel configuration", c.CoeffSets)
	}
	return nil
}

// outputFormat resolves the output format, deriving it from the
// accumulator under full precision.
func outputFormat(c *FilterConfig, acc Format) (Format, error) {
	if c.OutputRoundingMode == RoundFullPrecision {
		if (c.OutputWidth != 0 || c.OutputFractWidth != 0) &&
			(c.OutputWidth != acc.Width || c.OutputFractWidth != acc.Fract) {
			return Format{}, configErr("output_width", ErrWidthOverflow,
				"full precision output is %v, configured %d/%d", acc, c.OutputWidth, c.OutputFractWidth)
		}
		c.OutputWidth, c.OutputFractWidth = acc.Width, acc.Fract
		return acc, nil
	}

	out := Format{Width: c.OutputWidth, Fract: c.OutputFractWidth}
	if err := out.Validate(); err != nil {
		return Format{}, configErr("output_width", ErrWidthOverflow, "output format %v: %v", out, err)
	}
	return out, nil
}

// Config returns a copy of the validated configuration, with derived
// fields filled in.
func (v *ValidatedConfig) Config() FilterConfig {
	return v.config.Clone()
}

// DataFormat returns the input sample format.
func (v *ValidatedConfig) DataFormat() Format { return v.dataFormat }

// CoeffFormat returns the effective coefficient format.
func (v *ValidatedConfig) CoeffFormat() Format { return v.coeffFormat }

// AccumulatorFormat returns the full-precision accumulator format.
func (v *ValidatedConfig) AccumulatorFormat() Format { return v.accFormat }

// OutputFormat returns the output sample format.
func (v *ValidatedConfig) OutputFormat() Format { return v.outputFormat }

// RegisterLength returns the per-channel shift register length.
func (v *ValidatedConfig) RegisterLength() int { return v.banks[0].TapsPerPhase }

// ChannelSequence returns one period of the channel pattern.
func (v *ValidatedConfig) ChannelSequence() []int {
	return append([]int(nil), v.sequence...)
}

// QuantizedCoefficients returns the fixed-point taps of one set.
func (v *ValidatedConfig) QuantizedCoefficients(set int) ([]Sample, error) {
	bank, err := v.store.Select(set)
	if err != nil {
		return nil, err
	}
	return append([]Sample(nil), bank.Taps...), nil
}
