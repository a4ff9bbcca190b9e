package fir

import (
	"fmt"
	"strconv"

	"github.com/tphakala/go-fir/internal/fixed"
	"gopkg.in/yaml.v3"
)

// Format describes a fixed-point number: total width in bits and the
// number of fractional bits.
type Format = fixed.Format

// Sample is a raw fixed-point value; its meaning depends on its Format.
type Sample = fixed.Sample

// FilterConfig describes one filter instance. It is the only input the
// engine needs; build it in code, load it from YAML with LoadConfig, or
// import a FIR compiler C-model header with ParseHeader.
//
// Enumerated fields use the numeric values of the C-model header, so a
// header and its YAML rendering carry the same numbers.
type FilterConfig struct {
	// Name identifies the instance in logs and reports.
	Name string `yaml:"name"`

	FilterType FilterType `yaml:"filter_type"`
	RateChange RateChange `yaml:"rate_change"`

	// InterpRate (L) and DecimRate (M) give an output rate of L/M times
	// the input rate.
	InterpRate int `yaml:"interp_rate"`
	DecimRate  int `yaml:"decim_rate"`

	// ZeroPackFactor inserts ZeroPackFactor-1 zeros between prototype
	// taps. Zero is read as 1.
	ZeroPackFactor int `yaml:"zero_pack_factor"`

	// Coefficients holds one slice per coefficient set.
	Coefficients [][]float64 `yaml:"coefficients,flow"`

	// CoeffPadding prepends this many zero taps to every set.
	CoeffPadding int `yaml:"coeff_padding"`

	// NumCoeffs and CoeffSets describe the shape of Coefficients. Zero
	// means "take it from Coefficients".
	NumCoeffs int `yaml:"num_coeffs"`
	CoeffSets int `yaml:"coeff_sets"`

	// Reloadable allows switching between coefficient sets at runtime.
	Reloadable bool `yaml:"reloadable"`

	// IsHalfband marks halfband sets whose alternate taps are zero; those
	// taps are skipped by the multiply-accumulate.
	IsHalfband bool `yaml:"is_halfband"`

	Quantization    Quantization `yaml:"quantization"`
	CoeffSign       CoeffSign    `yaml:"coeff_sign"`
	CoeffWidth      int          `yaml:"coeff_width"`
	CoeffFractWidth int          `yaml:"coeff_fract_width"`

	ChanSeq ChanSeq `yaml:"chan_seq"`

	// ChannelPattern is the channel order for ChanSeqCustom.
	ChannelPattern []int `yaml:"channel_pattern,omitempty,flow"`

	NumChannels int `yaml:"num_channels"`

	// NumPaths is the number of parallel datapaths sharing this
	// configuration, e.g. 2 for I/Q.
	NumPaths int `yaml:"num_paths"`

	DataWidth      int `yaml:"data_width"`
	DataFractWidth int `yaml:"data_fract_width"`

	OutputRoundingMode RoundingMode `yaml:"output_rounding_mode"`

	// OutputWidth and OutputFractWidth are derived from the accumulator
	// under RoundFullPrecision and may then be left zero.
	OutputWidth      int `yaml:"output_width"`
	OutputFractWidth int `yaml:"output_fract_width"`

	ConfigMethod ConfigMethod `yaml:"config_method"`
}

// Clone returns a deep copy of c.
func (c FilterConfig) Clone() FilterConfig {
	out := c
	if c.Coefficients != nil {
		out.Coefficients = make([][]float64, len(c.Coefficients))
		for i, set := range c.Coefficients {
			out.Coefficients[i] = append([]float64(nil), set...)
		}
	}
	if c.ChannelPattern != nil {
		out.ChannelPattern = append([]int(nil), c.ChannelPattern...)
	}
	return out
}

// FilterType selects the rate-change structure.
type FilterType int

const (
	SingleRate FilterType = iota
	Interpolation
	Decimation
	InterpDecim
)

// RateChange distinguishes integer from fractional L/M.
type RateChange int

const (
	IntegerRate RateChange = iota
	FractionalRate
)

// Quantization selects how coefficients are mapped to fixed point.
type Quantization int

const (
	// IntegerCoeff takes coefficients as integers; CoeffFractWidth must be 0.
	IntegerCoeff Quantization = iota
	// QuantizedOnly quantizes to CoeffWidth/CoeffFractWidth.
	QuantizedOnly
	// MaximizeDynamicRange keeps CoeffWidth but picks the largest fraction
	// that still represents the biggest coefficient.
	MaximizeDynamicRange
)

// CoeffSign selects signed or unsigned coefficient storage.
type CoeffSign int

const (
	CoeffSigned CoeffSign = iota
	CoeffUnsigned
)

// ChanSeq selects the channel sequencing mode.
type ChanSeq int

const (
	// ChanSeqBasic visits channels 0..NumChannels-1 round robin.
	ChanSeqBasic ChanSeq = iota
	// ChanSeqCustom follows ChannelPattern.
	ChanSeqCustom
)

// ConfigMethod selects how coefficient sets are bound to channels.
type ConfigMethod int

const (
	// ConfigSingle applies one coefficient set to every channel.
	ConfigSingle ConfigMethod = iota
	// ConfigByChannel lets each channel select its own set.
	ConfigByChannel
)

// RoundingMode selects how the accumulator is reduced to the output width.
type RoundingMode int

const (
	RoundFullPrecision    = RoundingMode(fixed.FullPrecision)
	RoundTruncateLSBs     = RoundingMode(fixed.TruncateLSBs)
	RoundSymmetricZero    = RoundingMode(fixed.SymmetricZero)
	RoundSymmetricInf     = RoundingMode(fixed.SymmetricInf)
	RoundConvergentEven   = RoundingMode(fixed.ConvergentEven)
	RoundConvergentOdd    = RoundingMode(fixed.ConvergentOdd)
	RoundNonSymmetricDown = RoundingMode(fixed.NonSymmetricDown)
	RoundNonSymmetricUp   = RoundingMode(fixed.NonSymmetricUp)
)

var (
	filterTypeNames   = []string{"single_rate", "interpolation", "decimation", "interp_decim"}
	rateChangeNames   = []string{"integer", "fractional"}
	quantizationNames = []string{"integer_coeff", "quantized_only", "maximize_dynamic_range"}
	coeffSignNames    = []string{"signed", "unsigned"}
	chanSeqNames      = []string{"basic", "custom"}
	configMethodNames = []string{"single", "by_channel"}
)

func enumString(v int, names []string, kind string) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, v)
	}
	return names[v]
}

// decodeEnum accepts either the numeric header value or the name.
func decodeEnum(n *yaml.Node, names []string, kind string) (int, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: %s must be a scalar", n.Line, kind)
	}
	if v, err := strconv.Atoi(n.Value); err == nil {
		if v < 0 || v >= len(names) {
			return 0, fmt.Errorf("line %d: %s %d out of range", n.Line, kind, v)
		}
		return v, nil
	}
	for i, name := range names {
		if name == n.Value {
			return i, nil
		}
	}
	return 0, fmt.Errorf("line %d: unknown %s %q", n.Line, kind, n.Value)
}

func (t FilterType) String() string { return enumString(int(t), filterTypeNames, "FilterType") }

// Valid reports whether t is a defined filter type.
func (t FilterType) Valid() bool { return t >= SingleRate && t <= InterpDecim }

// MarshalYAML writes the name.
func (t FilterType) MarshalYAML() (any, error) { return t.String(), nil }

// UnmarshalYAML accepts a name or the header number.
func (t *FilterType) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, filterTypeNames, "filter_type")
	*t = FilterType(v)
	return err
}

func (r RateChange) String() string { return enumString(int(r), rateChangeNames, "RateChange") }

// Valid reports whether r is a defined rate-change mode.
func (r RateChange) Valid() bool { return r == IntegerRate || r == FractionalRate }

// MarshalYAML writes the name.
func (r RateChange) MarshalYAML() (any, error) { return r.String(), nil }

// UnmarshalYAML accepts a name or the header number.
func (r *RateChange) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, rateChangeNames, "rate_change")
	*r = RateChange(v)
	return err
}

func (q Quantization) String() string {
	return enumString(int(q), quantizationNames, "Quantization")
}

// Valid reports whether q is a defined quantization mode.
func (q Quantization) Valid() bool { return q >= IntegerCoeff && q <= MaximizeDynamicRange }

// MarshalYAML writes the name.
func (q Quantization) MarshalYAML() (any, error) { return q.String(), nil }

// UnmarshalYAML accepts a name or the header number.
func (q *Quantization) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, quantizationNames, "quantization")
	*q = Quantization(v)
	return err
}

func (s CoeffSign) String() string { return enumString(int(s), coeffSignNames, "CoeffSign") }

// Valid reports whether s is a defined sign mode.
func (s CoeffSign) Valid() bool { return s == CoeffSigned || s == CoeffUnsigned }

// MarshalYAML writes the name.
func (s CoeffSign) MarshalYAML() (any, error) { return s.String(), nil }

// UnmarshalYAML accepts a name or the header number.
func (s *CoeffSign) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, coeffSignNames, "coeff_sign")
	*s = CoeffSign(v)
	return err
}

func (c ChanSeq) String() string { return enumString(int(c), chanSeqNames, "ChanSeq") }

// Valid reports whether c is a defined sequencing mode.
func (c ChanSeq) Valid() bool { return c == ChanSeqBasic || c == ChanSeqCustom }

// MarshalYAML writes the name.
func (c ChanSeq) MarshalYAML() (any, error) { return c.String(), nil }

// UnmarshalYAML accepts a name or the header number.
func (c *ChanSeq) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, chanSeqNames, "chan_seq")
	*c = ChanSeq(v)
	return err
}

func (m ConfigMethod) String() string {
	return enumString(int(m), configMethodNames, "ConfigMethod")
}

// Valid reports whether m is a defined config method.
func (m ConfigMethod) Valid() bool { return m == ConfigSingle || m == ConfigByChannel }

// MarshalYAML writes the name.
func (m ConfigMethod) MarshalYAML() (any, error) { return m.String(), nil }

// UnmarshalYAML accepts a name or the header number.
func (m *ConfigMethod) UnmarshalYAML(n *yaml.Node) error {
	v, err := decodeEnum(n, configMethodNames, "config_method")
	*m = ConfigMethod(v)
	return err
}

func (m RoundingMode) String() string { return fixed.RoundingMode(m).String() }

// Valid reports whether m is a defined rounding mode.
func (m RoundingMode) Valid() bool { return fixed.RoundingMode(m).Valid() }

// MarshalYAML writes the name.
func (m RoundingMode) MarshalYAML() (any, error) { return m.String(), nil }

// UnmarshalYAML accepts a name or the header number.
func (m *RoundingMode) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: output_rounding_mode must be a scalar", n.Line)
	}
	if v, err := strconv.Atoi(n.Value); err == nil {
		if !RoundingMode(v).Valid() {
			return fmt.Errorf("line %d: output_rounding_mode %d out of range", n.Line, v)
		}
		*m = RoundingMode(v)
		return nil
	}
	parsed, err := fixed.ParseRoundingMode(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*m = RoundingMode(parsed)
	return nil
}
