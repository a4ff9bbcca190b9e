package fir

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/go-fir/internal/header"
	"gopkg.in/yaml.v3"
)

const yamlIndent = 2

// DecodeConfig reads a YAML configuration. Unknown keys are rejected.
func DecodeConfig(r io.Reader) (FilterConfig, error) {
	var cfg FilterConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FilterConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// EncodeConfig writes cfg as YAML. Coefficients keep full float64
// precision.
func EncodeConfig(w io.Writer, cfg FilterConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (FilterConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return FilterConfig{}, err
	}
	defer func() { _ = f.Close() }()

	cfg, err := DecodeConfig(f)
	if err != nil {
		return FilterConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to a YAML file.
func SaveConfig(path string, cfg FilterConfig) error {
	var buf bytes.Buffer
	if err := EncodeConfig(&buf, cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadConfigFile loads a configuration by extension: .h files are C-model
// headers, anything else is YAML.
func ReadConfigFile(path string) (FilterConfig, error) {
	if strings.EqualFold(filepath.Ext(path), ".h") {
		return ReadHeaderFile(path)
	}
	return LoadConfig(path)
}

// ReadHeaderFile imports a FIR compiler C-model header file.
func ReadHeaderFile(path string) (FilterConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return FilterConfig{}, err
	}
	defer func() { _ = f.Close() }()

	cfg, err := ParseHeader(f)
	if err != nil {
		return FilterConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseHeader imports the parameter block of a FIR compiler C-model
// header. The flat coefficient list is split into coeff_sets sets of
// num_coeffs taps each. The result is not validated.
func ParseHeader(r io.Reader) (FilterConfig, error) {
	h, err := header.Parse(r)
	if err != nil {
		return FilterConfig{}, err
	}

	cfg := FilterConfig{Name: h.String("name")}

	ints := []struct {
		key string
		dst *int
	}{
		{"filter_type", (*int)(&cfg.FilterType)},
		{"rate_change", (*int)(&cfg.RateChange)},
		{"interp_rate", &cfg.InterpRate},
		{"decim_rate", &cfg.DecimRate},
		{"num_coeffs", &cfg.NumCoeffs},
		{"coeff_sets", &cfg.CoeffSets},
		{"quantization", (*int)(&cfg.Quantization)},
		{"coeff_width", &cfg.CoeffWidth},
		{"coeff_fract_width", &cfg.CoeffFractWidth},
		{"chan_seq", (*int)(&cfg.ChanSeq)},
		{"num_channels", &cfg.NumChannels},
		{"num_paths", &cfg.NumPaths},
		{"data_width", &cfg.DataWidth},
		{"data_fract_width", &cfg.DataFractWidth},
		{"output_rounding_mode", (*int)(&cfg.OutputRoundingMode)},
		{"output_width", &cfg.OutputWidth},
		{"output_fract_width", &cfg.OutputFractWidth},
	}
	for _, f := range ints {
		if *f.dst, err = h.Int(f.key); err != nil {
			return FilterConfig{}, err
		}
	}

	optional := []struct {
		key string
		dst *int
		def int
	}{
		{"zero_pack_factor", &cfg.ZeroPackFactor, 1},
		{"coeff_padding", &cfg.CoeffPadding, 0},
		{"coeff_sign", (*int)(&cfg.CoeffSign), int(CoeffSigned)},
		{"config_method", (*int)(&cfg.ConfigMethod), int(ConfigSingle)},
	}
	for _, f := range optional {
		if *f.dst, err = h.IntOr(f.key, f.def); err != nil {
			return FilterConfig{}, err
		}
	}

	if cfg.Reloadable, err = h.Bool("reloadable"); err != nil {
		return FilterConfig{}, err
	}
	if cfg.IsHalfband, err = h.Bool("is_halfband"); err != nil {
		return FilterConfig{}, err
	}
	if h.Has("channel_pattern") {
		if cfg.ChannelPattern, err = h.Ints("channel_pattern"); err != nil {
			return FilterConfig{}, err
		}
	}

	cfg.Coefficients, err = splitSets(h.Coefficients, cfg.CoeffSets, cfg.NumCoeffs)
	if err != nil {
		return FilterConfig{}, err
	}
	return cfg, nil
}

func splitSets(flat []float64, sets, taps int) ([][]float64, error) {
	if sets < 1 || taps < 1 || len(flat) != sets*taps {
		return nil, fmt.Errorf("%w: %d coefficients do not form %d set(s) of %d",
			ErrMalformedCoefficients, len(flat), sets, taps)
	}
	out := make([][]float64, sets)
	for i := range out {
		out[i] = append([]float64(nil), flat[i*taps:(i+1)*taps]...)
	}
	return out, nil
}
