package fir

// Convenience constructors build single-channel, single-path engines with
// 16-bit data (s16.15), 18-bit coefficients scaled for maximum dynamic
// range, and convergent rounding back to the data format.

func baseConfig(coeffs []float64) FilterConfig {
	return FilterConfig{
		InterpRate:         1,
		DecimRate:          1,
		Coefficients:       [][]float64{coeffs},
		Quantization:       MaximizeDynamicRange,
		CoeffWidth:         defaultCoeffWidth,
		CoeffFractWidth:    defaultCoeffFract,
		NumChannels:        1,
		NumPaths:           1,
		DataWidth:          defaultDataWidth,
		DataFractWidth:     defaultDataFract,
		OutputRoundingMode: RoundConvergentEven,
		OutputWidth:        defaultDataWidth,
		OutputFractWidth:   defaultDataFract,
	}
}

// NewSingleRate creates a single-rate filter.
func NewSingleRate(coeffs []float64) (*Engine, error) {
	cfg := baseConfig(coeffs)
	cfg.Name = "single-rate"
	return New(cfg, nil)
}

// NewInterpolator creates an interpolate-by-l filter. The prototype taps
// should have a DC gain of l to preserve signal level.
func NewInterpolator(l int, coeffs []float64) (*Engine, error) {
	cfg := baseConfig(coeffs)
	cfg.Name = "interpolator"
	cfg.FilterType = Interpolation
	cfg.InterpRate = l
	return New(cfg, nil)
}

// NewDecimator creates a decimate-by-m filter.
func NewDecimator(m int, coeffs []float64) (*Engine, error) {
	cfg := baseConfig(coeffs)
	cfg.Name = "decimator"
	cfg.FilterType = Decimation
	cfg.DecimRate = m
	return New(cfg, nil)
}

// NewHalfbandDecimator creates a decimate-by-2 filter from a halfband set.
// Known-zero taps are skipped, halving the multiply count.
func NewHalfbandDecimator(coeffs []float64) (*Engine, error) {
	cfg := baseConfig(coeffs)
	cfg.Name = "halfband-decimator"
	cfg.FilterType = Decimation
	cfg.DecimRate = halfbandRate
	cfg.IsHalfband = true
	return New(cfg, nil)
}

// NewFractional creates an L/M rate changer. L and M must be coprime.
func NewFractional(l, m int, coeffs []float64) (*Engine, error) {
	cfg := baseConfig(coeffs)
	cfg.Name = "fractional"
	cfg.FilterType = InterpDecim
	cfg.RateChange = FractionalRate
	cfg.InterpRate = l
	cfg.DecimRate = m
	return New(cfg, nil)
}

// FilterMono is a convenience function for one-shot filtering. It builds
// an engine from cfg, processes input and returns the outputs as real
// numbers. cfg must describe a single path.
func FilterMono(cfg FilterConfig, input []float64) ([]float64, error) {
	e, err := New(cfg, nil)
	if err != nil {
		return nil, err
	}
	out, err := e.Process(input)
	if err != nil {
		return nil, err
	}
	return e.Floats(out), nil
}

// Multiplex interleaves per-channel streams into one time-multiplexed
// stream in basic channel order: [c0[0], c1[0], ..., c0[1], c1[1], ...].
// The result is as long as the shortest channel allows.
func Multiplex(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	for _, ch := range channels[1:] {
		n = min(n, len(ch))
	}
	out := make([]float64, n*len(channels))
	for i := range n {
		for c, ch := range channels {
			out[i*len(channels)+c] = ch[i]
		}
	}
	return out
}

// Demultiplex splits engine outputs by channel, keeping their order.
func Demultiplex(outputs []Output, numChannels int) [][]Output {
	out := make([][]Output, numChannels)
	for _, o := range outputs {
		if o.Channel >= 0 && o.Channel < numChannels {
			out[o.Channel] = append(out[o.Channel], o)
		}
	}
	return out
}
