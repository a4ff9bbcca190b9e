// Package fir implements a bit-accurate, multi-rate, multi-channel
// fixed-point FIR filter engine in pure Go.
//
// The engine models the datapath of a hardware FIR compiler: coefficients
// are quantized once to a fixed-point format, decomposed into polyphase
// branches, and applied to time-multiplexed channels with a full-precision
// accumulator that is rounded to the output format by one of eight
// rounding modes. Results are reproducible bit for bit.
//
// # Features
//
//   - Single-rate, interpolation, decimation and fractional L/M filters
//   - Polyphase decomposition with zero packing and coefficient padding
//   - Halfband sets with known-zero taps skipped
//   - Time-multiplexed channels in basic or custom order, plus parallel paths
//   - Several coefficient sets with reload at channel-sequence boundaries
//   - YAML configuration files and C-model header import
//
// # Quick Start
//
// Build a configuration, validate it once and stream samples:
//
//	cfg := fir.FilterConfig{
//	    InterpRate: 1, DecimRate: 1,
//	    Coefficients:       [][]float64{{0.25, 0.5, 0.25}},
//	    Quantization:       fir.QuantizedOnly,
//	    CoeffWidth:         16, CoeffFractWidth: 15,
//	    NumChannels:        1, NumPaths: 1,
//	    DataWidth:          16, DataFractWidth: 15,
//	    OutputRoundingMode: fir.RoundConvergentEven,
//	    OutputWidth:        16, OutputFractWidth: 15,
//	}
//	e, err := fir.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := e.Process(samples)
//
// Every output carries the channel and polyphase phase that produced it;
// use [Engine.Floats] to turn them back into real numbers.
//
// # Errors
//
// Configuration errors match [ErrInvalidConfig] and one specific sentinel
// such as [ErrInconsistentRates], and unwrap to a [*ConfigError] naming the
// offending field. Runtime conditions ([ErrChannelUnderrun], [ErrOverflow])
// never stop processing; they are counted in [Engine.Stats] and logged in
// [Engine.Events].
//
// # Thread Safety
//
// An [Engine] serializes its own calls. With [Options.EnableParallel],
// paths are processed concurrently inside one call; outputs are identical
// to sequential processing.
package fir
