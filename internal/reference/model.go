// Package reference is the floating-point model of the polyphase filter.
// It runs the same rate schedule as the fixed-point pipeline, without
// quantization, and is used to measure the error the fixed-point datapath
// introduces.
package reference

import (
	"fmt"
	"math"

	"github.com/tphakala/go-fir/internal/polyphase"
	"github.com/tphakala/go-fir/internal/rate"
)

const interleaveFactor = 2

// Model filters one channel in floating point.
type Model[F Float] struct {
	// kernels[phase] holds the dense phase taps reversed, the layout
	// ConvolveValid expects
	kernels      [][]F
	tapsPerPhase int

	sched  *rate.Schedule
	cursor rate.Cursor

	history   []F
	phaseBufs [][]F

	ops *kernelOps[F]
}

// New builds a model of taps under the given decomposition parameters.
func New[F Float](taps []float64, p polyphase.Params) (*Model[F], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(taps) == 0 {
		return nil, fmt.Errorf("reference model needs at least one tap")
	}
	sched, err := rate.NewSchedule(p.InterpRate, p.DecimRate)
	if err != nil {
		return nil, err
	}

	tapsPerPhase := p.RegisterLength(len(taps))
	kernels := make([][]F, p.InterpRate)
	for phase := range kernels {
		kernels[phase] = make([]F, tapsPerPhase)
		for off := range tapsPerPhase {
			if src, ok := p.PrototypeIndex(off*p.InterpRate+phase, len(taps)); ok {
				kernels[phase][tapsPerPhase-1-off] = F(taps[src])
			}
		}
	}

	return &Model[F]{
		kernels:      kernels,
		tapsPerPhase: tapsPerPhase,
		sched:        sched,
		history:      make([]F, tapsPerPhase-1),
		phaseBufs:    make([][]F, p.InterpRate),
		ops:          opsFor[F](),
	}, nil
}

// Process filters input and returns the outputs due, in the same order the
// fixed-point pipeline produces them.
func (m *Model[F]) Process(input []F) []F {
	if len(input) == 0 {
		return []F{}
	}

	m.history = append(m.history, input...)
	for phase := range m.phaseBufs {
		if cap(m.phaseBufs[phase]) < len(input) {
			m.phaseBufs[phase] = make([]F, len(input))
		}
		m.phaseBufs[phase] = m.phaseBufs[phase][:len(input)]
	}
	m.ops.convolveMulti(m.phaseBufs, m.history, m.kernels)

	var output []F
	if m.sched.DecimRate() == 1 && m.sched.InterpRate() == interleaveFactor {
		output = make([]F, len(input)*interleaveFactor)
		m.ops.interleave2(output, m.phaseBufs[0], m.phaseBufs[1])
	} else {
		output = make([]F, 0, m.sched.OutputsFor(m.cursor.Position(), len(input)))
		for i := range input {
			for _, phase := range m.cursor.Next(m.sched) {
				output = append(output, m.phaseBufs[phase][i])
			}
		}
	}

	// keep the last tapsPerPhase-1 samples as history
	keep := m.tapsPerPhase - 1
	copy(m.history, m.history[len(m.history)-keep:])
	m.history = m.history[:keep]

	return output
}

// Reset clears the history and rewinds the rate schedule.
func (m *Model[F]) Reset() {
	clear(m.history)
	m.cursor.Reset()
}

// PhaseGains returns the DC gain of every phase.
func (m *Model[F]) PhaseGains() []float64 {
	gains := make([]float64, len(m.kernels))
	for i, k := range m.kernels {
		gains[i] = float64(m.ops.sum(k))
	}
	return gains
}

// ErrorStats summarizes the difference between a fixed-point output stream
// and the reference.
type ErrorStats struct {
	MaxAbs float64
	RMS    float64
	Mean   float64
	SNRdB  float64
}

// Compare measures got against want. Both must have the same length.
func Compare[F Float](want, got []F) (ErrorStats, error) {
	if len(want) != len(got) {
		return ErrorStats{}, fmt.Errorf("length mismatch: reference %d, measured %d", len(want), len(got))
	}
	if len(want) == 0 {
		return ErrorStats{}, nil
	}

	ops := opsFor[F]()
	diff := make([]F, len(want))
	var stats ErrorStats
	for i := range want {
		diff[i] = got[i] - want[i]
		stats.MaxAbs = math.Max(stats.MaxAbs, math.Abs(float64(diff[i])))
	}

	n := float64(len(want))
	noise := float64(ops.dot(diff, diff))
	signal := float64(ops.dot(want, want))
	stats.RMS = math.Sqrt(noise / n)
	stats.Mean = float64(ops.sum(diff)) / n

	switch {
	case noise == 0:
		stats.SNRdB = math.Inf(1)
	case signal == 0:
		stats.SNRdB = math.Inf(-1)
	default:
		stats.SNRdB = 10 * math.Log10(signal/noise)
	}
	return stats, nil
}
