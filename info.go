package fir

import (
	"github.com/tphakala/simd/cpu"
)

// Info describes the structure and cost of an engine.
type Info struct {
	Name       string
	FilterType FilterType

	// InterpRate and DecimRate are L and M; Ratio is L/M.
	InterpRate int
	DecimRate  int
	Ratio      float64

	// NumTaps is the source coefficient count per set; ExpandedTaps adds
	// padding and zero packing.
	NumTaps      int
	ExpandedTaps int

	// Phases is the number of polyphase branches.
	Phases int

	// RegisterLength is the shift register length of every channel.
	RegisterLength int

	// MACsPerInput is the average multiply-accumulate count per input
	// sample and path, after skipping known-zero taps.
	MACsPerInput float64

	// Banks is the number of coefficient sets.
	Banks int

	Channels int
	Paths    int

	DataFormat        Format
	CoeffFormat       Format
	AccumulatorFormat Format
	OutputFormat      Format

	// GroupDelay is the delay of a linear-phase set, in input samples.
	GroupDelay float64

	// MemoryUsage is the approximate size of registers and banks in bytes.
	MemoryUsage int64

	// SIMDType names the vector extensions used by the float reference path.
	SIMDType string
}

// Info returns information about the engine.
func (e *Engine) Info() Info {
	v := e.cfg
	c := &v.config
	bank := v.banks[0]

	info := Info{
		Name:              c.Name,
		FilterType:        c.FilterType,
		InterpRate:        c.InterpRate,
		DecimRate:         c.DecimRate,
		Ratio:             float64(c.InterpRate) / float64(c.DecimRate),
		NumTaps:           c.NumCoeffs,
		ExpandedTaps:      bank.TotalTaps,
		Phases:            bank.NumPhases,
		RegisterLength:    bank.TapsPerPhase,
		MACsPerInput:      e.macsPerInput(),
		Banks:             len(v.banks),
		Channels:          c.NumChannels,
		Paths:             c.NumPaths,
		DataFormat:        v.dataFormat,
		CoeffFormat:       v.coeffFormat,
		AccumulatorFormat: v.accFormat,
		OutputFormat:      v.outputFormat,
		GroupDelay:        float64(bank.TotalTaps-1) / groupDelayDivisor / float64(c.InterpRate),
		SIMDType:          cpu.Info(),
	}

	mem := int64(e.arena.Len()) * int64(bank.TapsPerPhase) * bytesPerSample
	for _, fb := range v.banks {
		mem += int64(fb.MACs()) * (bytesPerSample + bytesPerOffset)
	}
	info.MemoryUsage = mem

	return info
}

// macsPerInput averages the bank 0 phase lengths over one schedule period.
func (e *Engine) macsPerInput() float64 {
	s := e.cfg.schedule
	bank := e.cfg.banks[0]
	total := 0
	for n := range s.InputsPerPeriod() {
		for _, ph := range s.Phases(n) {
			total += len(bank.Phases[ph].Coeffs)
		}
	}
	return float64(total) / float64(s.InputsPerPeriod())
}
