// Package pipeline implements the per-sample multiply-accumulate datapath:
// shift the new sample into a channel register, then compute every
// scheduled polyphase phase and round it to the output format.
package pipeline

import (
	"fmt"

	"github.com/tphakala/go-fir/internal/fixed"
	"github.com/tphakala/go-fir/internal/polyphase"
)

// Params fixes the number formats of one pipeline.
type Params struct {
	Data     fixed.Format
	Coeff    fixed.Format
	Output   fixed.Format
	Rounding fixed.RoundingMode
}

// Pipeline is the stateless MAC-and-round datapath. All per-channel history
// lives in State values owned by the caller, so one Pipeline serves every
// channel and path.
type Pipeline struct {
	params   Params
	accFract int
}

// Result reports what one Push produced.
type Result struct {
	// Values holds one output per scheduled phase, in phase order,
	// appended to the slice passed to Push.
	Values []fixed.Sample

	// Underrun is set while the register still holds start-up zeros.
	Underrun bool

	// Saturated counts outputs clamped to the output range.
	Saturated int
}

// New returns a pipeline for the given formats.
func New(p Params) (*Pipeline, error) {
	formats := []struct {
		name string
		f    fixed.Format
	}{
		{"data", p.Data},
		{"coefficient", p.Coeff},
		{"output", p.Output},
	}
	for _, v := range formats {
		if err := v.f.Validate(); err != nil {
			return nil, fmt.Errorf("%s format: %w", v.name, err)
		}
	}
	if !p.Rounding.Valid() {
		return nil, fmt.Errorf("invalid rounding mode %d", p.Rounding)
	}
	return &Pipeline{
		params:   p,
		accFract: p.Data.Fract + p.Coeff.Fract,
	}, nil
}

// Params returns the formats the pipeline was built with.
func (p *Pipeline) Params() Params {
	return p.params
}

// Push shifts x into st and evaluates the listed phases of fb.
func (p *Pipeline) Push(st *State, x fixed.Sample, fb *polyphase.FilterBank, phases []int, dst []fixed.Sample) Result {
	reg := &st.Register
	reg.Push(x)

	res := Result{
		Values:   dst,
		Underrun: !reg.Full(),
	}
	for _, ph := range phases {
		acc := MAC(reg, &fb.Phases[ph])
		y, sat := fixed.Round(acc, p.accFract, p.params.Output, p.params.Rounding)
		if sat {
			res.Saturated++
		}
		res.Values = append(res.Values, y)
	}
	return res
}

// MAC computes the full-precision dot product of one phase with the
// register history.
func MAC(reg *ShiftRegister, ph *polyphase.Phase) fixed.Accumulator {
	var acc fixed.Accumulator
	for i, c := range ph.Coeffs {
		acc = fixed.MAC(acc, reg.At(ph.Offsets[i]), c)
	}
	return acc
}
