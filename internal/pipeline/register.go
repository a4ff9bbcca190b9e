package pipeline

import "github.com/tphakala/go-fir/internal/fixed"

// ShiftRegister is the fixed-capacity sample history of one (channel, path)
// pair. Position 0 is the newest sample. Unwritten positions read as zero.
type ShiftRegister struct {
	data   []fixed.Sample
	head   int
	filled int
}

// NewShiftRegister returns a zeroed register of the given length.
func NewShiftRegister(length int) *ShiftRegister {
	if length < 1 {
		length = 1
	}
	return &ShiftRegister{data: make([]fixed.Sample, length)}
}

// Push shifts x in as the newest sample, discarding the oldest.
func (r *ShiftRegister) Push(x fixed.Sample) {
	r.head--
	if r.head < 0 {
		r.head = len(r.data) - 1
	}
	r.data[r.head] = x
	if r.filled < len(r.data) {
		r.filled++
	}
}

// At returns the sample pushed j pushes ago.
func (r *ShiftRegister) At(j int) fixed.Sample {
	i := r.head + j
	if i >= len(r.data) {
		i -= len(r.data)
	}
	return r.data[i]
}

// Full reports whether every position holds a pushed sample.
func (r *ShiftRegister) Full() bool {
	return r.filled == len(r.data)
}

// Len returns the register length.
func (r *ShiftRegister) Len() int {
	return len(r.data)
}

// Snapshot returns the contents, newest first.
func (r *ShiftRegister) Snapshot() []fixed.Sample {
	out := make([]fixed.Sample, len(r.data))
	for j := range out {
		out[j] = r.At(j)
	}
	return out
}

// Clear zeroes the history.
func (r *ShiftRegister) Clear() {
	clear(r.data)
	r.head = 0
	r.filled = 0
}
