package pipeline

import (
	"github.com/tphakala/go-fir/internal/fixed"
	"github.com/tphakala/go-fir/internal/rate"
)

// State is everything one (channel, path) pair carries between samples.
type State struct {
	Register ShiftRegister
	Cursor   rate.Cursor
}

// Arena holds the states of every (channel, path) pair, indexed
// channel*paths + path, backed by one allocation.
type Arena struct {
	states []State
	paths  int
}

// NewArena allocates zeroed states for channels x paths registers of the
// given length.
func NewArena(channels, paths, registerLength int) *Arena {
	n := channels * paths
	backing := make([]fixed.Sample, n*registerLength)
	a := &Arena{
		states: make([]State, n),
		paths:  paths,
	}
	for i := range a.states {
		a.states[i].Register.data = backing[i*registerLength : (i+1)*registerLength : (i+1)*registerLength]
	}
	return a
}

// State returns the state of (channel, path).
func (a *Arena) State(channel, path int) *State {
	return &a.states[channel*a.paths+path]
}

// Len returns the number of states.
func (a *Arena) Len() int {
	return len(a.states)
}

// Clear zeroes every register and rewinds every rate cursor.
func (a *Arena) Clear() {
	for i := range a.states {
		a.states[i].Register.Clear()
		a.states[i].Cursor.Reset()
	}
}
