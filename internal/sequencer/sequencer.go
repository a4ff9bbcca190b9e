// Package sequencer assigns channel identifiers and coefficient banks to
// consecutive input samples of a time-multiplexed stream.
package sequencer

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-fir/internal/coeff"
)

// ErrInvalidPattern is returned for channel patterns that do not visit
// every channel of the instance.
var ErrInvalidPattern = errors.New("invalid channel pattern")

// Kind selects how the channel pattern is built.
type Kind int

const (
	// Basic visits channels 0..n-1 round robin.
	Basic Kind = iota
	// Custom follows an explicit sequence of channel identifiers.
	Custom
)

// Pattern describes the channel order of the stream.
type Pattern struct {
	Kind     Kind
	Sequence []int // Custom only
}

// Expand returns the full channel sequence of one period.
func (p Pattern) Expand(numChannels int) ([]int, error) {
	if numChannels < 1 {
		return nil, fmt.Errorf("%w: need at least one channel, got %d", ErrInvalidPattern, numChannels)
	}

	switch p.Kind {
	case Basic:
		seq := make([]int, numChannels)
		for i := range seq {
			seq[i] = i
		}
		return seq, nil

	case Custom:
		if len(p.Sequence) == 0 {
			return nil, fmt.Errorf("%w: custom pattern is empty", ErrInvalidPattern)
		}
		seen := make([]bool, numChannels)
		distinct := 0
		for i, ch := range p.Sequence {
			if ch < 0 || ch >= numChannels {
				return nil, fmt.Errorf("%w: entry %d names channel %d outside [0, %d)",
					ErrInvalidPattern, i, ch, numChannels)
			}
			if !seen[ch] {
				seen[ch] = true
				distinct++
			}
		}
		if distinct != numChannels {
			return nil, fmt.Errorf("%w: pattern visits %d of %d channels",
				ErrInvalidPattern, distinct, numChannels)
		}
		return append([]int(nil), p.Sequence...), nil

	default:
		return nil, fmt.Errorf("%w: unknown pattern kind %d", ErrInvalidPattern, p.Kind)
	}
}

// Step is the assignment for one input sample.
type Step struct {
	// Position within the pattern period.
	Position int

	// Channel receiving the sample.
	Channel int

	// Bank is the coefficient bank active for that channel.
	Bank int

	// Boundary is true at position 0, where staged reloads take effect.
	Boundary bool
}

// Sequencer walks the expanded pattern and owns the active bank of every
// channel. Bank changes are staged and applied only at the period boundary.
type Sequencer struct {
	seq      []int
	pos      int
	numBanks int

	active []int // per channel

	pendingAll     int // -1 when none
	pendingChannel map[int]int
}

// New creates a sequencer for numChannels channels and numBanks coefficient
// banks. Every channel starts on bank 0.
func New(p Pattern, numChannels, numBanks int) (*Sequencer, error) {
	seq, err := p.Expand(numChannels)
	if err != nil {
		return nil, err
	}
	if numBanks < 1 {
		return nil, fmt.Errorf("need at least one coefficient bank, got %d", numBanks)
	}
	return &Sequencer{
		seq:            seq,
		numBanks:       numBanks,
		active:         make([]int, numChannels),
		pendingAll:     -1,
		pendingChannel: make(map[int]int),
	}, nil
}

// Advance returns the assignment for the next input sample and moves the
// cursor forward, wrapping at the end of the period.
func (s *Sequencer) Advance() Step {
	if s.pos == 0 {
		s.applyPending()
	}
	ch := s.seq[s.pos]
	st := Step{
		Position: s.pos,
		Channel:  ch,
		Bank:     s.active[ch],
		Boundary: s.pos == 0,
	}
	s.pos++
	if s.pos == len(s.seq) {
		s.pos = 0
	}
	return st
}

// Peek returns the channel that the next Advance will assign.
func (s *Sequencer) Peek() int {
	return s.seq[s.pos]
}

func (s *Sequencer) applyPending() {
	if s.pendingAll >= 0 {
		for ch := range s.active {
			s.active[ch] = s.pendingAll
		}
		s.pendingAll = -1
	}
	for ch, bank := range s.pendingChannel {
		s.active[ch] = bank
		delete(s.pendingChannel, ch)
	}
}

// RequestBank stages a switch of every channel to bank. A later request
// before the boundary replaces an earlier one.
func (s *Sequencer) RequestBank(bank int) error {
	if err := s.checkBank(bank); err != nil {
		return err
	}
	s.pendingAll = bank
	clear(s.pendingChannel)
	return nil
}

// RequestChannelBank stages a switch of one channel to bank.
func (s *Sequencer) RequestChannelBank(channel, bank int) error {
	if channel < 0 || channel >= len(s.active) {
		return fmt.Errorf("channel %d out of range [0, %d)", channel, len(s.active))
	}
	if err := s.checkBank(bank); err != nil {
		return err
	}
	s.pendingChannel[channel] = bank
	return nil
}

func (s *Sequencer) checkBank(bank int) error {
	if bank < 0 || bank >= s.numBanks {
		return fmt.Errorf("%w: %d (have %d)", coeff.ErrBankOutOfRange, bank, s.numBanks)
	}
	return nil
}

// Pending reports whether a bank change is staged.
func (s *Sequencer) Pending() bool {
	return s.pendingAll >= 0 || len(s.pendingChannel) > 0
}

// ActiveBank returns the bank currently used by channel.
func (s *Sequencer) ActiveBank(channel int) int {
	return s.active[channel]
}

// Position returns the index of the next sample within the period.
func (s *Sequencer) Position() int { return s.pos }

// Period returns the pattern length.
func (s *Sequencer) Period() int { return len(s.seq) }

// Sequence returns a copy of the expanded pattern.
func (s *Sequencer) Sequence() []int {
	return append([]int(nil), s.seq...)
}

// Reset returns the cursor to position 0. Active banks and staged
// requests are kept.
func (s *Sequencer) Reset() {
	s.pos = 0
}
