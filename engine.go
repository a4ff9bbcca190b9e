package fir

import (
	"fmt"
	"sync"

	"github.com/tphakala/go-fir/internal/fixed"
	"github.com/tphakala/go-fir/internal/pipeline"
	"github.com/tphakala/go-fir/internal/sequencer"
)

// Options tunes an Engine without changing its numeric behavior.
// The zero value is valid.
type Options struct {
	// EnableParallel processes datapaths concurrently, one goroutine per
	// path. Outputs are identical to sequential processing. Has no effect
	// with a single path.
	EnableParallel bool

	// MaxEvents bounds the Events log. Zero selects DefaultMaxEvents.
	MaxEvents int
}

// Output is one filtered sample.
type Output struct {
	// Channel the sample belongs to.
	Channel int

	// Phase is the polyphase branch that produced it, 0..L-1.
	Phase int

	// Value is the raw sample in the engine's output format.
	Value Sample
}

// Stats counts what the engine has seen since construction.
type Stats struct {
	// Inputs counts consumed input samples over all paths.
	Inputs int64

	// Outputs counts produced output samples over all paths.
	Outputs int64

	// InputSaturations counts float inputs clamped to the data format.
	InputSaturations int64

	// Underruns counts outputs computed from a partially filled register.
	Underruns int64

	// Overflows counts outputs saturated to the output format.
	Overflows int64

	// Reloads counts accepted reload requests.
	Reloads int64

	// DroppedEvents counts events discarded because the log was full.
	DroppedEvents int64
}

// Event records one pipeline condition. Err is ErrChannelUnderrun or
// ErrOverflow.
type Event struct {
	Err     error
	Path    int
	Channel int

	// Input is the index of the triggering sample in the path's stream.
	Input int64
}

func (e Event) String() string {
	return fmt.Sprintf("%v: path %d channel %d input %d", e.Err, e.Path, e.Channel, e.Input)
}

// Engine is a multi-rate, multi-channel fixed-point FIR filter.
//
// Every call that touches sample state is serialized by an internal lock;
// Process may therefore be called from one goroutine while another issues
// Reload. Concurrent Process calls are serialized, not interleaved.
type Engine struct {
	mu sync.Mutex

	cfg  *ValidatedConfig
	opts Options

	pipe  *pipeline.Pipeline
	seq   *sequencer.Sequencer
	arena *pipeline.Arena

	// underrunSeen marks (channel, path) states that already logged an
	// underrun event since the last Flush
	underrunSeen []bool

	inputs int64 // per-path stream position
	stats  Stats
	events []Event
}

// New validates cfg and builds an engine. opts may be nil.
func New(cfg FilterConfig, opts *Options) (*Engine, error) {
	v, err := Validate(cfg)
	if err != nil {
		return nil, err
	}
	return NewFromValidated(v, opts)
}

// NewFromValidated builds an engine from an already validated
// configuration. Several engines may share one ValidatedConfig.
func NewFromValidated(v *ValidatedConfig, opts *Options) (*Engine, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.MaxEvents <= 0 {
		o.MaxEvents = DefaultMaxEvents
	}

	pipe, err := pipeline.New(pipeline.Params{
		Data:     v.dataFormat,
		Coeff:    v.coeffFormat,
		Output:   v.outputFormat,
		Rounding: fixed.RoundingMode(v.config.OutputRoundingMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	seq, err := sequencer.New(v.pattern, v.config.NumChannels, len(v.banks))
	if err != nil {
		return nil, fmt.Errorf("failed to create sequencer: %w", err)
	}

	arena := pipeline.NewArena(v.config.NumChannels, v.config.NumPaths, v.RegisterLength())
	return &Engine{
		cfg:          v,
		opts:         o,
		pipe:         pipe,
		seq:          seq,
		arena:        arena,
		underrunSeen: make([]bool, arena.Len()),
	}, nil
}

// Config returns the validated configuration of the engine.
func (e *Engine) Config() *ValidatedConfig {
	return e.cfg
}

// Process filters a single-path stream. It fails with ErrPathMismatch
// when the engine has more than one path.
func (e *Engine) Process(input []float64) ([]Output, error) {
	out, err := e.ProcessMulti([][]float64{input})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ProcessMulti filters one stream per path. The streams must have equal
// length; samples at the same index share a channel assignment. Inputs
// are quantized to the data format with convergent rounding.
func (e *Engine) ProcessMulti(inputs [][]float64) ([][]Output, error) {
	if err := e.checkShape(len(inputs), func(i int) int { return len(inputs[i]) }); err != nil {
		return nil, err
	}

	raw := make([][]Sample, len(inputs))
	var saturated int64
	for p, in := range inputs {
		raw[p] = make([]Sample, len(in))
		for i, x := range in {
			s, sat := fixed.Quantize(x, e.cfg.dataFormat, fixed.ConvergentEven)
			if sat {
				saturated++
			}
			raw[p][i] = s
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.InputSaturations += saturated
	return e.process(raw), nil
}

// ProcessRaw filters raw samples already in the data format. Values
// outside the format are saturated.
func (e *Engine) ProcessRaw(inputs [][]Sample) ([][]Output, error) {
	if err := e.checkShape(len(inputs), func(i int) int { return len(inputs[i]) }); err != nil {
		return nil, err
	}

	raw := make([][]Sample, len(inputs))
	var saturated int64
	for p, in := range inputs {
		raw[p] = make([]Sample, len(in))
		for i, x := range in {
			s, sat := e.cfg.dataFormat.Saturate(x)
			if sat {
				saturated++
			}
			raw[p][i] = s
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.InputSaturations += saturated
	return e.process(raw), nil
}

func (e *Engine) checkShape(paths int, length func(int) int) error {
	if paths != e.cfg.config.NumPaths {
		return fmt.Errorf("%w: expected %d paths, got %d", ErrPathMismatch, e.cfg.config.NumPaths, paths)
	}
	for p := 1; p < paths; p++ {
		if length(p) != length(0) {
			return fmt.Errorf("%w: path %d has %d samples, path 0 has %d", ErrPathMismatch, p, length(p), length(0))
		}
	}
	return nil
}

// pathResult is what one path produced during a process call.
type pathResult struct {
	outputs   []Output
	events    []Event
	underruns int64
	overflows int64
}

// process runs the stream through every path. Caller holds mu.
func (e *Engine) process(inputs [][]Sample) [][]Output {
	n := len(inputs[0])

	// every path sees the same channel sequence, so assign once
	steps := make([]sequencer.Step, n)
	for i := range steps {
		steps[i] = e.seq.Advance()
	}

	results := make([]pathResult, len(inputs))
	if !e.opts.EnableParallel || len(inputs) <= 1 {
		for p := range inputs {
			results[p] = e.processPath(p, inputs[p], steps)
		}
	} else {
		var wg sync.WaitGroup
		for p := range inputs {
			wg.Add(1)
			go func(path int) {
				defer wg.Done()
				results[path] = e.processPath(path, inputs[path], steps)
			}(p)
		}
		wg.Wait()
	}

	out := make([][]Output, len(inputs))
	for p, r := range results {
		out[p] = r.outputs
		e.stats.Outputs += int64(len(r.outputs))
		e.stats.Underruns += r.underruns
		e.stats.Overflows += r.overflows
		for _, ev := range r.events {
			e.logEvent(ev)
		}
	}
	e.stats.Inputs += int64(n * len(inputs))
	e.inputs += int64(n)
	return out
}

// processPath touches only the states of its own path.
func (e *Engine) processPath(path int, in []Sample, steps []sequencer.Step) pathResult {
	schedule := e.cfg.schedule
	paths := e.cfg.config.NumPaths

	r := pathResult{
		outputs: make([]Output, 0, len(in)*schedule.MaxPhasesPerInput()),
	}
	buf := make([]Sample, 0, schedule.MaxPhasesPerInput())

	for i, x := range in {
		step := steps[i]
		st := e.arena.State(step.Channel, path)
		phases := st.Cursor.Next(schedule)
		res := e.pipe.Push(st, x, e.cfg.banks[step.Bank], phases, buf[:0])

		for j, y := range res.Values {
			r.outputs = append(r.outputs, Output{Channel: step.Channel, Phase: phases[j], Value: y})
		}

		at := e.inputs + int64(i)
		if res.Underrun && len(res.Values) > 0 {
			r.underruns += int64(len(res.Values))
			idx := step.Channel*paths + path
			if !e.underrunSeen[idx] {
				e.underrunSeen[idx] = true
				r.events = append(r.events, Event{Err: ErrChannelUnderrun, Path: path, Channel: step.Channel, Input: at})
			}
		}
		if res.Saturated > 0 {
			r.overflows += int64(res.Saturated)
			r.events = append(r.events, Event{Err: ErrOverflow, Path: path, Channel: step.Channel, Input: at})
		}
	}
	return r
}

func (e *Engine) logEvent(ev Event) {
	if len(e.events) >= e.opts.MaxEvents {
		e.stats.DroppedEvents++
		return
	}
	e.events = append(e.events, ev)
}

// Reload stages a switch of every channel to coefficient set bank. The
// switch takes effect at the next channel-sequence boundary; samples
// before it keep the old set. A rejected request changes nothing.
func (e *Engine) Reload(bank int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.canReload() {
		return fmt.Errorf("%w: %d coefficient set(s), reloadable=%t, config method %v",
			ErrReloadNotSupported, len(e.cfg.banks), e.cfg.config.Reloadable, e.cfg.config.ConfigMethod)
	}
	if err := e.seq.RequestBank(bank); err != nil {
		return err
	}
	e.stats.Reloads++
	return nil
}

// ReloadChannel stages a switch of one channel to coefficient set bank.
// It requires the by-channel config method.
func (e *Engine) ReloadChannel(channel, bank int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.canReload() || e.cfg.config.ConfigMethod != ConfigByChannel {
		return fmt.Errorf("%w: per-channel reload needs config method %v", ErrReloadNotSupported, ConfigByChannel)
	}
	if channel < 0 || channel >= e.cfg.config.NumChannels {
		return fmt.Errorf("%w: channel %d out of range [0, %d)", ErrInvalidChannels, channel, e.cfg.config.NumChannels)
	}
	if err := e.seq.RequestChannelBank(channel, bank); err != nil {
		return err
	}
	e.stats.Reloads++
	return nil
}

func (e *Engine) canReload() bool {
	c := &e.cfg.config
	return len(e.cfg.banks) > 1 && (c.Reloadable || c.ConfigMethod == ConfigByChannel)
}

// ActiveBank returns the coefficient set currently used by channel.
func (e *Engine) ActiveBank(channel int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq.ActiveBank(channel)
}

// Reset returns the channel sequence to its first position. Register
// contents, rate positions and active banks are kept.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq.Reset()
}

// Flush discards all sample history: registers are zeroed, rate cursors
// and the channel sequence return to their first position, and warm-up
// starts again. Active banks, staged reloads and Stats are kept.
func (e *Engine) Flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arena.Clear()
	e.seq.Reset()
	clear(e.underrunSeen)
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Events returns a copy of the logged pipeline events, oldest first.
func (e *Engine) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Event(nil), e.events...)
}

// Float converts an output value to a real number.
func (e *Engine) Float(v Sample) float64 {
	return e.cfg.outputFormat.Float(v)
}

// Floats converts outputs to real numbers, preserving order.
func (e *Engine) Floats(outputs []Output) []float64 {
	out := make([]float64, len(outputs))
	for i, o := range outputs {
		out[i] = e.cfg.outputFormat.Float(o.Value)
	}
	return out
}
