// SPDX-License-Identifier: MIT

/*
Package synth implements the real-time synthesis and feedback engine:
- Plays one period of a waveform at a time, driven by the tone table
- Counts input frames into fixed hops and, at each hop boundary,
  advances the tone, detects the input pitch, and paints one pixel
- Publishes hop events and live statistics without blocking

Thread Safety:
- Process is the only method that mutates playback and analysis state,
  and must be called from a single goroutine (the audio callback)
- Reconfiguration (SetSampleRate, SetWindow, SetWaveform) happens on
  other goroutines; new state is built there and handed over through
  atomic pointers that Process adopts at its next call
- Stats, DrainEvents and the Canvas are safe to read concurrently
*/
package synth

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"sonify/internal/colorspace"
	"sonify/internal/pitch"
	"sonify/internal/tone"
	"sonify/pkg/wrap"
)

var (
	// ErrEmptyToneTable is returned when the engine has nothing to play.
	ErrEmptyToneTable = errors.New("synth: tone table is empty")
	// ErrNoCanvas is returned when the engine has nowhere to paint.
	ErrNoCanvas = errors.New("synth: destination canvas is nil")
	// ErrInvalidOptions is returned for unusable engine options.
	ErrInvalidOptions = errors.New("synth: invalid options")
)

// Options configures an Engine.
type Options struct {
	SampleRate         float64      // Hz
	WindowMilliseconds float64      // Hop length in milliseconds
	Waveform           Waveform     // Playback shape; Sine when nil
	Mapping            tone.Mapping // Pitch-to-hue mapping for feedback

	// InvertPlaybackAmplitude plays each tone at 1 - lightness, so bright
	// pixels are quiet. It also applies to the tone played before the
	// first hop.
	InvertPlaybackAmplitude bool
	// InvertFeedbackLightness paints each hop with lightness 1 - peak, so
	// loud input is dark.
	InvertFeedbackLightness bool

	DetectorFactory pitch.Factory // pitch.DefaultFactory when nil
	EventCapacity   int           // DefaultEventCapacity when <= 0
}

// DefaultOptions returns the behaviour of the reference instrument.
func DefaultOptions() Options {
	return Options{
		SampleRate:              44100,
		WindowMilliseconds:      10,
		Waveform:                Sine{},
		Mapping:                 tone.Mapping{Scale: 5000, Floor: 100},
		InvertPlaybackAmplitude: true,
		InvertFeedbackLightness: true,
	}
}

// HopSize returns the number of frames in an analysis window,
// floor(sampleRate * 0.001 * windowMs), never less than one.
func HopSize(sampleRate, windowMs float64) int {
	n := sampleRate * 0.001 * windowMs
	if !(n >= 1) {
		return 1
	}
	return int(n)
}

// analysis is the hop-dependent state. It is built off the real-time
// path and adopted whole by Process.
type analysis struct {
	sampleRate float64
	windowMs   float64
	hopSize    int
	accum      []float32
	detector   pitch.Detector
}

type waveformSlot struct {
	w Waveform
}

// engineStats mirrors the callback's state for concurrent readers.
type engineStats struct {
	hops       atomic.Uint64
	toneIndex  atomic.Int64
	frequency  atomic.Uint64 // float64 bits
	amplitude  atomic.Uint64 // float64 bits
	pitch      atomic.Uint64 // float64 bits
	peak       atomic.Uint64 // float64 bits
	lastColor  atomic.Uint32 // 0xAARRGGBB
	hopSize    atomic.Int64
	sampleRate atomic.Uint64 // float64 bits
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Hops       uint64  // Hop boundaries processed
	ToneIndex  int     // Index of the tone playing
	Frequency  float64 // Hz of the tone playing
	Amplitude  float64 // Playback amplitude of the tone playing
	Pitch      float64 // Last detected input pitch (Hz)
	Peak       float64 // Peak |input| of the last completed hop
	LastColor  uint32  // Last feedback pixel, 0xAARRGGBB
	HopSize    int     // Frames per hop currently in effect
	SampleRate float64 // Hz currently in effect
	Dropped    uint64  // Events lost because the consumer fell behind
	Waveform   string  // Playback shape
}

// Engine owns every piece of state the audio callback touches.
type Engine struct {
	table          *tone.Table
	mapping        tone.Mapping
	invertPlayback bool
	invertFeedback bool
	factory        pitch.Factory

	// Real-time state; Process only.
	cycles    *CycleManager
	spare     *Cycle
	writer    *FeedbackWriter
	toneIndex wrap.Counter
	hop       wrap.Counter
	peak      float64
	an        *analysis
	sequence  uint64

	// Hand-over slots read by Process.
	pending  atomic.Pointer[analysis]
	waveform atomic.Pointer[waveformSlot]

	// Cold-path view of the requested geometry.
	cfgMu      sync.Mutex
	sampleRate float64
	windowMs   float64

	events *eventRing
	stats  engineStats
}

// NewEngine builds an engine that plays table and paints into canvas.
// The first tone is built and active before NewEngine returns.
func NewEngine(table *tone.Table, canvas *Canvas, opts Options) (*Engine, error) {
	if table == nil || table.Len() == 0 {
		return nil, ErrEmptyToneTable
	}
	if canvas == nil {
		return nil, ErrNoCanvas
	}
	if opts.Mapping.Scale <= 0 {
		return nil, fmt.Errorf("%w: frequency scale must be positive, got %g", ErrInvalidOptions, opts.Mapping.Scale)
	}
	if opts.Waveform == nil {
		opts.Waveform = Sine{}
	}
	if opts.DetectorFactory == nil {
		opts.DetectorFactory = pitch.DefaultFactory
	}
	if opts.EventCapacity <= 0 {
		opts.EventCapacity = DefaultEventCapacity
	}

	e := &Engine{
		table:          table,
		mapping:        opts.Mapping,
		invertPlayback: opts.InvertPlaybackAmplitude,
		invertFeedback: opts.InvertFeedbackLightness,
		factory:        opts.DetectorFactory,
		writer:         NewFeedbackWriter(canvas),
		toneIndex:      wrap.NewCounter(table.Len()),
		sampleRate:     opts.SampleRate,
		windowMs:       opts.WindowMilliseconds,
		events:         newEventRing(opts.EventCapacity),
	}
	e.waveform.Store(&waveformSlot{w: opts.Waveform})

	an, err := e.buildAnalysis(opts.SampleRate, opts.WindowMilliseconds)
	if err != nil {
		return nil, err
	}
	e.adopt(an)

	first := table.At(0)
	amp := e.playbackAmplitude(first.Amplitude)
	e.cycles = NewCycleManager(BuildCycle(first.Frequency, amp, opts.Waveform, an.sampleRate))
	e.publishTone(0, first.Frequency, amp)

	return e, nil
}

// Process is the audio callback. For every frame it plays one sample of
// the active cycle into out, accumulates the matching input sample, and
// runs the hop boundary when a full hop has been collected. Missing
// input frames count as silence. Process must not be called concurrently.
func (e *Engine) Process(in, out []float32) {
	if next := e.pending.Swap(nil); next != nil {
		e.adopt(next)
		e.rebuildActive()
	}

	frames := max(len(in), len(out))
	for i := 0; i < frames; i++ {
		s := e.cycles.Next()
		if i < len(out) {
			out[i] = s
		}

		var x float32
		if i < len(in) {
			x = in[i]
		}
		e.an.accum[e.hop.Value()] = x
		if a := math.Abs(float64(x)); a > e.peak {
			e.peak = a
		}

		if e.hop.Advance() {
			e.boundary()
		}
	}
}

// boundary runs once per hop, in order: advance the tone, rebuild and
// swap the cycle, detect the pitch of the finished hop, convert it to a
// colour, paint it, and reset the peak. The hop counter has already
// wrapped to zero.
func (e *Engine) boundary() {
	an := e.an

	e.toneIndex.Advance()
	idx := e.toneIndex.Value()
	entry := e.table.At(idx)
	amp := e.playbackAmplitude(entry.Amplitude)
	w := e.waveform.Load().w
	next := BuildCycleInto(e.spare, entry.Frequency, amp, w, an.sampleRate)
	e.spare = e.cycles.Swap(next)

	detected := an.detector.Detect(an.accum)

	peak := math.Min(e.peak, 1)
	h, s, l := colorspace.PitchAmplitudeToHSL(detected, peak, e.mapping.Scale, e.mapping.Floor)
	if e.invertFeedback {
		l = 1 - l
	}
	r, g, b := colorspace.HSLToRGB(h, s, l)
	px := e.writer.WritePixel(r, g, b)

	e.sequence++
	e.stats.hops.Store(e.sequence)
	e.publishTone(idx, entry.Frequency, amp)
	e.stats.pitch.Store(math.Float64bits(detected))
	e.stats.peak.Store(math.Float64bits(e.peak))
	e.stats.lastColor.Store(pack(px.Color))
	e.events.push(FeedbackEvent{
		Sequence:  e.sequence,
		ToneIndex: idx,
		Frequency: entry.Frequency,
		Amplitude: amp,
		Pitch:     detected,
		Peak:      e.peak,
		X:         px.X,
		Y:         px.Y,
		R:         px.Color.R,
		G:         px.Color.G,
		B:         px.Color.B,
	})

	e.peak = 0
}

func (e *Engine) playbackAmplitude(lightness float64) float64 {
	if e.invertPlayback {
		return 1 - lightness
	}
	return lightness
}

func (e *Engine) publishTone(idx int, frequency, amplitude float64) {
	e.stats.toneIndex.Store(int64(idx))
	e.stats.frequency.Store(math.Float64bits(frequency))
	e.stats.amplitude.Store(math.Float64bits(amplitude))
}

// adopt installs a new analysis state and restarts the hop.
func (e *Engine) adopt(an *analysis) {
	e.an = an
	e.hop.SetLimit(an.hopSize)
	e.peak = 0
	e.stats.hopSize.Store(int64(an.hopSize))
	e.stats.sampleRate.Store(math.Float64bits(an.sampleRate))
}

// rebuildActive re-renders the playing tone when the sample rate changed
// under it, so its pitch stays correct until the next hop.
func (e *Engine) rebuildActive() {
	active := e.cycles.Active()
	if CycleLength(active.Frequency(), e.an.sampleRate) == active.Len() {
		return
	}
	next := BuildCycleInto(e.spare, active.Frequency(), active.Amplitude(), active.Waveform(), e.an.sampleRate)
	e.spare = e.cycles.Swap(next)
}

func (e *Engine) buildAnalysis(sampleRate, windowMs float64) (*analysis, error) {
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidOptions, sampleRate)
	}
	if !(windowMs > 0) {
		return nil, fmt.Errorf("%w: analysis window must be positive, got %g ms", ErrInvalidOptions, windowMs)
	}

	hop := HopSize(sampleRate, windowMs)
	detector, err := e.factory(pitch.NewConfig(hop, sampleRate))
	if err != nil {
		return nil, fmt.Errorf("failed to build pitch detector: %w", err)
	}
	return &analysis{
		sampleRate: sampleRate,
		windowMs:   windowMs,
		hopSize:    hop,
		accum:      make([]float32, hop),
		detector:   detector,
	}, nil
}

// SetSampleRate rebuilds the hop-dependent state for a new sample rate.
// The change takes effect at the start of the next Process call.
func (e *Engine) SetSampleRate(sampleRate float64) error {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()

	an, err := e.buildAnalysis(sampleRate, e.windowMs)
	if err != nil {
		return err
	}
	e.sampleRate = sampleRate
	e.pending.Store(an)
	return nil
}

// SetWindow changes the analysis window length in milliseconds. The
// change takes effect at the start of the next Process call.
func (e *Engine) SetWindow(windowMs float64) error {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()

	an, err := e.buildAnalysis(e.sampleRate, windowMs)
	if err != nil {
		return err
	}
	e.windowMs = windowMs
	e.pending.Store(an)
	return nil
}

// Window returns the analysis window length in milliseconds most recently
// configured.
func (e *Engine) Window() float64 {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	return e.windowMs
}

// SetWaveform changes the playback shape from the next hop boundary on.
func (e *Engine) SetWaveform(w Waveform) {
	if w == nil {
		w = Sine{}
	}
	e.waveform.Store(&waveformSlot{w: w})
}

// Waveform returns the playback shape used for the next hop.
func (e *Engine) Waveform() Waveform {
	return e.waveform.Load().w
}

// Canvas returns the destination canvas.
func (e *Engine) Canvas() *Canvas {
	return e.writer.Canvas()
}

// Table returns the tone table being played.
func (e *Engine) Table() *tone.Table {
	return e.table
}

// DrainEvents copies pending hop events into dst and returns how many were
// copied. It must be called from a single consumer goroutine.
func (e *Engine) DrainEvents(dst []FeedbackEvent) int {
	return e.events.drain(dst)
}

// Stats returns a snapshot of the engine's live state.
func (e *Engine) Stats() Stats {
	return Stats{
		Hops:       e.stats.hops.Load(),
		ToneIndex:  int(e.stats.toneIndex.Load()),
		Frequency:  math.Float64frombits(e.stats.frequency.Load()),
		Amplitude:  math.Float64frombits(e.stats.amplitude.Load()),
		Pitch:      math.Float64frombits(e.stats.pitch.Load()),
		Peak:       math.Float64frombits(e.stats.peak.Load()),
		LastColor:  e.stats.lastColor.Load(),
		HopSize:    int(e.stats.hopSize.Load()),
		SampleRate: math.Float64frombits(e.stats.sampleRate.Load()),
		Dropped:    e.events.dropped.Load(),
		Waveform:   e.Waveform().String(),
	}
}
