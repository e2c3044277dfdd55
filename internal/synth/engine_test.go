// SPDX-License-Identifier: MIT
package synth

import (
	"errors"
	"math"
	"testing"

	"sonify/internal/colorspace"
	"sonify/internal/pitch"
	"sonify/internal/tone"
	"sonify/pkg/utils"
)

// countingDetector records every hop it is handed and reports a fixed pitch.
type countingDetector struct {
	calls   int
	pitch   float64
	lastHop []float32
	configs []pitch.Config
}

func (d *countingDetector) Detect(hop []float32) float64 {
	d.calls++
	d.lastHop = append(d.lastHop[:0], hop...)
	return d.pitch
}

func (d *countingDetector) factory(cfg pitch.Config) (pitch.Detector, error) {
	d.configs = append(d.configs, cfg)
	return d, nil
}

var testEntries = []tone.Entry{
	{Frequency: 100, Amplitude: 0.25},
	{Frequency: 200, Amplitude: 0.2},
	{Frequency: 500, Amplitude: 0.75},
}

// newTestEngine returns an engine with a 10-frame hop (10kHz, 1ms).
func newTestEngine(t *testing.T, canvas *Canvas, mutate func(*Options)) (*Engine, *countingDetector) {
	t.Helper()

	table, err := tone.FromEntries(testEntries)
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	if canvas == nil {
		canvas = NewCanvas(4, 2)
	}

	d := &countingDetector{pitch: 1100}
	opts := DefaultOptions()
	opts.SampleRate = 10000
	opts.WindowMilliseconds = 1
	opts.DetectorFactory = d.factory
	if mutate != nil {
		mutate(&opts)
	}

	e, err := NewEngine(table, canvas, opts)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e, d
}

func constant(n int, v float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func TestHopSize(t *testing.T) {
	tests := []struct {
		sampleRate, windowMs float64
		expected             int
	}{
		{10000, 1, 10},
		{48000, 10, 480},
		{8000, 2.5, 20},
		{8000, 0.01, 1}, // Below one frame
		{44100, 0, 1},
	}
	for _, tt := range tests {
		if got := HopSize(tt.sampleRate, tt.windowMs); got != tt.expected {
			t.Errorf("HopSize(%g, %g) = %d, expected %d", tt.sampleRate, tt.windowMs, got, tt.expected)
		}
	}
}

func TestNewEngineErrors(t *testing.T) {
	table, _ := tone.FromEntries(testEntries)
	canvas := NewCanvas(1, 1)

	if _, err := NewEngine(nil, canvas, DefaultOptions()); !errors.Is(err, ErrEmptyToneTable) {
		t.Errorf("nil table: got %v, expected ErrEmptyToneTable", err)
	}
	if _, err := NewEngine(table, nil, DefaultOptions()); !errors.Is(err, ErrNoCanvas) {
		t.Errorf("nil canvas: got %v, expected ErrNoCanvas", err)
	}

	opts := DefaultOptions()
	opts.Mapping.Scale = 0
	if _, err := NewEngine(table, canvas, opts); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("zero scale: got %v, expected ErrInvalidOptions", err)
	}

	opts = DefaultOptions()
	opts.SampleRate = 0
	if _, err := NewEngine(table, canvas, opts); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("zero sample rate: got %v, expected ErrInvalidOptions", err)
	}

	opts = DefaultOptions()
	opts.DetectorFactory = func(pitch.Config) (pitch.Detector, error) {
		return nil, pitch.ErrInvalidConfig
	}
	if _, err := NewEngine(table, canvas, opts); !errors.Is(err, pitch.ErrInvalidConfig) {
		t.Errorf("factory failure: got %v, expected wrapped ErrInvalidConfig", err)
	}
}

func TestNewEngineInitialTone(t *testing.T) {
	e, d := newTestEngine(t, nil, nil)

	active := e.cycles.Active()
	if active.Frequency() != 100 || active.Len() != 100 {
		t.Errorf("initial cycle = %g Hz / %d samples, expected 100 Hz / 100", active.Frequency(), active.Len())
	}
	if active.Amplitude() != 0.75 {
		t.Errorf("initial amplitude = %g, expected inverted 0.75", active.Amplitude())
	}
	if len(d.configs) != 1 || d.configs[0].HopSize != 10 || d.configs[0].BufferSize != 40 {
		t.Errorf("detector configs = %+v, expected one with hop 10 buffer 40", d.configs)
	}

	s := e.Stats()
	if s.HopSize != 10 || s.SampleRate != 10000 || s.ToneIndex != 0 || s.Hops != 0 {
		t.Errorf("initial stats = %+v", s)
	}
}

func TestProcessHopBoundary(t *testing.T) {
	e, d := newTestEngine(t, nil, nil)
	in := constant(10, 0.25)
	in[3] = -0.5
	out := make([]float32, 10)

	e.Process(in[:9], out[:9])
	if d.calls != 0 || e.Stats().Hops != 0 || e.Stats().ToneIndex != 0 {
		t.Fatalf("boundary fired early: calls=%d stats=%+v", d.calls, e.Stats())
	}
	if e.hop.Value() != 9 || e.peak != 0.5 {
		t.Fatalf("after 9 frames hop=%d peak=%g, expected 9 and 0.5", e.hop.Value(), e.peak)
	}

	e.Process(in[9:], out[9:])

	if d.calls != 1 {
		t.Errorf("detector calls = %d, expected 1", d.calls)
	}
	if len(d.lastHop) != 10 {
		t.Fatalf("detector saw %d samples, expected 10", len(d.lastHop))
	}
	for i := range in {
		if d.lastHop[i] != in[i] {
			t.Errorf("hop sample %d = %f, expected %f", i, d.lastHop[i], in[i])
		}
	}
	if e.toneIndex.Value() != 1 {
		t.Errorf("tone index = %d, expected 1", e.toneIndex.Value())
	}
	if x, y := e.writer.Position(); x != 1 || y != 0 {
		t.Errorf("raster position = (%d, %d), expected (1, 0)", x, y)
	}
	if e.hop.Value() != 0 || e.peak != 0 {
		t.Errorf("hop=%d peak=%g after boundary, expected both reset", e.hop.Value(), e.peak)
	}

	active := e.cycles.Active()
	if active.Frequency() != 200 || active.Len() != 50 {
		t.Errorf("active cycle = %g Hz / %d samples, expected 200 Hz / 50", active.Frequency(), active.Len())
	}
	if math.Abs(active.Amplitude()-0.8) > 1e-12 {
		t.Errorf("active amplitude = %g, expected 1 - 0.2", active.Amplitude())
	}
	if e.cycles.Cursor() != 0 {
		t.Errorf("cursor = %d, expected 0 after swap", e.cycles.Cursor())
	}
}

func TestProcessFeedbackColour(t *testing.T) {
	tests := []struct {
		name      string
		invert    bool
		lightness float64
	}{
		{"inverted", true, 0.75},
		{"direct", false, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canvas := NewCanvas(4, 2)
			e, _ := newTestEngine(t, canvas, func(o *Options) {
				o.InvertFeedbackLightness = tt.invert
			})
			e.Process(constant(10, 0.25), make([]float32, 10))

			// Pitch 1100 Hz with floor 100 and scale 5000 is hue 0.2.
			expected := colorspace.ToRGBA(colorspace.HSLToRGB(0.2, 1, tt.lightness))
			if got := canvas.RGBAAt(0, 0); got != expected {
				t.Errorf("pixel (0, 0) = %v, expected %v", got, expected)
			}
			if got := e.Stats().LastColor; got != pack(expected) {
				t.Errorf("Stats().LastColor = %#x, expected %#x", got, pack(expected))
			}
		})
	}
}

func TestProcessPlaybackAmplitudePolicy(t *testing.T) {
	e, _ := newTestEngine(t, nil, func(o *Options) {
		o.InvertPlaybackAmplitude = false
	})
	if e.cycles.Active().Amplitude() != 0.25 {
		t.Errorf("initial amplitude = %g, expected 0.25", e.cycles.Active().Amplitude())
	}
	e.Process(nil, make([]float32, 10))
	if e.cycles.Active().Amplitude() != 0.2 {
		t.Errorf("amplitude after boundary = %g, expected 0.2", e.cycles.Active().Amplitude())
	}
}

func TestProcessOutputFollowsCycle(t *testing.T) {
	e, _ := newTestEngine(t, nil, func(o *Options) {
		o.Waveform = Sawtooth{}
	})
	first := BuildCycle(100, 0.75, Sawtooth{}, 10000)

	out := make([]float32, 11)
	e.Process(make([]float32, 11), out)

	for i := 0; i < 10; i++ {
		if out[i] != first.At(i) {
			t.Errorf("out[%d] = %f, expected %f", i, out[i], first.At(i))
		}
	}
	// Frame 10 plays the first sample of the 200 Hz cycle.
	if math.Abs(float64(out[10])+0.8) > 1e-6 {
		t.Errorf("out[10] = %f, expected -0.8", out[10])
	}
}

func TestProcessMissingInputIsSilence(t *testing.T) {
	e, d := newTestEngine(t, nil, nil)
	e.Process(constant(4, 1), make([]float32, 10))

	if d.calls != 1 {
		t.Fatalf("detector calls = %d, expected 1", d.calls)
	}
	for i := 4; i < 10; i++ {
		if d.lastHop[i] != 0 {
			t.Errorf("hop sample %d = %f, expected silence", i, d.lastHop[i])
		}
	}
}

func TestProcessToneIndexWraps(t *testing.T) {
	e, d := newTestEngine(t, nil, nil)
	e.Process(nil, make([]float32, 30))

	if d.calls != 3 {
		t.Errorf("detector calls = %d, expected 3", d.calls)
	}
	s := e.Stats()
	if s.ToneIndex != 0 || s.Frequency != 100 {
		t.Errorf("after 3 hops tone = %d (%g Hz), expected 0 (100 Hz)", s.ToneIndex, s.Frequency)
	}

	e.Process(nil, make([]float32, 10))
	if e.Stats().ToneIndex != 1 {
		t.Errorf("after 4 hops tone = %d, expected 1", e.Stats().ToneIndex)
	}
}

func TestProcessRasterWraps(t *testing.T) {
	e, _ := newTestEngine(t, NewCanvas(2, 1), nil)

	// 2 columns x 4 logical rows, then back to the origin.
	e.Process(nil, make([]float32, 80))
	if x, y := e.writer.Position(); x != 0 || y != 0 {
		t.Errorf("raster position after 8 hops = (%d, %d), expected (0, 0)", x, y)
	}

	events := make([]FeedbackEvent, 16)
	n := e.DrainEvents(events)
	if n != 8 {
		t.Fatalf("drained %d events, expected 8", n)
	}
	for i, ev := range events[:n] {
		if ev.X != i%2 || ev.Y != i/2 {
			t.Errorf("event %d at (%d, %d), expected (%d, %d)", i, ev.X, ev.Y, i%2, i/2)
		}
	}
}

func TestProcessEvents(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil)
	e.Process(constant(20, 0.5), make([]float32, 20))

	events := make([]FeedbackEvent, 4)
	n := e.DrainEvents(events)
	if n != 2 {
		t.Fatalf("drained %d events, expected 2", n)
	}

	first := events[0]
	if first.Sequence != 1 || first.ToneIndex != 1 || first.Frequency != 200 {
		t.Errorf("first event = %+v", first)
	}
	if first.Pitch != 1100 || first.Peak != 0.5 {
		t.Errorf("first event pitch/peak = %g/%g, expected 1100/0.5", first.Pitch, first.Peak)
	}
	if events[1].Sequence != 2 || events[1].ToneIndex != 2 {
		t.Errorf("second event = %+v", events[1])
	}
	if e.DrainEvents(events) != 0 {
		t.Error("events should be consumed by DrainEvents")
	}
}

func TestProcessEventOverflowIsCounted(t *testing.T) {
	e, _ := newTestEngine(t, nil, func(o *Options) {
		o.EventCapacity = 2
	})
	e.Process(nil, make([]float32, 50))

	if got := e.Stats().Dropped; got != 3 {
		t.Errorf("Dropped = %d, expected 3", got)
	}
	if got := e.Stats().Hops; got != 5 {
		t.Errorf("Hops = %d, expected 5", got)
	}
}

func TestSetWindowTakesEffectOnNextProcess(t *testing.T) {
	e, d := newTestEngine(t, nil, nil)
	e.Process(nil, make([]float32, 5))

	if err := e.SetWindow(2); err != nil {
		t.Fatalf("SetWindow failed: %v", err)
	}
	if e.Stats().HopSize != 10 {
		t.Errorf("hop size changed before Process: %d", e.Stats().HopSize)
	}
	if e.Window() != 2 {
		t.Errorf("Window() = %g, expected 2", e.Window())
	}

	// The partial hop is discarded; a full 20-frame hop follows.
	e.Process(nil, make([]float32, 19))
	if d.calls != 0 {
		t.Fatalf("boundary fired after 19 frames of a 20-frame hop")
	}
	e.Process(nil, make([]float32, 1))
	if d.calls != 1 {
		t.Errorf("detector calls = %d, expected 1", d.calls)
	}

	if e.Stats().HopSize != 20 {
		t.Errorf("HopSize = %d, expected 20", e.Stats().HopSize)
	}
	last := d.configs[len(d.configs)-1]
	if last.HopSize != 20 || last.BufferSize != 80 {
		t.Errorf("rebuilt detector config = %+v", last)
	}
}

func TestSetSampleRateRebuildsActiveCycle(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil)
	if err := e.SetSampleRate(20000); err != nil {
		t.Fatalf("SetSampleRate failed: %v", err)
	}
	e.Process(nil, nil)

	s := e.Stats()
	if s.SampleRate != 20000 || s.HopSize != 20 {
		t.Errorf("stats after SetSampleRate = %+v", s)
	}
	if got := e.cycles.Active().Len(); got != 200 {
		t.Errorf("active cycle length = %d, expected 200 at 20kHz", got)
	}
}

func TestReconfigureRejectsInvalidValues(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil)
	if err := e.SetWindow(0); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("SetWindow(0) = %v, expected ErrInvalidOptions", err)
	}
	if err := e.SetSampleRate(-1); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("SetSampleRate(-1) = %v, expected ErrInvalidOptions", err)
	}
	e.Process(nil, nil)
	if e.Stats().HopSize != 10 {
		t.Errorf("rejected change was applied: hop %d", e.Stats().HopSize)
	}
}

func TestSetWaveformAppliesAtBoundary(t *testing.T) {
	e, _ := newTestEngine(t, nil, nil)
	e.SetWaveform(Square{})

	if e.cycles.Active().Waveform() != (Sine{}) {
		t.Error("active cycle changed before the boundary")
	}
	e.Process(nil, make([]float32, 10))
	if e.cycles.Active().Waveform() != (Square{}) {
		t.Errorf("active waveform = %v, expected square", e.cycles.Active().Waveform())
	}
	if e.Stats().Waveform != "square" {
		t.Errorf("Stats().Waveform = %q", e.Stats().Waveform)
	}
}

func newRealtimeEngine(tb testing.TB) *Engine {
	tb.Helper()
	table, err := tone.FromEntries([]tone.Entry{
		{Frequency: 440, Amplitude: 0.5},
		{Frequency: 220, Amplitude: 0.3},
	})
	if err != nil {
		tb.Fatalf("FromEntries failed: %v", err)
	}
	opts := DefaultOptions()
	opts.SampleRate = 44100
	opts.WindowMilliseconds = 10
	e, err := NewEngine(table, NewCanvas(32, 32), opts)
	if err != nil {
		tb.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func TestProcessZeroAllocs(t *testing.T) {
	e := newRealtimeEngine(t)
	in := utils.GenerateSineWave(512, 44100, 330)
	out := make([]float32, 512)

	// Warm up until both cycle buffers have been sized.
	for range 8 {
		e.Process(in, out)
	}

	allocs := testing.AllocsPerRun(100, func() {
		e.Process(in, out)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Process, got %.1f", allocs)
	}
	if e.Stats().Hops == 0 {
		t.Error("no hop boundaries were crossed")
	}
}

func BenchmarkProcess(b *testing.B) {
	e := newRealtimeEngine(b)
	in := utils.GenerateSineWave(512, 44100, 330)
	out := make([]float32, 512)

	b.ReportAllocs()
	for b.Loop() {
		e.Process(in, out)
	}
}
