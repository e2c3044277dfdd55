// SPDX-License-Identifier: MIT
/*
Package audio connects the synthesis engine to the outside world:
- A PortAudio duplex stream that drives synth.Engine from its callback
- Device discovery and selection
- Decoded audio files (WAV, MP3, Ogg Vorbis) for offline rendering

Thread Safety:
- The stream callback is the only caller of synth.Engine.Process
- Buffers are pre-allocated so the callback never allocates
- The callback locks its OS thread while it runs
*/
package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"sonify/internal/config"
	"sonify/internal/log"
	"sonify/internal/synth"

	"github.com/gordonklaus/portaudio"
)

// Engine owns the PortAudio stream feeding a synth.Engine.
type Engine struct {
	config *config.AudioConfig
	synth  *synth.Engine

	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream

	// Mono views of the interleaved stream buffers.
	monoIn  []float32
	monoOut []float32

	// Noise gate on the analysed input.
	gateEnabled   bool
	gateThreshold float32

	callbacks atomic.Uint64
	gated     atomic.Uint64
}

// NewEngine resolves the configured devices. PortAudio must be initialized.
func NewEngine(cfg *config.AudioConfig, s *synth.Engine) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	outputDevice, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}

	engine := newEngine(cfg, s)
	engine.inputDevice = inputDevice
	engine.outputDevice = outputDevice

	if cfg.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
		engine.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
		engine.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	return engine, nil
}

// newEngine allocates the callback buffers without touching PortAudio.
func newEngine(cfg *config.AudioConfig, s *synth.Engine) *Engine {
	e := &Engine{
		config:  cfg,
		synth:   s,
		monoIn:  make([]float32, cfg.FramesPerBuffer),
		monoOut: make([]float32, cfg.FramesPerBuffer),
	}
	e.SetGateThreshold(cfg.GateThreshold)
	return e
}

// Start opens and starts the duplex stream. When the device runs at a
// different rate than requested, the synthesis engine is retuned before
// the first callback.
func (e *Engine) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   e.inputDevice,
			Channels: e.config.InputChannels,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   e.outputDevice,
			Channels: e.config.OutputChannels,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	e.stream = stream

	if actual := stream.Info().SampleRate; actual > 0 && actual != e.config.SampleRate {
		log.Warnf("Audio: device runs at %.0f Hz (requested %.0f Hz)", actual, e.config.SampleRate)
		if err := e.synth.SetSampleRate(actual); err != nil {
			e.stream.Close()
			e.stream = nil
			return err
		}
	}

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		e.stream = nil
		return fmt.Errorf("failed to start stream: %w", err)
	}

	log.Infof("Audio: streaming in=%s out=%s, %d frames/buffer",
		e.inputDevice.Name, e.outputDevice.Name, e.config.FramesPerBuffer)
	return nil
}

// Stop halts the callback and releases the stream. Safe to call twice.
func (e *Engine) Stop() error {
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return err
	}
	if err := e.stream.Close(); err != nil {
		return err
	}
	e.stream = nil
	return nil
}

// Close stops the stream.
func (e *Engine) Close() error {
	return e.Stop()
}

// Callbacks returns how many buffers the stream has delivered.
func (e *Engine) Callbacks() uint64 {
	return e.callbacks.Load()
}

// processStream is the PortAudio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processStream(in, out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	inCh := max(e.config.InputChannels, 1)
	outCh := max(e.config.OutputChannels, 1)

	frames := min(len(out)/outCh, len(e.monoOut))
	if frames == 0 {
		frames = min(len(in)/inCh, len(e.monoIn))
	}

	// --- 1. Prepare Input ---
	n := deinterleave(e.monoIn[:frames], in, inCh)
	input := e.monoIn[:n]
	if e.gateEnabled && !gateOpen(input, e.gateThreshold) {
		clear(input)
		e.gated.Add(1)
	}

	// --- 2. Synthesize & Analyse ---
	e.synth.Process(input, e.monoOut[:frames])

	// --- 3. Fan Out ---
	fanOut(out, e.monoOut[:frames], outCh)

	e.callbacks.Add(1)
}

// deinterleave copies channel 0 of src into dst and returns the number of
// frames copied.
func deinterleave(dst, src []float32, channels int) int {
	frames := min(len(dst), len(src)/channels)
	if channels == 1 {
		return copy(dst, src[:frames])
	}
	for i := range frames {
		dst[i] = src[i*channels]
	}
	return frames
}

// fanOut copies each mono sample to every channel of dst. Frames of dst
// beyond src are silenced.
func fanOut(dst, src []float32, channels int) {
	frames := len(dst) / channels
	for i := range frames {
		var s float32
		if i < len(src) {
			s = src[i]
		}
		base := i * channels
		for c := range channels {
			dst[base+c] = s
		}
	}
}
