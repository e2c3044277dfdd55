// SPDX-License-Identifier: MIT

// Package pitch estimates the dominant frequency of short blocks of input
// audio. The synthesis engine calls a Detector once per hop from inside
// the audio callback, so implementations must not block or allocate in
// Detect.
package pitch

import (
	"errors"
	"fmt"
)

// DefaultBufferMultiplier sets the analysis window to four hops, so each
// estimate sees the current hop plus the three before it.
const DefaultBufferMultiplier = 4

// ErrInvalidConfig is returned by constructors for unusable parameters.
var ErrInvalidConfig = errors.New("pitch: invalid configuration")

// Detector estimates the dominant frequency, in Hz, of the most recent hop.
type Detector interface {
	// Detect consumes exactly one hop of mono samples and returns the
	// current estimate. Zero means no pitch was found.
	Detect(hop []float32) float64
}

// Config describes the analysis geometry.
type Config struct {
	BufferSize int     // Analysis window length in samples
	HopSize    int     // Samples consumed per Detect call
	Channels   int     // Input channel count (only mono is analysed)
	SampleRate float64 // Hz
}

// NewConfig returns a mono config for the given hop with the default
// buffer multiplier applied.
func NewConfig(hopSize int, sampleRate float64) Config {
	return Config{
		BufferSize: hopSize * DefaultBufferMultiplier,
		HopSize:    hopSize,
		Channels:   1,
		SampleRate: sampleRate,
	}
}

// Validate reports whether the config can build a detector.
func (c Config) Validate() error {
	if c.HopSize < 1 {
		return fmt.Errorf("%w: hop size must be >= 1, got %d", ErrInvalidConfig, c.HopSize)
	}
	if c.BufferSize < c.HopSize {
		return fmt.Errorf("%w: buffer size %d smaller than hop size %d", ErrInvalidConfig, c.BufferSize, c.HopSize)
	}
	if c.Channels != 1 {
		return fmt.Errorf("%w: only mono input is supported, got %d channels", ErrInvalidConfig, c.Channels)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %f", ErrInvalidConfig, c.SampleRate)
	}
	return nil
}

// Factory builds a Detector for a config. The synthesis engine calls it
// whenever the hop size or sample rate changes.
type Factory func(Config) (Detector, error)

// DefaultFactory builds the frequency-comb detector.
func DefaultFactory(cfg Config) (Detector, error) {
	return New(cfg)
}
