// SPDX-License-Identifier: MIT
package synth

import (
	"fmt"
	"math"
	"strings"
)

// Waveform is one of the closed set of periodic shapes the oscillator can
// render: Sine, Square, Triangle, Sawtooth. The unexported method keeps
// the set closed to this package.
type Waveform interface {
	// Sample returns the unit-amplitude value at index i of a cycle of
	// the given length.
	Sample(i, length int) float64
	String() string
	waveform()
}

type (
	Sine     struct{}
	Square   struct{}
	Triangle struct{}
	Sawtooth struct{}
)

// Waveforms lists every variant, in the order the command line documents
// them.
var Waveforms = []Waveform{Sine{}, Square{}, Triangle{}, Sawtooth{}}

func phase(i, length int) float64 {
	return float64(i) * 2 * math.Pi / float64(length)
}

func (Sine) Sample(i, length int) float64 {
	return math.Sin(phase(i, length))
}

// Sample is sign(sin(angle)) with sign(0) = 0.
func (Square) Sample(i, length int) float64 {
	s := math.Sin(phase(i, length))
	switch {
	case s > 0:
		return 1
	case s < 0:
		return -1
	default:
		return 0
	}
}

func (Triangle) Sample(i, length int) float64 {
	return math.Asin(math.Sin(phase(i, length))) / (math.Pi / 2)
}

func (Sawtooth) Sample(i, length int) float64 {
	x := float64(i) / float64(length)
	return 2*(x-math.Floor(x)) - 1
}

func (Sine) String() string     { return "sine" }
func (Square) String() string   { return "square" }
func (Triangle) String() string { return "tri" }
func (Sawtooth) String() string { return "saw" }

func (Sine) waveform()     {}
func (Square) waveform()   {}
func (Triangle) waveform() {}
func (Sawtooth) waveform() {}

// ParseWaveform converts a name (case-insensitive) to a Waveform. It
// accepts the short names used on the command line and the long forms.
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine{}, nil
	case "square", "sq":
		return Square{}, nil
	case "tri", "triangle":
		return Triangle{}, nil
	case "saw", "sawtooth":
		return Sawtooth{}, nil
	default:
		return nil, fmt.Errorf("unknown waveform: '%s' (want sine, square, tri or saw)", name)
	}
}
