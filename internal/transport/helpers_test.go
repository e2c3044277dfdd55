// SPDX-License-Identifier: MIT
package transport

import (
	"testing"

	"sonify/internal/synth"
	"sonify/internal/tone"
)

// newEngine builds a small engine with a 10 frame hop.
func newEngine(t *testing.T) *synth.Engine {
	t.Helper()
	table, err := tone.FromEntries([]tone.Entry{{Frequency: 100, Amplitude: 0.5}, {Frequency: 200, Amplitude: 0.25}})
	if err != nil {
		t.Fatalf("FromEntries failed: %v", err)
	}
	opts := synth.DefaultOptions()
	opts.SampleRate = 10000
	opts.WindowMilliseconds = 1
	eng, err := synth.NewEngine(table, synth.NewCanvas(4, 2), opts)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return eng
}
