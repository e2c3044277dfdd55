// SPDX-License-Identifier: MIT
package synth

import (
	"sync/atomic"

	"sonify/pkg/wrap"
)

// Cycle is one fully built period of a waveform. A Cycle is never
// modified while it is active.
type Cycle struct {
	samples   []float32
	frequency float64
	amplitude float64
	waveform  Waveform
}

// Len returns the number of samples in the period.
func (c *Cycle) Len() int {
	return len(c.samples)
}

// At returns sample i.
func (c *Cycle) At(i int) float32 {
	return c.samples[i]
}

// Frequency returns the frequency the cycle was built for.
func (c *Cycle) Frequency() float64 {
	return c.frequency
}

// Amplitude returns the peak amplitude the cycle was built for.
func (c *Cycle) Amplitude() float64 {
	return c.amplitude
}

// Waveform returns the shape the cycle was built with.
func (c *Cycle) Waveform() Waveform {
	return c.waveform
}

// CycleManager owns the active cycle and the playback cursor into it.
//
// The active cycle is published through an atomic pointer: Swap hands a
// completely built cycle over in a single store, so a reader can never
// observe a partially built buffer. The manager has a single writer and a
// single reader, both the audio callback. Retired cycles are recycled by
// the writer, so other goroutines must not hold on to Active.
type CycleManager struct {
	active atomic.Pointer[Cycle]
	cursor wrap.Counter
}

// NewCycleManager returns a manager playing initial.
func NewCycleManager(initial *Cycle) *CycleManager {
	m := &CycleManager{}
	m.Swap(initial)
	return m
}

// Swap makes next the active cycle, resets the playback cursor to zero,
// and returns the retired cycle. The caller takes ownership of the
// returned cycle and may rebuild into it; it must not keep using next.
func (m *CycleManager) Swap(next *Cycle) (retired *Cycle) {
	retired = m.active.Swap(next)
	m.cursor.SetLimit(next.Len())
	return retired
}

// Next returns the sample under the cursor and advances it, wrapping at
// the end of the period.
func (m *CycleManager) Next() float32 {
	c := m.active.Load()
	s := c.samples[m.cursor.Value()]
	m.cursor.Advance()
	return s
}

// Active returns the cycle currently being played.
func (m *CycleManager) Active() *Cycle {
	return m.active.Load()
}

// Cursor returns the playback offset into the active cycle.
func (m *CycleManager) Cursor() int {
	return m.cursor.Value()
}
