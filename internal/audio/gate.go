// SPDX-License-Identifier: MIT
package audio

// The noise gate silences input buffers whose peak stays under the
// threshold, so room noise is not detected as pitch.

func (e *Engine) EnableGate() {
	e.gateEnabled = true
}

func (e *Engine) DisableGate() {
	e.gateEnabled = false
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
// Enabling a threshold above zero also enables the gate.
func (e *Engine) SetGateThreshold(threshold float64) {
	threshold = min(max(threshold, 0), 1)
	e.gateThreshold = float32(threshold)
	e.gateEnabled = threshold > 0
}

// GetGateThreshold returns the current noise gate threshold.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.gateThreshold)
}

// GatedBuffers returns how many input buffers the gate has silenced.
func (e *Engine) GatedBuffers() uint64 {
	return e.gated.Load()
}

// gateOpen reports whether any sample of buf reaches threshold.
func gateOpen(buf []float32, threshold float32) bool {
	for _, s := range buf {
		if s >= threshold || -s >= threshold {
			return true
		}
	}
	return false
}
