// SPDX-License-Identifier: MIT
package synth

// CycleLength returns the number of samples in one period of frequency at
// sampleRate, floor(sampleRate/frequency), clamped to at least one sample.
// Non-positive, NaN or tiny frequencies that would produce a zero, negative
// or unbounded length are clamped rather than rejected.
func CycleLength(frequency, sampleRate float64) int {
	if !(frequency > 0) || !(sampleRate > 0) {
		return 1
	}
	n := sampleRate / frequency
	if n < 1 {
		return 1
	}
	if n > maxCycleLength {
		return maxCycleLength
	}
	return int(n)
}

// maxCycleLength caps one period at ten seconds of 192kHz audio so a
// near-zero frequency cannot request an unbounded buffer. Below about
// 0.023 Hz at 44.1kHz the cycle is therefore shorter than floor(sr/f).
const maxCycleLength = 192000 * 10

// BuildCycle renders exactly one period of w at the given frequency and
// amplitude. The result is deterministic for identical inputs.
func BuildCycle(frequency, amplitude float64, w Waveform, sampleRate float64) *Cycle {
	return BuildCycleInto(nil, frequency, amplitude, w, sampleRate)
}

// BuildCycleInto is BuildCycle reusing the storage of spare when it is
// large enough. spare must not be active or referenced elsewhere.
func BuildCycleInto(spare *Cycle, frequency, amplitude float64, w Waveform, sampleRate float64) *Cycle {
	length := CycleLength(frequency, sampleRate)

	var samples []float32
	if spare != nil && cap(spare.samples) >= length {
		samples = spare.samples[:length]
	} else {
		samples = make([]float32, length)
	}

	for i := range samples {
		samples[i] = float32(amplitude * w.Sample(i, length))
	}

	if spare == nil {
		spare = &Cycle{}
	}
	spare.samples = samples
	spare.frequency = frequency
	spare.amplitude = amplitude
	spare.waveform = w
	return spare
}
