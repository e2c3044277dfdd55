// SPDX-License-Identifier: MIT
package pitch

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"sonify/pkg/bitint"
)

const (
	maxPeaks       = 8      // Spectral peaks tracked per frame
	maxHarmonic    = 5      // Highest harmonic tested against the strongest peak
	harmonicSlack  = 0.02   // Allowed deviation from an integer bin ratio
	maxPeakBin     = 5000.0 // Refined bins above this are treated as noise
	silenceDecibel = -200.0 // Starting level for the peak search
)

type peak struct {
	bin float64
	db  float64
}

// FComb is a frequency-comb pitch detector. It windows a sliding buffer,
// refines every FFT bin with the phase advance since the previous call
// (phase vocoder), keeps the strongest peaks, and prefers a lower peak
// when the strongest one is one of its harmonics.
type FComb struct {
	cfg     Config
	fftSize int
	fft     *fourier.FFT

	// Pre-allocated workspace; Detect never allocates.
	history   []float64    // Sliding analysis buffer, oldest sample first
	window    []float64    // Hann coefficients for the history span
	input     []float64    // Windowed, zero-padded FFT input
	spectrum  []complex128 // FFT output (fftSize/2 + 1)
	lastPhase []float64    // Per-bin phase from the previous call
	peaks     [maxPeaks]peak
}

var _ Detector = (*FComb)(nil)

// New builds a frequency-comb detector. The FFT length is BufferSize
// rounded up to a power of two.
func New(cfg Config) (*FComb, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fftSize := bitint.NextPowerOfTwo(cfg.BufferSize)
	coeffs := make([]float64, cfg.BufferSize)
	for i := range coeffs {
		coeffs[i] = 1
	}
	window.Hann(coeffs)

	return &FComb{
		cfg:       cfg,
		fftSize:   fftSize,
		fft:       fourier.NewFFT(fftSize),
		history:   make([]float64, cfg.BufferSize),
		window:    coeffs,
		input:     make([]float64, fftSize),
		spectrum:  make([]complex128, fftSize/2+1),
		lastPhase: make([]float64, fftSize/2+1),
	}, nil
}

// Config returns the geometry the detector was built with.
func (f *FComb) Config() Config {
	return f.cfg
}

// FFTSize returns the transform length.
func (f *FComb) FFTSize() int {
	return f.fftSize
}

// Reset clears the analysis history and phase memory.
func (f *FComb) Reset() {
	clear(f.history)
	clear(f.lastPhase)
}

// Detect shifts hop into the analysis buffer and returns the estimated
// fundamental in Hz. Only the first HopSize samples of hop are used; a
// shorter hop is zero-padded.
func (f *FComb) Detect(hop []float32) float64 {
	n := f.cfg.HopSize
	size := f.cfg.BufferSize

	// --- 1. Slide History ---
	copy(f.history, f.history[n:])
	tail := f.history[size-n:]
	for i := range tail {
		if i < len(hop) {
			tail[i] = float64(hop[i])
		} else {
			tail[i] = 0
		}
	}

	// --- 2. Window & Transform ---
	for i := range f.input {
		if i < size {
			f.input[i] = f.history[i] * f.window[i]
		} else {
			f.input[i] = 0
		}
	}
	f.fft.Coefficients(f.spectrum, f.input)

	// --- 3. Phase-Vocoder Peak Scan ---
	for i := range f.peaks {
		f.peaks[i] = peak{bin: 0, db: silenceDecibel}
	}

	expected := 2 * math.Pi * float64(n) / float64(f.fftSize)
	scale := float64(f.fftSize) / float64(n) / (2 * math.Pi)
	for k, c := range f.spectrum {
		magnitude := 20 * math.Log10(2*cmplx.Abs(c)/float64(f.fftSize))
		phase := cmplx.Phase(c)

		delta := phase - f.lastPhase[k]
		f.lastPhase[k] = phase
		delta -= float64(k) * expected
		delta = unwrap(delta)

		bin := float64(k) + scale*delta
		if bin > 0 && magnitude > f.peaks[0].db {
			copy(f.peaks[1:], f.peaks[:maxPeaks-1])
			f.peaks[0] = peak{bin: bin, db: magnitude}
		}
	}

	// --- 4. Harmonic Selection ---
	best, bestHarmonic := 0, 0
	for l := 1; l < maxPeaks && f.peaks[l].bin > 0; l++ {
		ratio := f.peaks[0].bin / f.peaks[l].bin
		for h := maxHarmonic; h > 1; h-- {
			if ratio < float64(h)+harmonicSlack && ratio > float64(h)-harmonicSlack {
				if h > bestHarmonic && f.peaks[0].db < f.peaks[l].db/2 {
					bestHarmonic = h
					best = l
				}
			}
		}
	}

	bin := f.peaks[best].bin
	if bin > maxPeakBin {
		return 0
	}
	return bin * f.cfg.SampleRate / float64(f.fftSize)
}

// unwrap maps a phase into (-π, π].
func unwrap(phase float64) float64 {
	return phase + 2*math.Pi*(1+math.Floor(-(phase+math.Pi)/(2*math.Pi)))
}
