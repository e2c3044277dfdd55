// SPDX-License-Identifier: MIT

// Package utils holds signal generators and test doubles shared by the
// package tests.
package utils

import (
	"math"
	"sync"
)

// MockTransport records everything sent to it instead of transmitting.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
}

// Send stores data for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return nil
}

// Close marks the transport as closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Count returns the number of payloads received so far.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// GenerateSineWave returns size samples of a sine at frequency Hz with
// amplitude 0.9.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics,
// peaking below 0.9.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// PeakAbs returns the largest absolute sample value.
func PeakAbs(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	return peak
}
