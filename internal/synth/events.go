// SPDX-License-Identifier: MIT
package synth

import (
	"sync/atomic"

	"sonify/pkg/bitint"
)

// DefaultEventCapacity is the number of hop events buffered between the
// audio callback and the consumer.
const DefaultEventCapacity = 1024

// FeedbackEvent describes one hop boundary: the tone that started playing
// and the analysis of the hop that just ended.
type FeedbackEvent struct {
	Sequence  uint64  `json:"seq"`       // Hop number, starting at 1
	ToneIndex int     `json:"tone"`      // Index of the tone now playing
	Frequency float64 `json:"frequency"` // Hz of the tone now playing
	Amplitude float64 `json:"amplitude"` // Playback amplitude of the tone now playing
	Pitch     float64 `json:"pitch"`     // Detected input pitch in Hz (0 = none)
	Peak      float64 `json:"peak"`      // Peak |input| over the hop
	X         int     `json:"x"`         // Logical raster column written
	Y         int     `json:"y"`         // Logical raster row written
	R         uint8   `json:"r"`
	G         uint8   `json:"g"`
	B         uint8   `json:"b"`
}

// eventRing is a lock-free single-producer/single-consumer queue. The
// audio callback pushes and never blocks: when the ring is full the event
// is counted as dropped.
type eventRing struct {
	buf     []FeedbackEvent
	mask    uint64
	head    atomic.Uint64 // Next slot to write; producer only
	tail    atomic.Uint64 // Next slot to read; consumer only
	dropped atomic.Uint64
}

func newEventRing(capacity int) *eventRing {
	if capacity < 2 {
		capacity = 2
	}
	size := bitint.NextPowerOfTwo(capacity)
	return &eventRing{
		buf:  make([]FeedbackEvent, size),
		mask: uint64(size - 1),
	}
}

func (r *eventRing) push(ev FeedbackEvent) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return false
	}
	r.buf[head&r.mask] = ev
	r.head.Store(head + 1)
	return true
}

func (r *eventRing) drain(dst []FeedbackEvent) int {
	tail := r.tail.Load()
	head := r.head.Load()
	n := 0
	for tail != head && n < len(dst) {
		dst[n] = r.buf[tail&r.mask]
		tail++
		n++
	}
	r.tail.Store(tail)
	return n
}

func (r *eventRing) capacity() int {
	return len(r.buf)
}
