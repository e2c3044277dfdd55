// SPDX-License-Identifier: MIT
package transport

import (
	"time"

	"sonify/internal/synth"
)

// Transport defines a generic interface for sending feedback data.
// Implementations must be safe for concurrent use and must not block
// the caller for long.
type Transport interface {
	Send(data any) error
	Close() error
}

// EventSource is drained by the Publisher. synth.Engine implements it.
type EventSource interface {
	DrainEvents(dst []synth.FeedbackEvent) int
}

// Batch is the set of hop events collected during one publish interval.
// Transports receive Batch values and may keep them.
type Batch struct {
	Sequence  uint64                `json:"seq"`
	Timestamp time.Time             `json:"time"`
	Events    []synth.FeedbackEvent `json:"events"`
}
