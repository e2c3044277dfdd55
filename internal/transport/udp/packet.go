// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"sonify/internal/synth"
)

// Packet layout, all fields big endian:
//
//	header: seq uint32 | unix nanos int64 | count uint16
//	event:  tone uint32 | x uint16 | y uint16 | pitch f32 | peak f32 | r g b uint8
const (
	HeaderSize = 4 + 8 + 2
	EventSize  = 4 + 2 + 2 + 4 + 4 + 3

	// MaxEventsPerPacket keeps a packet under a typical 1500 byte MTU.
	MaxEventsPerPacket = 64
)

// Header precedes the events of every packet.
type Header struct {
	Sequence  uint32
	Timestamp int64
	Count     uint16
}

type wireEvent struct {
	Tone    uint32
	X, Y    uint16
	Pitch   float32
	Peak    float32
	R, G, B uint8
}

// Encode writes one packet for events into buf, which is reset first.
// At most MaxEventsPerPacket events are encoded.
func Encode(buf *bytes.Buffer, seq uint32, unixNanos int64, events []synth.FeedbackEvent) error {
	if len(events) > MaxEventsPerPacket {
		events = events[:MaxEventsPerPacket]
	}
	buf.Reset()
	buf.Grow(HeaderSize + len(events)*EventSize)

	header := Header{Sequence: seq, Timestamp: unixNanos, Count: uint16(len(events))}
	if err := binary.Write(buf, binary.BigEndian, header); err != nil {
		return fmt.Errorf("failed to write packet header: %w", err)
	}
	for _, ev := range events {
		w := wireEvent{
			Tone:  uint32(ev.ToneIndex),
			X:     clampUint16(ev.X),
			Y:     clampUint16(ev.Y),
			Pitch: float32(ev.Pitch),
			Peak:  float32(ev.Peak),
			R:     ev.R,
			G:     ev.G,
			B:     ev.B,
		}
		if err := binary.Write(buf, binary.BigEndian, w); err != nil {
			return fmt.Errorf("failed to write event %d: %w", ev.Sequence, err)
		}
	}
	return nil
}

// Decode parses a packet produced by Encode. Only the fields carried on
// the wire are populated in the returned events.
func Decode(packet []byte) (Header, []synth.FeedbackEvent, error) {
	var header Header
	r := bytes.NewReader(packet)
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return header, nil, fmt.Errorf("failed to read packet header: %w", err)
	}
	if want := HeaderSize + int(header.Count)*EventSize; len(packet) != want {
		return header, nil, fmt.Errorf("packet length %d, expected %d for %d events", len(packet), want, header.Count)
	}

	events := make([]synth.FeedbackEvent, header.Count)
	for i := range events {
		var w wireEvent
		if err := binary.Read(r, binary.BigEndian, &w); err != nil {
			return header, nil, fmt.Errorf("failed to read event %d: %w", i, err)
		}
		events[i] = synth.FeedbackEvent{
			ToneIndex: int(w.Tone),
			X:         int(w.X),
			Y:         int(w.Y),
			Pitch:     float64(w.Pitch),
			Peak:      float64(w.Peak),
			R:         w.R,
			G:         w.G,
			B:         w.B,
		}
	}
	return header, events, nil
}

func clampUint16(v int) uint16 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}
