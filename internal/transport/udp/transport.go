// SPDX-License-Identifier: MIT

// Package udp sends feedback batches as compact binary datagrams.
package udp

import (
	"bytes"
	"fmt"

	"sonify/internal/transport"
)

// Transport encodes each transport.Batch into one or more packets of at
// most MaxEventsPerPacket events. Packet sequence numbers increase by one
// per datagram so receivers can detect loss.
type Transport struct {
	sender   *UDPSender
	buf      bytes.Buffer
	sequence uint32
}

// NewTransport dials target.
func NewTransport(target string) (*Transport, error) {
	sender, err := NewUDPSender(target)
	if err != nil {
		return nil, err
	}
	return &Transport{sender: sender}, nil
}

// Send accepts a transport.Batch. Send is called from a single publisher
// goroutine.
func (t *Transport) Send(data any) error {
	batch, ok := data.(transport.Batch)
	if !ok {
		return fmt.Errorf("udp: unsupported payload %T", data)
	}
	ts := batch.Timestamp.UnixNano()
	events := batch.Events
	for len(events) > 0 {
		n := min(len(events), MaxEventsPerPacket)
		t.sequence++
		if err := Encode(&t.buf, t.sequence, ts, events[:n]); err != nil {
			return err
		}
		if err := t.sender.Send(t.buf.Bytes()); err != nil {
			return err
		}
		events = events[n:]
	}
	return nil
}

// Close closes the underlying sender.
func (t *Transport) Close() error {
	return t.sender.Close()
}

var _ transport.Transport = (*Transport)(nil)
