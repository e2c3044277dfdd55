// SPDX-License-Identifier: MIT
package transport

import (
	"sonify/internal/log"
)

// LoggingTransport writes every event to the debug log.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the batch. Unknown payloads are logged by type.
func (lt *LoggingTransport) Send(data any) error {
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	batch, ok := data.(Batch)
	if !ok {
		log.Debugf("LoggingTransport: (%T) %+v", data, data)
		return nil
	}
	for _, ev := range batch.Events {
		log.Debugf("LoggingTransport: hop %d tone %d (%.1f Hz) pitch %.1f Hz peak %.3f -> (%d, %d) #%02x%02x%02x",
			ev.Sequence, ev.ToneIndex, ev.Frequency, ev.Pitch, ev.Peak, ev.X, ev.Y, ev.R, ev.G, ev.B)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
