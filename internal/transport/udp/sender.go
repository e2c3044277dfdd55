// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"sonify/internal/log"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("udp: sender is closed")

const writeTimeout = 100 * time.Millisecond

// UDPSender writes datagrams to one connected destination. It is safe for
// concurrent use.
type UDPSender struct {
	mu     sync.Mutex // Serializes writes against Close.
	conn   *net.UDPConn
	target *net.UDPAddr
}

// NewUDPSender resolves targetAddress ("host:port") and connects a socket
// to it. No local port is bound explicitly.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	target, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	log.Infof("UDP Sender: sending to %s from %s", target, conn.LocalAddr())
	return &UDPSender{conn: conn, target: target}, nil
}

// Target returns the resolved destination.
func (s *UDPSender) Target() *net.UDPAddr {
	return s.target
}

// Send writes data as one datagram. A write that cannot complete within a
// short deadline fails rather than stalling the publisher.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := s.conn.Write(data); err != nil {
		// Nobody listening is normal for UDP; keep it out of the info log.
		log.Debugf("UDP Sender: write to %s failed: %v", s.target, err)
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close releases the socket. Further calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	log.Infof("UDP Sender: closed connection to %s", s.target)
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}
