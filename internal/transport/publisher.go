// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"sonify/internal/log"
	"sonify/internal/synth"
)

// DefaultInterval is used when a Publisher is given a non-positive interval.
const DefaultInterval = 33 * time.Millisecond

// Publisher periodically drains hop events from an EventSource and fans
// each non-empty batch out to its transports. It runs in its own
// goroutine, managed by Start and Stop, and is the single consumer of the
// source.
type Publisher struct {
	source     EventSource
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker   // Triggers a drain.
	doneChan chan struct{}  // Signals the goroutine to stop.
	stopOnce sync.Once      // Stop logic runs once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the goroutine during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan.

	sequence uint64
	scratch  []synth.FeedbackEvent // Reused drain buffer.

	batches atomic.Uint64
	events  atomic.Uint64
	errors  atomic.Uint64
}

// NewPublisher creates a publisher for source. At least one transport is
// required.
func NewPublisher(interval time.Duration, source EventSource, transports ...Transport) (*Publisher, error) {
	if source == nil {
		return nil, fmt.Errorf("Publisher: event source cannot be nil")
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("Publisher: at least one transport is required")
	}
	if interval <= 0 {
		interval = DefaultInterval
		log.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	return &Publisher{
		source:     source,
		transports: transports,
		interval:   interval,
		scratch:    make([]synth.FeedbackEvent, synth.DefaultEventCapacity),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("Publisher: started (interval %s, %d transports)", p.interval, len(p.transports))
		for {
			select {
			case <-ticker.C:
				p.Flush()
			case <-doneChan:
				// Deliver whatever the last interval produced.
				p.Flush()
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Transports are not
// closed; see Close.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Infof("Publisher: stopped after %d batches (%d events)", p.batches.Load(), p.events.Load())
	return nil
}

// Flush drains the source once and sends the batch, if any. It is called
// by the publishing goroutine; call it directly only when the publisher is
// not running.
func (p *Publisher) Flush() {
	var events []synth.FeedbackEvent
	for {
		n := p.source.DrainEvents(p.scratch)
		events = append(events, p.scratch[:n]...)
		if n < len(p.scratch) {
			break
		}
	}
	if len(events) == 0 {
		return
	}

	p.sequence++
	batch := Batch{
		Sequence:  p.sequence,
		Timestamp: time.Now(),
		Events:    slices.Clip(events),
	}
	for _, t := range p.transports {
		if err := t.Send(batch); err != nil {
			p.errors.Add(1)
			log.Debugf("Publisher: send failed: %v", err)
		}
	}
	p.batches.Add(1)
	p.events.Add(uint64(len(events)))
}

// Close stops the publisher and closes every transport.
func (p *Publisher) Close() error {
	err := p.Stop()
	for _, t := range p.transports {
		if cerr := t.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Stats reports how many batches and events were sent and how many sends
// failed.
func (p *Publisher) Stats() (batches, events, failures uint64) {
	return p.batches.Load(), p.events.Load(), p.errors.Load()
}
