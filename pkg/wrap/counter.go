// SPDX-License-Identifier: MIT

/*
Package wrap provides bounded counters with explicit wrap-on-overflow
semantics for the cursors used on the real-time audio path.

A Counter always satisfies 0 <= Value() < Limit(). Advancing past the
last value returns to zero and reports the wrap, so callers can chain
counters (column -> row) without doing modular arithmetic on raw ints.

Design Principles:
- Zero Allocations: Counter is a plain value type
- Real-Time Safe: No locks, syscalls, or blocking operations
- Not goroutine safe: each counter has exactly one writer
*/
package wrap

// Counter is an integer cursor in [0, limit).
type Counter struct {
	value int
	limit int
}

// NewCounter returns a counter at zero. A limit below one is clamped to one,
// which makes the counter wrap on every advance instead of dividing by zero.
func NewCounter(limit int) Counter {
	if limit < 1 {
		limit = 1
	}
	return Counter{limit: limit}
}

// Value returns the current position.
func (c *Counter) Value() int {
	return c.value
}

// Limit returns the exclusive upper bound.
func (c *Counter) Limit() int {
	return c.limit
}

// Advance moves the counter forward by one and reports whether it wrapped
// back to zero.
func (c *Counter) Advance() bool {
	c.value++
	if c.value >= c.limit {
		c.value = 0
		return true
	}
	return false
}

// Reset moves the counter back to zero.
func (c *Counter) Reset() {
	c.value = 0
}

// SetLimit changes the bound and resets the position to zero.
func (c *Counter) SetLimit(limit int) {
	if limit < 1 {
		limit = 1
	}
	c.limit = limit
	c.value = 0
}
