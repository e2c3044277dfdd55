// SPDX-License-Identifier: MIT
package wrap

import (
	"fmt"
	"testing"
)

func TestNewCounterClampsLimit(t *testing.T) {
	tests := []struct {
		limit    int
		expected int
	}{
		{-3, 1}, // Negative limit
		{0, 1},  // Zero limit
		{1, 1},  // Smallest valid limit
		{10, 10},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.limit, tt.expected), func(t *testing.T) {
			c := NewCounter(tt.limit)
			if c.Limit() != tt.expected {
				t.Errorf("NewCounter(%d).Limit() = %d, expected %d", tt.limit, c.Limit(), tt.expected)
			}
			if c.Value() != 0 {
				t.Errorf("NewCounter(%d).Value() = %d, expected 0", tt.limit, c.Value())
			}
		})
	}
}

func TestCounterWrapBoundary(t *testing.T) {
	const n = 7
	c := NewCounter(n)

	for i := 1; i < n; i++ {
		if c.Advance() {
			t.Fatalf("Advance %d wrapped early", i)
		}
		if c.Value() != i {
			t.Fatalf("after %d advances Value() = %d", i, c.Value())
		}
	}

	if !c.Advance() {
		t.Fatalf("Advance %d should wrap", n)
	}
	if c.Value() != 0 {
		t.Fatalf("Value() after wrap = %d, expected 0", c.Value())
	}

	// N+1 advances lands on index 1.
	c.Advance()
	if c.Value() != 1 {
		t.Errorf("Value() after %d advances = %d, expected 1", n+1, c.Value())
	}
}

func TestCounterLimitOneAlwaysWraps(t *testing.T) {
	c := NewCounter(1)
	for i := 0; i < 5; i++ {
		if !c.Advance() || c.Value() != 0 {
			t.Fatalf("limit-1 counter must wrap on every advance (iteration %d)", i)
		}
	}
}

func TestCounterSetLimitResets(t *testing.T) {
	c := NewCounter(10)
	c.Advance()
	c.Advance()
	c.SetLimit(4)
	if c.Value() != 0 || c.Limit() != 4 {
		t.Errorf("SetLimit(4) left value=%d limit=%d", c.Value(), c.Limit())
	}
	c.SetLimit(0)
	if c.Limit() != 1 {
		t.Errorf("SetLimit(0) limit = %d, expected 1", c.Limit())
	}
}

func TestCounterZeroAllocs(t *testing.T) {
	c := NewCounter(64)
	allocs := testing.AllocsPerRun(100, func() {
		for range 128 {
			c.Advance()
		}
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations advancing counter, got %.1f", allocs)
	}
}
