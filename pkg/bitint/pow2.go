// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used when sizing
buffers on the real-time path: the pitch detector rounds its analysis
window up to an FFT-friendly length, and the feedback event ring rounds
its capacity up so indices can be masked instead of divided.

All helpers are O(1), allocation free, and safe to call from the audio
callback.

NextPowerOfTwo relies on subtracting one before taking the bit length:

	size = 8  -> size-1 = 0b0111 -> bits.Len = 3 -> 1<<3 = 8
	size = 9  -> size-1 = 0b1000 -> bits.Len = 4 -> 1<<4 = 16

Without the subtraction an exact power of two would be doubled.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes return 1.
//
//	Input  Output
//	0      1
//	441    512
//	1764   2048
//	2048   2048
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}
