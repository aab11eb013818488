// Package window implements the fixed-capacity sliding sample buffer used by
// the probe engine to smooth RTT and loss readings over the last W probes.
package window

import (
	"fmt"

	"github.com/sanverite/sdwan-control-plane/internal/sdwanerr"
)

// Buffer is a fixed-capacity FIFO of float64 samples. The zero value is not
// usable; construct with New. Buffer is not safe for concurrent use — callers
// (the probe engine) own one buffer per peer per metric and touch it only
// from a single goroutine.
type Buffer struct {
	capacity int
	samples  []float64
	next     int // write cursor, wraps modulo capacity
	filled   int // number of valid samples, saturates at capacity
}

// New constructs a Buffer with the given capacity. A non-positive capacity
// is rejected with sdwanerr.ErrInvalidArgument.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("window: capacity must be positive, got %d: %w", capacity, sdwanerr.ErrInvalidArgument)
	}
	return &Buffer{
		capacity: capacity,
		samples:  make([]float64, capacity),
	}, nil
}

// Append adds a sample, evicting the oldest one once the buffer is at
// capacity. Amortized O(1).
func (b *Buffer) Append(x float64) {
	b.samples[b.next] = x
	b.next = (b.next + 1) % b.capacity
	if b.filled < b.capacity {
		b.filled++
	}
}

// Mean returns the arithmetic mean of the buffer's current contents and
// true, or (0, false) if the buffer is empty.
func (b *Buffer) Mean() (float64, bool) {
	if b.filled == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range b.contentsUnordered() {
		sum += v
	}
	return sum / float64(b.filled), true
}

// Len returns the number of samples currently held (<= capacity).
func (b *Buffer) Len() int {
	return b.filled
}

// Contents returns the current samples in insertion order (oldest first).
func (b *Buffer) Contents() []float64 {
	out := make([]float64, 0, b.filled)
	if b.filled < b.capacity {
		// Never wrapped: samples[0:filled] is already oldest-first.
		out = append(out, b.samples[:b.filled]...)
		return out
	}
	// Wrapped: oldest sample is at b.next (about to be overwritten next).
	out = append(out, b.samples[b.next:]...)
	out = append(out, b.samples[:b.next]...)
	return out
}

// contentsUnordered returns the valid samples in no particular order; used
// internally where order doesn't matter (Mean).
func (b *Buffer) contentsUnordered() []float64 {
	if b.filled < b.capacity {
		return b.samples[:b.filled]
	}
	return b.samples
}

// Clear empties the buffer without changing its capacity.
func (b *Buffer) Clear() {
	b.next = 0
	b.filled = 0
}
