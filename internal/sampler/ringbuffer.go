package sampler

// Package sampler records numeric observations from many concurrent producers
// into a bounded ring buffer and periodically drains it into a percentile
// Summary. Producers never block: when the buffer is held by the sampler the
// observation is counted as dropped instead.

import (
	"math"
	"slices"
)

// DefaultCapacity is the ring buffer size used when none is configured. It
// must be tuned together with the sampling interval: at 15s, one recorder
// sustains roughly 65536/15 ~ 4369 observations per second before the window
// wraps.
const DefaultCapacity = 65536

// Number is the set of types a RingBuffer can hold. time.Duration is covered
// by ~int64.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// RingBuffer is a fixed-capacity buffer of observations with a write cursor
// and a wrap counter. Indices [0, cursor) hold the current lap; indices past
// the cursor may hold stale data from an earlier lap.
//
// The cursor returns to 0 lazily, on the first append after the buffer is
// full, so exactly Cap appends still drain as a full lap without a wrap.
//
// RingBuffer is not safe for concurrent use.
type RingBuffer[T Number] struct {
	idx   int
	wraps uint64
	data  []T
}

// NewRingBuffer allocates a zeroed buffer. A capacity <= 0 uses
// DefaultCapacity.
func NewRingBuffer[T Number](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &RingBuffer[T]{data: make([]T, capacity)}
}

// Append stores v at the cursor and advances it. Once the buffer is full the
// oldest entries of the lap are overwritten.
func (r *RingBuffer[T]) Append(v T) {
	if r.idx == len(r.data) {
		r.idx = 0
		if r.wraps < math.MaxUint64 {
			r.wraps++
		}
	}

	r.data[r.idx] = v
	r.idx++
}

// DrainSorted sorts [0, cursor) in place and returns it. The returned slice
// aliases the buffer and is only valid until the next Append or Clear.
//
// After a wrap, entries at or past the cursor are not returned even though
// they were recorded in this interval.
func (r *RingBuffer[T]) DrainSorted() []T {
	data := r.data[:r.idx]
	slices.Sort(data)

	return data
}

// Wraps returns the number of completed laps since the last Clear.
func (r *RingBuffer[T]) Wraps() uint64 { return r.wraps }

// Clear resets cursor and wrap count. Stored values are left in place and get
// overwritten by later appends.
func (r *RingBuffer[T]) Clear() {
	r.idx = 0
	r.wraps = 0
}

// Len returns the number of entries DrainSorted would return.
func (r *RingBuffer[T]) Len() int { return r.idx }

// Cap returns the fixed capacity.
func (r *RingBuffer[T]) Cap() int { return len(r.data) }

// Size returns how many slots hold data from this interval: the full capacity
// once the cursor wrapped, the cursor otherwise.
func (r *RingBuffer[T]) Size() int {
	if r.wraps > 0 {
		return len(r.data)
	}

	return r.idx
}
