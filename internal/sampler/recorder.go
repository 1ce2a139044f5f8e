package sampler

import (
	"math"
	"sync"
	"sync/atomic"
)

// Option configures a Recorder.
type Option func(*options)

type options struct {
	capacity int
}

// WithCapacity sets the ring buffer capacity of a Recorder.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// Recorder collects observations of one named series and turns them into a
// Summary on Sample.
//
// Record may be called from any number of goroutines. Sample must only be
// called by a single consumer, typically a ticker-driven reporter.
type Recorder[T Number] struct {
	name    string
	mu      sync.Mutex
	buf     *RingBuffer[T]
	dropped atomic.Uint64
}

// NewRecorder creates a recorder. The name carries no meaning for the
// recorder itself; sinks use it as the series name.
func NewRecorder[T Number](name string, opts ...Option) *Recorder[T] {
	o := options{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}

	return &Recorder[T]{name: name, buf: NewRingBuffer[T](o.capacity)}
}

// Name returns the name passed to NewRecorder.
func (r *Recorder[T]) Name() string { return r.name }

// Capacity returns the ring buffer capacity.
func (r *Recorder[T]) Capacity() int { return r.buf.Cap() }

// Record adds v to the current window. If Sample holds the buffer, v is
// discarded and counted as dropped; Record never waits for the lock.
func (r *Recorder[T]) Record(v T) {
	if !r.mu.TryLock() {
		r.drop()

		return
	}

	r.buf.Append(v)
	r.mu.Unlock()
}

func (r *Recorder[T]) drop() {
	for {
		n := r.dropped.Load()
		if n == math.MaxUint64 || r.dropped.CompareAndSwap(n, n+1) {
			return
		}
	}
}

// Dropped returns the observations dropped since the last Sample.
func (r *Recorder[T]) Dropped() uint64 { return r.dropped.Load() }

// Sample summarizes everything recorded since the previous call and clears the
// window.
//
// The drop counter is reset only after the buffer has been released, so drops
// racing the unlock are reported with the next interval.
func (r *Recorder[T]) Sample() Summary[T] {
	r.mu.Lock()
	s := summarize(r.buf.DrainSorted())
	s.Wraps = r.buf.Wraps()
	r.buf.Clear()
	r.mu.Unlock()

	s.Dropped = r.dropped.Swap(0)

	return s
}
