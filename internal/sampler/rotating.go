package sampler

import "sync/atomic"

// RotatingSlotCount is the number of slots in a RotatingSlots ring: one being
// read, one being written and two spares absorbing races between them.
const RotatingSlotCount = 4

// RotatingSlots is a ring of RotatingSlotCount values with an atomic pointer to
// the current one.
//
// Guarantees are weak. A writer racing Advance may land in the slot
// that was just retired, and a reader may observe either the old or the new
// index. Callers that need a stable view must copy what Current returns right
// away. The values themselves must be safe for concurrent use.
type RotatingSlots[T any] struct {
	idx   atomic.Uint64
	slots [RotatingSlotCount]T
}

// NewRotatingSlots returns a ring of zero-valued slots.
func NewRotatingSlots[T any]() *RotatingSlots[T] {
	return &RotatingSlots[T]{}
}

// Current returns the slot at the current index.
func (s *RotatingSlots[T]) Current() *T {
	return &s.slots[s.idx.Load()%RotatingSlotCount]
}

// Advance makes the next slot current and returns the one that was current
// before the call.
func (s *RotatingSlots[T]) Advance() *T {
	prev := s.idx.Add(1) - 1

	return &s.slots[prev%RotatingSlotCount]
}
