package sampler

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingSlots_AdvanceReturnsPrevious(t *testing.T) {
	s := NewRotatingSlots[int]()

	first := s.Current()
	*first = 1

	retired := s.Advance()
	require.Same(t, first, retired)
	assert.NotSame(t, first, s.Current())
	assert.Zero(t, *s.Current())
}

func TestRotatingSlots_CyclesThroughAllSlots(t *testing.T) {
	s := NewRotatingSlots[int]()

	seen := make(map[*int]int)
	for i := 0; i < 2*RotatingSlotCount; i++ {
		seen[s.Advance()]++
	}

	require.Len(t, seen, RotatingSlotCount)
	for _, n := range seen {
		assert.Equal(t, 2, n)
	}

	assert.Same(t, &s.slots[0], s.Current())
}

func TestRotatingSlots_ConcurrentAdvanceRetiresDistinctSlots(t *testing.T) {
	s := NewRotatingSlots[atomic.Int64]()

	var wg sync.WaitGroup
	wg.Add(RotatingSlotCount)
	for i := 0; i < RotatingSlotCount; i++ {
		go func() {
			defer wg.Done()
			s.Advance().Add(1)
		}()
	}

	wg.Wait()

	for i := range s.slots {
		assert.Equal(t, int64(1), s.slots[i].Load())
	}
}

func TestRotatingSlots_WritersAndReaderDoNotLoseCounts(t *testing.T) {
	s := NewRotatingSlots[atomic.Int64]()

	const (
		writers = 4
		perWrit = 1000
	)

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWrit; i++ {
				s.Current().Add(1)
			}
		}()
	}

	var harvested int64
	for i := 0; i < 10; i++ {
		harvested += s.Advance().Swap(0)
	}

	wg.Wait()

	for i := range s.slots {
		harvested += s.slots[i].Load()
	}

	assert.Equal(t, int64(writers*perWrit), harvested)
}
