package sampler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_ScalesDistributionOnly(t *testing.T) {
	r := NewRecorder[time.Duration]("bind")
	for i := 1; i <= 4; i++ {
		r.Record(time.Duration(i) * time.Millisecond)
	}

	snap := r.SampleSnapshot(time.Microsecond)

	assert.Equal(t, "bind", snap.Name)
	assert.Equal(t, 4, snap.Count)
	assert.Equal(t, int64(2000), snap.Value(BucketP25))
	assert.Equal(t, int64(3000), snap.Value(BucketP50))
	assert.Equal(t, int64(4000), snap.Value(BucketMax))
	assert.Equal(t, int64(4), snap.Value(BucketCount), "count is not scaled")
}

func TestSnapshot_NonPositiveUnit(t *testing.T) {
	s := summarize([]int{3, 6})

	assert.Equal(t, int64(6), s.Snapshot("x", 0).Value(BucketMax))
	assert.Equal(t, int64(6), s.Snapshot("x", -2).Value(BucketMax))
	assert.Equal(t, int64(2), s.Snapshot("x", 3).Value(BucketMax))
}

func TestSnapshot_ValueMissingBucket(t *testing.T) {
	assert.Zero(t, Snapshot{}.Value(BucketP50))
}
