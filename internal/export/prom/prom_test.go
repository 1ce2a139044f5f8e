package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croessner/ldapsampler/internal/sampler"
)

func TestSink_BindSeedsEveryBucket(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewSink(reg, "ldapsampler", nil)
	require.NoError(t, err)

	require.NoError(t, sink.Bind("bind_latency_us", "bind latency"))
	require.NoError(t, sink.Bind("bind_latency_us", "bind latency"))

	g := sink.series["bind_latency_us"]
	require.NotNil(t, g)
	assert.Equal(t, len(sampler.AllBuckets()), testutil.CollectAndCount(g.Vec()))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.dropped.Vec()))
}

func TestSink_Publish(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewSink(reg, "ldapsampler", nil)
	require.NoError(t, err)

	r := sampler.NewRecorder[int]("search_latency_us", sampler.WithCapacity(8))
	for i := 1; i <= 8; i++ {
		r.Record(i)
	}

	snap := r.SampleSnapshot(1)
	snap.Dropped = 2
	sink.Publish(snap)
	sink.Publish(sampler.Snapshot{Name: "search_latency_us", Buckets: sampler.Summary[int]{}.BucketPairs(), Dropped: 1, Wraps: 3})

	g := sink.series["search_latency_us"].Vec()
	assert.Zero(t, testutil.ToFloat64(g.WithLabelValues("p50")), "the last snapshot wins")
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.dropped.Vec().WithLabelValues("search_latency_us")), "drops accumulate")
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.wraps.Vec().WithLabelValues("search_latency_us")))

	sink.Publish(snap)
	assert.Equal(t, 5.0, testutil.ToFloat64(g.WithLabelValues("p50")))
	assert.Equal(t, 8.0, testutil.ToFloat64(g.WithLabelValues("max")))
	assert.Equal(t, 8.0, testutil.ToFloat64(g.WithLabelValues("count")))
}

func TestSink_DuplicateNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewSink(reg, "ldapsampler", nil)
	require.NoError(t, err)

	_, err = NewSink(reg, "ldapsampler", nil)
	require.Error(t, err)
}
