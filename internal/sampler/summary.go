package sampler

// Percentiles are expressed in tenths of a percent so that the index math
// stays in integers. Every entry must stay below 1000: floor(n*p/1000) < n only
// holds for p < 1000.
const (
	perMille25  = 250
	perMille50  = 500
	perMille75  = 750
	perMille90  = 900
	perMille95  = 950
	perMille99  = 990
	perMille999 = 999
)

// Summary is an immutable snapshot of one sampling interval.
type Summary[T Number] struct {
	P25  T
	P50  T
	P75  T
	P90  T
	P95  T
	P99  T
	P999 T
	Max  T

	// Count is the number of observations the percentiles were computed from.
	Count int
	// Dropped counts observations discarded due to lock contention.
	Dropped uint64
	// Wraps counts how often the window overflowed its capacity.
	Wraps uint64
}

// summarize computes the percentile ladder over an ascending slice. An empty
// slice yields zero values.
func summarize[T Number](sorted []T) Summary[T] {
	n := len(sorted)
	if n == 0 {
		return Summary[T]{}
	}

	return Summary[T]{
		P25:   percentile(sorted, perMille25),
		P50:   percentile(sorted, perMille50),
		P75:   percentile(sorted, perMille75),
		P90:   percentile(sorted, perMille90),
		P95:   percentile(sorted, perMille95),
		P99:   percentile(sorted, perMille99),
		P999:  percentile(sorted, perMille999),
		Max:   sorted[n-1],
		Count: n,
	}
}

// percentile returns the element at floor(len*p/1000).
func percentile[T Number](sorted []T, p int) T {
	if len(sorted) == 0 {
		var zero T

		return zero
	}

	return sorted[len(sorted)*p/1000]
}

// Empty reports whether no observation made it into the interval.
func (s Summary[T]) Empty() bool { return s.Count == 0 }

// DroppedCount returns the number of observations dropped during the interval.
func (s Summary[T]) DroppedCount() uint64 { return s.Dropped }

// WrapCount returns how many times the window exceeded its capacity.
func (s Summary[T]) WrapCount() uint64 { return s.Wraps }

// BucketValue pairs a bucket label with its value.
type BucketValue struct {
	Bucket Bucket
	Value  int64
}

// BucketPairs returns every distribution field with its bucket, in bucket
// order. Values are converted to int64; float types are truncated.
func (s Summary[T]) BucketPairs() []BucketValue {
	return []BucketValue{
		{BucketP25, int64(s.P25)},
		{BucketP50, int64(s.P50)},
		{BucketP75, int64(s.P75)},
		{BucketP90, int64(s.P90)},
		{BucketP95, int64(s.P95)},
		{BucketP99, int64(s.P99)},
		{BucketP999, int64(s.P999)},
		{BucketMax, int64(s.Max)},
		{BucketCount, int64(s.Count)},
	}
}
