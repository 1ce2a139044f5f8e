package sampler

// Snapshot is a Summary reduced to integers and tagged with its series name.
// Sinks and reporters consume snapshots so that they do not need to be
// generic over the observation type.
type Snapshot struct {
	Name    string
	Count   int
	Buckets []BucketValue
	Dropped uint64
	Wraps   uint64
}

// Snapshot converts s, dividing every distribution value by unit. A unit of
// zero or less is treated as 1, e.g. Snapshot(name, time.Microsecond) exports
// durations in microseconds.
func (s Summary[T]) Snapshot(name string, unit T) Snapshot {
	if unit > 0 && unit != 1 {
		s.P25 /= unit
		s.P50 /= unit
		s.P75 /= unit
		s.P90 /= unit
		s.P95 /= unit
		s.P99 /= unit
		s.P999 /= unit
		s.Max /= unit
	}

	return Snapshot{
		Name:    name,
		Count:   s.Count,
		Buckets: s.BucketPairs(),
		Dropped: s.Dropped,
		Wraps:   s.Wraps,
	}
}

// Value returns the value of bucket b, or 0 if the snapshot has none.
func (s Snapshot) Value(b Bucket) int64 {
	for _, bv := range s.Buckets {
		if bv.Bucket == b {
			return bv.Value
		}
	}

	return 0
}

// SampleSnapshot samples r and converts the result with Summary.Snapshot.
func (r *Recorder[T]) SampleSnapshot(unit T) Snapshot {
	return r.Sample().Snapshot(r.name, unit)
}
