package sampler

// Bucket names one field of a Summary as a metric label value.
type Bucket uint8

const (
	BucketP25 Bucket = iota
	BucketP50
	BucketP75
	BucketP90
	BucketP95
	BucketP99
	BucketP999
	BucketMax
	BucketCount
	bucketCount
)

// BucketLabel is the label name under which bucket values are exported.
const BucketLabel = "bucket"

var bucketNames = [bucketCount]string{
	BucketP25:   "p25",
	BucketP50:   "p50",
	BucketP75:   "p75",
	BucketP90:   "p90",
	BucketP95:   "p95",
	BucketP99:   "p99",
	BucketP999:  "p99p9",
	BucketMax:   "max",
	BucketCount: "count",
}

// String returns the label value of b.
func (b Bucket) String() string {
	if b >= bucketCount {
		return "unknown"
	}

	return bucketNames[b]
}

// LabelValues returns the label values of b, in the order of
// BucketLabelNames.
func (b Bucket) LabelValues() []string { return []string{b.String()} }

// AllBuckets returns every bucket in declaration order.
func AllBuckets() []Bucket {
	out := make([]Bucket, 0, bucketCount)
	for b := BucketP25; b < bucketCount; b++ {
		out = append(out, b)
	}

	return out
}

// BucketLabelNames returns the label names of a bucketed series.
func BucketLabelNames() []string { return []string{BucketLabel} }

// PossibleBucketValues returns the label values of every bucket, used to make
// a series discoverable before the first sample.
func PossibleBucketValues() [][]string {
	out := make([][]string, 0, bucketCount)
	for _, b := range AllBuckets() {
		out = append(out, b.LabelValues())
	}

	return out
}
