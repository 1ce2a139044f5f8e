package metrics

// Package metrics owns the run counters and the per-operation latency
// recorders fed by the workers.

import (
	"sync/atomic"
	"time"

	"github.com/croessner/ldapsampler/internal/sampler"
)

// Op names an LDAP operation whose latency is sampled.
type Op string

const (
	OpLookup Op = "lookup"
	OpBind   Op = "bind"
	OpSearch Op = "search"
)

// Ops lists every sampled operation in reporting order.
var Ops = []Op{OpLookup, OpBind, OpSearch}

// SeriesName returns the exported series name of op.
func (o Op) SeriesName() string { return string(o) + "_latency_us" }

// Interval holds the counters of one reporting interval.
type Interval struct {
	Attempts atomic.Int64
	Success  atomic.Int64
	Fail     atomic.Int64
}

// IntervalCounts is a plain copy of an Interval.
type IntervalCounts struct {
	Attempts int64
	Success  int64
	Fail     int64
}

// Metrics keeps track of attempts and outcomes for the whole run and for the
// current interval, and owns one latency recorder per operation. Everything
// is safe for concurrent use.
type Metrics struct {
	Attempts atomic.Int64
	Success  atomic.Int64
	Fail     atomic.Int64
	Start    time.Time

	intervals *sampler.RotatingSlots[Interval]
	latency   map[Op]*sampler.Recorder[time.Duration]
}

// New creates a Metrics whose latency windows hold capacity observations.
func New(capacity int) *Metrics {
	m := &Metrics{
		Start:     time.Now(),
		intervals: sampler.NewRotatingSlots[Interval](),
		latency:   make(map[Op]*sampler.Recorder[time.Duration], len(Ops)),
	}

	for _, op := range Ops {
		m.latency[op] = sampler.NewRecorder[time.Duration](op.SeriesName(), sampler.WithCapacity(capacity))
	}

	return m
}

// Attempt counts a started attempt.
func (m *Metrics) Attempt() {
	m.Attempts.Add(1)
	m.intervals.Current().Attempts.Add(1)
}

// Succeeded counts a successful attempt.
func (m *Metrics) Succeeded() {
	m.Success.Add(1)
	m.intervals.Current().Success.Add(1)
}

// Failed counts a failed attempt.
func (m *Metrics) Failed() {
	m.Fail.Add(1)
	m.intervals.Current().Fail.Add(1)
}

// Observe records the latency of one operation. Unknown operations are
// ignored.
func (m *Metrics) Observe(op Op, d time.Duration) {
	if rec, ok := m.latency[op]; ok {
		rec.Record(d)
	}
}

// Recorder returns the latency recorder of op, or nil.
func (m *Metrics) Recorder(op Op) *sampler.Recorder[time.Duration] {
	return m.latency[op]
}

// RotateInterval starts a new interval and returns the counts of the one that
// ended. Increments racing the rotation may land in the retired slot; they are
// reported when that slot is retired again.
func (m *Metrics) RotateInterval() IntervalCounts {
	prev := m.intervals.Advance()

	return IntervalCounts{
		Attempts: prev.Attempts.Swap(0),
		Success:  prev.Success.Swap(0),
		Fail:     prev.Fail.Swap(0),
	}
}

// Snapshot returns current counts and elapsed time.
func (m *Metrics) Snapshot() (attempts, success, fail int64, elapsed time.Duration) {
	return m.Attempts.Load(), m.Success.Load(), m.Fail.Load(), time.Since(m.Start)
}

// LatencySeries adapts a latency recorder to the reporter, exporting
// microseconds.
type LatencySeries struct {
	rec *sampler.Recorder[time.Duration]
}

// Name returns the series name.
func (s LatencySeries) Name() string { return s.rec.Name() }

// Sample drains the recorder.
func (s LatencySeries) Sample() sampler.Snapshot {
	return s.rec.SampleSnapshot(time.Microsecond)
}

// Series returns the latency series in Ops order.
func (m *Metrics) Series() []LatencySeries {
	out := make([]LatencySeries, 0, len(Ops))
	for _, op := range Ops {
		out = append(out, LatencySeries{rec: m.latency[op]})
	}

	return out
}
