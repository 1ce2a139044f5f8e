package report

// Package report drives the periodic sampling of every latency series,
// publishes the snapshots to the configured sinks, prints per-interval stats
// and the final summary for the run.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/croessner/ldapsampler/internal/metrics"
	"github.com/croessner/ldapsampler/internal/sampler"
)

// Source is a series that can be drained into a snapshot.
type Source interface {
	Name() string
	Sample() sampler.Snapshot
}

// Sink receives every snapshot taken by the reporter.
type Sink interface {
	Publish(sampler.Snapshot)
}

// SeriesTotals accumulates the snapshots of one series over the run.
type SeriesTotals struct {
	Name     string
	Count    int64
	Dropped  uint64
	Wraps    uint64
	WorstP99 int64
	WorstMax int64
}

func (t *SeriesTotals) add(s sampler.Snapshot) {
	t.Count += int64(s.Count)
	t.Dropped += s.Dropped
	t.Wraps += s.Wraps
	t.WorstP99 = max(t.WorstP99, s.Value(sampler.BucketP99))
	t.WorstMax = max(t.WorstMax, s.Value(sampler.BucketMax))
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithSinks adds sinks that receive every snapshot.
func WithSinks(sinks ...Sink) Option {
	return func(r *Reporter) { r.sinks = append(r.sinks, sinks...) }
}

// WithOutput sets where stats lines are printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Reporter) { r.out = w }
}

// WithLogger sets the logger used for capacity warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// Reporter is the single consumer of the latency recorders. Run and Flush
// serialize on an internal mutex, so a recorder is never sampled twice at
// once.
type Reporter struct {
	m       *metrics.Metrics
	intv    time.Duration
	sources []Source
	sinks   []Sink
	out     io.Writer
	logger  *slog.Logger
	stopped atomic.Bool

	mu     sync.Mutex
	lastAt time.Time
	totals []SeriesTotals
}

// New creates a Reporter sampling the latency series of m every intv.
func New(m *metrics.Metrics, intv time.Duration, opts ...Option) *Reporter {
	r := &Reporter{m: m, intv: intv, out: os.Stdout, lastAt: time.Now()}

	for _, s := range m.Series() {
		r.sources = append(r.sources, s)
		r.totals = append(r.totals, SeriesTotals{Name: s.Name()})
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Run samples every interval until the context is canceled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.intv)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if r.stopped.Load() {
				return
			}

			r.tick(t)
		}
	}
}

// Flush samples once immediately, reporting the partial interval.
func (r *Reporter) Flush() { r.tick(time.Now()) }

// Stop makes Run return at its next tick.
func (r *Reporter) Stop() { r.stopped.Store(true) }

// Totals returns a copy of the accumulated per-series totals.
func (r *Reporter) Totals() []SeriesTotals {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]SeriesTotals(nil), r.totals...)
}

func (r *Reporter) tick(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ic := r.m.RotateInterval()
	snaps := make([]sampler.Snapshot, 0, len(r.sources))

	for i, src := range r.sources {
		s := src.Sample()
		snaps = append(snaps, s)
		r.totals[i].add(s)

		for _, sink := range r.sinks {
			sink.Publish(s)
		}

		if s.Dropped > 0 || s.Wraps > 0 {
			r.logger.Warn("Latency window under pressure, raise window-capacity or shorten sample-interval",
				"series", s.Name, "count", s.Count, "dropped", s.Dropped, "wraps", s.Wraps)
		}
	}

	r.printStats(t, ic, snaps)
	r.lastAt = t
}

func ms(us int64) float64 { return float64(us) / 1000.0 }

func (r *Reporter) printStats(t time.Time, ic metrics.IntervalCounts, snaps []sampler.Snapshot) {
	att, suc, _, _ := r.m.Snapshot()

	dur := t.Sub(r.lastAt).Seconds()
	rps := 0.0           // successful requests per second in the last period
	arps := 0.0          // attempts per second in the last period
	successRate := 0.0   // success rate in % since start
	intervalSRate := 0.0 // success rate in % in the last period

	if dur > 0 {
		rps = float64(ic.Success) / dur
		arps = float64(ic.Attempts) / dur
	}

	if att > 0 {
		successRate = (float64(suc) / float64(att)) * 100
	}

	if ic.Attempts > 0 {
		intervalSRate = (float64(ic.Success) / float64(ic.Attempts)) * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[stats] elapsed=%v attempts=%d success=%d fail=%d rps=%.2f arps=%.2f srate=%.2f%% israte=%.2f%% ds=%d df=%d",
		time.Since(r.m.Start).Truncate(time.Second), att, suc, r.m.Fail.Load(), rps, arps, successRate, intervalSRate, ic.Success, ic.Fail)

	for _, s := range snaps {
		if s.Count == 0 && s.Dropped == 0 {
			continue
		}

		fmt.Fprintf(&b, " %s[n=%d p50=%.2f p95=%.2f p99=%.2f max=%.2f drop=%d wrap=%d]",
			strings.TrimSuffix(s.Name, "_latency_us"), s.Count,
			ms(s.Value(sampler.BucketP50)), ms(s.Value(sampler.BucketP95)),
			ms(s.Value(sampler.BucketP99)), ms(s.Value(sampler.BucketMax)),
			s.Dropped, s.Wraps)
	}

	fmt.Fprintln(r.out, b.String())
}

// PrintSummary writes the final summary to the given writer.
func PrintSummary(w io.Writer, m *metrics.Metrics, elapsed time.Duration, totals []SeriesTotals) {
	att, suc, fal, _ := m.Snapshot()

	var rps float64
	if elapsed > 0 {
		rps = float64(suc) / elapsed.Seconds()
	}

	fmt.Fprintf(w, "\n==== Summary ====\n")
	fmt.Fprintf(w, "elapsed: %v\n", elapsed.Truncate(time.Millisecond))
	fmt.Fprintf(w, "attempts: %d\n", att)
	fmt.Fprintf(w, "success: %d\n", suc)
	fmt.Fprintf(w, "fail: %d\n", fal)
	fmt.Fprintf(w, "avg rps (success): %.2f\n", rps)

	for _, t := range totals {
		if t.Count == 0 && t.Dropped == 0 {
			continue
		}

		fmt.Fprintf(w, "latency (%s): count=%d worst_p99_ms=%.2f worst_max_ms=%.2f dropped=%d wraps=%d\n",
			strings.TrimSuffix(t.Name, "_latency_us"), t.Count, ms(t.WorstP99), ms(t.WorstMax), t.Dropped, t.Wraps)
	}
}
