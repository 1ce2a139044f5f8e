package prom

// Package prom publishes sampler snapshots as Prometheus gauges: one vector
// per series labeled by bucket, plus shared drop and wrap series keyed by the
// series name.

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/croessner/ldapsampler/internal/labels"
	"github.com/croessner/ldapsampler/internal/sampler"
)

type seriesLabel string

func (s seriesLabel) LabelValues() []string { return []string{string(s)} }

// Sink owns the Prometheus collectors of every bound series.
type Sink struct {
	reg       prometheus.Registerer
	namespace string
	logger    *slog.Logger

	dropped *labels.CounterWithLabels[seriesLabel]
	wraps   *labels.GaugeWithLabels[seriesLabel]

	mu     sync.Mutex
	series map[string]*labels.GaugeWithLabels[sampler.Bucket]
}

// NewSink registers the sampler health metrics with reg.
func NewSink(reg prometheus.Registerer, namespace string, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dropped, err := labels.NewCounterWithLabels[seriesLabel](reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sampler",
		Name:      "dropped_total",
		Help:      "Observations dropped because the window was being sampled",
	}, []string{"series"}, nil)
	if err != nil {
		return nil, err
	}

	wraps, err := labels.NewGaugeWithLabels[seriesLabel](reg, prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sampler",
		Name:      "wraps",
		Help:      "Times the window overflowed its capacity in the last interval",
	}, []string{"series"})
	if err != nil {
		return nil, err
	}

	return &Sink{
		reg:       reg,
		namespace: namespace,
		logger:    logger,
		dropped:   dropped,
		wraps:     wraps,
		series:    make(map[string]*labels.GaugeWithLabels[sampler.Bucket]),
	}, nil
}

// Bind registers the bucket gauge of a series and seeds every bucket at 0.
// Binding the same name twice is a no-op.
func (s *Sink) Bind(name, help string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.bindLocked(name, help)

	return err
}

func (s *Sink) bindLocked(name, help string) (*labels.GaugeWithLabels[sampler.Bucket], error) {
	if g, ok := s.series[name]; ok {
		return g, nil
	}

	g, err := labels.NewGaugeWithLabels[sampler.Bucket](s.reg, prometheus.GaugeOpts{
		Namespace: s.namespace,
		Name:      name,
		Help:      help,
	}, sampler.BucketLabelNames())
	if err != nil {
		return nil, fmt.Errorf("bind series %s: %w", name, err)
	}

	g.Seed(sampler.AllBuckets())
	s.dropped.Add(seriesLabel(name), 0)
	s.wraps.Set(seriesLabel(name), 0)
	s.series[name] = g

	return g, nil
}

// Publish exports snap. Series that were not bound are bound on first use.
func (s *Sink) Publish(snap sampler.Snapshot) {
	s.mu.Lock()
	g, err := s.bindLocked(snap.Name, "Sampled distribution of "+snap.Name)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Prometheus series unavailable", "series", snap.Name, "error", err)

		return
	}

	for _, bv := range snap.Buckets {
		g.Set(bv.Bucket, bv.Value)
	}

	s.dropped.Add(seriesLabel(snap.Name), float64(snap.Dropped))
	s.wraps.Set(seriesLabel(snap.Name), int64(snap.Wraps))
}
