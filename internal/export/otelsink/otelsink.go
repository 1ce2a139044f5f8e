package otelsink

// Package otelsink exposes sampler snapshots through OpenTelemetry observable
// instruments. Publish stores the latest snapshot per series; the registered
// callback reports it on every collection.

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/croessner/ldapsampler/internal/sampler"
)

// ErrNilMeter is returned by New when no meter is given.
var ErrNilMeter = errors.New("nil meter")

type seriesState struct {
	last    sampler.Snapshot
	dropped int64
}

// Sink holds the instruments and the last published state of each series.
type Sink struct {
	registration metric.Registration

	buckets metric.Int64ObservableGauge
	dropped metric.Int64ObservableCounter
	wraps   metric.Int64ObservableGauge

	mu     sync.RWMutex
	series map[string]*seriesState
	order  []string
}

// New creates the instruments under prefix and registers the callback.
func New(meter metric.Meter, prefix string) (*Sink, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	s := &Sink{series: make(map[string]*seriesState)}

	var err error

	s.buckets, err = meter.Int64ObservableGauge(prefix+"_summary",
		metric.WithDescription("Sampled distribution per series and bucket."))
	if err != nil {
		return nil, fmt.Errorf("create summary gauge: %w", err)
	}

	s.dropped, err = meter.Int64ObservableCounter(prefix+"_sampler_dropped",
		metric.WithDescription("Observations dropped because the window was being sampled."))
	if err != nil {
		return nil, fmt.Errorf("create dropped counter: %w", err)
	}

	s.wraps, err = meter.Int64ObservableGauge(prefix+"_sampler_wraps",
		metric.WithDescription("Times the window overflowed its capacity in the last interval."))
	if err != nil {
		return nil, fmt.Errorf("create wraps gauge: %w", err)
	}

	s.registration, err = meter.RegisterCallback(s.observe, s.buckets, s.dropped, s.wraps)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	return s, nil
}

// Bind makes a series visible with zero values before its first snapshot.
func (s *Sink) Bind(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stateLocked(name)
}

func (s *Sink) stateLocked(name string) *seriesState {
	st, ok := s.series[name]
	if !ok {
		st = &seriesState{last: sampler.Snapshot{
			Name:    name,
			Buckets: sampler.Summary[int64]{}.BucketPairs(),
		}}
		s.series[name] = st
		s.order = append(s.order, name)
	}

	return st
}

// Publish replaces the last snapshot of the series and accumulates drops.
func (s *Sink) Publish(snap sampler.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(snap.Name)
	st.last = snap
	st.dropped += int64(snap.Dropped)
}

func (s *Sink) observe(_ context.Context, o metric.Observer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.order {
		st := s.series[name]
		series := attribute.String("series", name)

		for _, bv := range st.last.Buckets {
			o.ObserveInt64(s.buckets, bv.Value,
				metric.WithAttributes(series, attribute.String(sampler.BucketLabel, bv.Bucket.String())))
		}

		o.ObserveInt64(s.dropped, st.dropped, metric.WithAttributes(series))
		o.ObserveInt64(s.wraps, int64(st.last.Wraps), metric.WithAttributes(series))
	}

	return nil
}

// Close unregisters the callback.
func (s *Sink) Close() error {
	if s == nil || s.registration == nil {
		return nil
	}

	return s.registration.Unregister()
}
