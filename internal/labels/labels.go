package labels

// Package labels wraps Prometheus vectors with a typed label set, so that a
// metric cannot be emitted with missing or misordered label values.
//
// Every constructor takes an explicit prometheus.Registerer; nothing registers
// with the process-wide default registry.

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrAlreadyRegistered is returned when a metric with the same descriptor
// exists in the registry.
var ErrAlreadyRegistered = errors.New("metric already registered")

// Labels is implemented by types that describe the label values of one
// observation. The values must follow the order of the label names the
// metric was created with.
type Labels interface {
	LabelValues() []string
}

func register(reg prometheus.Registerer, c prometheus.Collector, name string) error {
	if reg == nil {
		return fmt.Errorf("register %s: nil registerer", name)
	}

	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
		}

		return fmt.Errorf("register %s: %w", name, err)
	}

	return nil
}

// CounterWithLabels is a counter vector keyed by L.
type CounterWithLabels[L Labels] struct {
	vec *prometheus.CounterVec
}

// NewCounterWithLabels creates and registers a counter vector. Each entry of
// possible is initialized at 0 so that the series shows up before the first
// event; the list does not need to be exhaustive.
func NewCounterWithLabels[L Labels](reg prometheus.Registerer, opts prometheus.CounterOpts, names []string, possible []L) (*CounterWithLabels[L], error) {
	vec := prometheus.NewCounterVec(opts, names)
	if err := register(reg, vec, prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)); err != nil {
		return nil, err
	}

	for _, l := range possible {
		vec.WithLabelValues(l.LabelValues()...).Add(0)
	}

	return &CounterWithLabels[L]{vec: vec}, nil
}

// Inc increments the counter for l.
func (c *CounterWithLabels[L]) Inc(l L) {
	c.vec.WithLabelValues(l.LabelValues()...).Inc()
}

// Add adds v to the counter for l. Negative values panic, as in Prometheus.
func (c *CounterWithLabels[L]) Add(l L, v float64) {
	c.vec.WithLabelValues(l.LabelValues()...).Add(v)
}

// Vec exposes the underlying vector.
func (c *CounterWithLabels[L]) Vec() *prometheus.CounterVec { return c.vec }

// GaugeWithLabels is a gauge vector keyed by L.
type GaugeWithLabels[L Labels] struct {
	vec *prometheus.GaugeVec
}

// NewGaugeWithLabels creates and registers a gauge vector. Unlike counters,
// gauges are not pre-populated: a gauge always has a value and 0 is not a safe
// assumption in general. Use Seed where it is.
func NewGaugeWithLabels[L Labels](reg prometheus.Registerer, opts prometheus.GaugeOpts, names []string) (*GaugeWithLabels[L], error) {
	vec := prometheus.NewGaugeVec(opts, names)
	if err := register(reg, vec, prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)); err != nil {
		return nil, err
	}

	return &GaugeWithLabels[L]{vec: vec}, nil
}

// Seed sets each label set in possible to 0.
func (g *GaugeWithLabels[L]) Seed(possible []L) {
	for _, l := range possible {
		g.vec.WithLabelValues(l.LabelValues()...).Set(0)
	}
}

// Set sets the gauge for l.
func (g *GaugeWithLabels[L]) Set(l L, v int64) {
	g.vec.WithLabelValues(l.LabelValues()...).Set(float64(v))
}

// Vec exposes the underlying vector.
func (g *GaugeWithLabels[L]) Vec() *prometheus.GaugeVec { return g.vec }
