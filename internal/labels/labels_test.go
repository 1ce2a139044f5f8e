package labels

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opLabel string

func (o opLabel) LabelValues() []string { return []string{string(o)} }

func TestCounterWithLabels_SeedsPossibleValues(t *testing.T) {
	reg := prometheus.NewRegistry()

	c, err := NewCounterWithLabels(reg,
		prometheus.CounterOpts{Namespace: "test", Name: "ops_total", Help: "ops"},
		[]string{"op"},
		[]opLabel{"bind", "search"},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(c.Vec()))
	assert.Zero(t, testutil.ToFloat64(c.Vec().WithLabelValues("bind")))

	c.Inc("bind")
	c.Add("search", 3)
	c.Inc("lookup")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Vec().WithLabelValues("bind")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Vec().WithLabelValues("search")))
	assert.Equal(t, 3, testutil.CollectAndCount(c.Vec()))
}

func TestGaugeWithLabels_NotSeededByDefault(t *testing.T) {
	reg := prometheus.NewRegistry()

	g, err := NewGaugeWithLabels[opLabel](reg,
		prometheus.GaugeOpts{Namespace: "test", Name: "inflight", Help: "in flight"},
		[]string{"op"},
	)
	require.NoError(t, err)
	assert.Zero(t, testutil.CollectAndCount(g.Vec()))

	g.Seed([]opLabel{"bind"})
	assert.Equal(t, 1, testutil.CollectAndCount(g.Vec()))

	g.Set("bind", 12)
	assert.Equal(t, 12.0, testutil.ToFloat64(g.Vec().WithLabelValues("bind")))
}

func TestRegister_Duplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := prometheus.GaugeOpts{Namespace: "test", Name: "dup", Help: "dup"}

	_, err := NewGaugeWithLabels[opLabel](reg, opts, []string{"op"})
	require.NoError(t, err)

	_, err = NewGaugeWithLabels[opLabel](reg, opts, []string{"op"})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegister_NilRegisterer(t *testing.T) {
	_, err := NewCounterWithLabels[opLabel](nil, prometheus.CounterOpts{Name: "x", Help: "x"}, []string{"op"}, nil)
	require.Error(t, err)
}
