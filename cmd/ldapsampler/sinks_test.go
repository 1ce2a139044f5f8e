package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croessner/ldapsampler/internal/config"
	"github.com/croessner/ldapsampler/internal/metrics"
)

func familyNames(t *testing.T, reg *prometheus.Registry) []string {
	t.Helper()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}

	return names
}

func TestBuildSinks_AllEnabled(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "summary.csv")
	cfg := &config.Config{OTel: true, SummaryLogPath: logPath, SummaryLogBatch: 1}

	m := metrics.New(16)
	m.Observe(metrics.OpBind, 2*time.Millisecond)

	reg := prometheus.NewRegistry()
	sinks, closeSinks, err := buildSinks(cfg, reg, m.Series(), nil)
	require.NoError(t, err)
	require.Len(t, sinks, 3)

	for _, s := range m.Series() {
		snap := s.Sample()
		for _, sink := range sinks {
			sink.Publish(snap)
		}
	}

	names := familyNames(t, reg)
	assert.Contains(t, names, "ldapsampler_bind_latency_us")
	assert.Contains(t, names, "ldapsampler_lookup_latency_us")
	assert.Contains(t, names, "ldapsampler_sampler_dropped_total")

	var otelSeen bool
	for _, n := range names {
		if strings.HasPrefix(n, "ldapsampler_otel_summary") {
			otelSeen = true
		}
	}
	assert.True(t, otelSeen, "otel summary family missing in %v", names)

	closeSinks()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bind_latency_us")
}

func TestBuildSinks_PrometheusOnly(t *testing.T) {
	m := metrics.New(16)

	sinks, closeSinks, err := buildSinks(&config.Config{}, prometheus.NewRegistry(), m.Series(), nil)
	require.NoError(t, err)
	defer closeSinks()

	assert.Len(t, sinks, 1)
}

func TestRun_ConfigErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run([]string{"--mode", "bogus"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "config error")

	stderr.Reset()
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
}
