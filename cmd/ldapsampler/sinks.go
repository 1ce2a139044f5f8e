package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/croessner/ldapsampler/internal/config"
	"github.com/croessner/ldapsampler/internal/export/csvlog"
	"github.com/croessner/ldapsampler/internal/export/otelsink"
	"github.com/croessner/ldapsampler/internal/export/prom"
	"github.com/croessner/ldapsampler/internal/metrics"
	"github.com/croessner/ldapsampler/internal/report"
)

const (
	namespace = "ldapsampler"
	meterName = "github.com/croessner/ldapsampler"
)

// buildSinks creates every configured sink and binds the series so they are
// visible before the first sample. The returned func closes them in reverse
// order.
func buildSinks(cfg *config.Config, reg *prometheus.Registry, series []metrics.LatencySeries, logger *slog.Logger) ([]report.Sink, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		sinks   []report.Sink
		closers []func()
	)

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	promSink, err := prom.NewSink(reg, namespace, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("prometheus sink: %w", err)
	}

	for _, s := range series {
		op := strings.TrimSuffix(s.Name(), "_latency_us")
		if err := promSink.Bind(s.Name(), fmt.Sprintf("Sampled LDAP %s latency in microseconds per bucket", op)); err != nil {
			return nil, nil, err
		}
	}

	sinks = append(sinks, promSink)

	if cfg.OTel {
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, nil, fmt.Errorf("otel exporter: %w", err)
		}

		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
		closers = append(closers, func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.Warn("OTel provider shutdown failed", "error", err)
			}
		})

		otelSink, err := otelsink.New(provider.Meter(meterName), namespace+"_otel")
		if err != nil {
			closeAll()

			return nil, nil, fmt.Errorf("otel sink: %w", err)
		}

		for _, s := range series {
			otelSink.Bind(s.Name())
		}

		sinks = append(sinks, otelSink)
		closers = append(closers, func() {
			if err := otelSink.Close(); err != nil {
				logger.Warn("OTel sink close failed", "error", err)
			}
		})
	}

	if cl := csvlog.New(cfg.SummaryLogPath, cfg.SummaryLogBatch, logger); cl != nil {
		sinks = append(sinks, cl)
		closers = append(closers, cl.Close)
	}

	return sinks, closeAll, nil
}
