package main

// Entry point for the ldapsampler CLI. Parses configuration, loads CSV users,
// initializes the LDAP client and the per-operation latency samplers, then
// runs the workers while the reporter drains every sampler into the
// configured sinks each interval.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/croessner/ldapsampler/internal/check"
	"github.com/croessner/ldapsampler/internal/config"
	"github.com/croessner/ldapsampler/internal/csvdata"
	"github.com/croessner/ldapsampler/internal/ldapclient"
	"github.com/croessner/ldapsampler/internal/metrics"
	"github.com/croessner/ldapsampler/internal/report"
	"github.com/croessner/ldapsampler/internal/runner"
	"github.com/croessner/ldapsampler/internal/server"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.ParseArgs(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}

		fmt.Fprintf(stderr, "config error: %v\n", err)

		return 2
	}

	logger := cfg.Logger(stderr)
	slog.SetDefault(logger)

	// Check-only mode: run quick validations/tests and exit.
	if cfg.CheckOnly {
		if err := check.Run(cfg, stdout); err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)

			return 2
		}

		fmt.Fprintln(stdout, "check: OK")

		return 0
	}

	users, err := csvdata.Load(cfg.CSVPath)
	if err != nil {
		fmt.Fprintf(stderr, "csv error: %v\n", err)

		return 2
	}

	client, err := ldapclient.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "ldap client error: %v\n", err)

		return 2
	}

	defer client.Close()

	// Validate lookup bind works upfront so the samples aren't skewed by initial failures.
	if err := client.BindLookup(); err != nil {
		fmt.Fprintf(stderr, "lookup bind failed: %v\n", err)

		return 2
	}

	m := metrics.New(cfg.WindowCapacity)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sinks, closeSinks, err := buildSinks(cfg, reg, m.Series(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "sink error: %v\n", err)

		return 2
	}

	defer closeSinks()

	logger.Info("Starting workload",
		"mode", cfg.Mode,
		"users", users.Len(),
		"concurrency", cfg.Concurrency,
		"duration", cfg.Duration,
		"sample_interval", cfg.SampleInterval,
		"window_capacity", cfg.WindowCapacity,
		"observation_budget_per_sec", cfg.ObservationBudget(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reporter := report.New(m, cfg.SampleInterval,
		report.WithSinks(sinks...),
		report.WithOutput(stdout),
		report.WithLogger(logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	bgCtx, cancelBg := context.WithCancel(gctx)
	defer cancelBg()

	g.Go(func() error {
		reporter.Run(bgCtx)

		return nil
	})

	if cfg.MetricsListen != "" {
		srv := server.New(cfg.MetricsListen, cfg.MetricsPath, reg, logger)
		g.Go(func() error { return srv.Run(bgCtx) })
	}

	var elapsed time.Duration
	g.Go(func() error {
		defer cancelBg()

		start := time.Now()
		err := runner.New(cfg, client, users, m, logger).Run(gctx)
		elapsed = time.Since(start)

		return err
	})

	err = g.Wait()

	reporter.Stop()
	reporter.Flush()

	report.PrintSummary(stdout, m, elapsed, reporter.Totals())
	if err != nil {
		fmt.Fprintf(stderr, "run error: %v\n", err)

		return 1
	}

	return 0
}
