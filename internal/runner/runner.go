package runner

// Package runner orchestrates the workload: it spins up workers, applies
// optional global rate limiting, and records counters and per-operation
// latencies for each attempt.

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/croessner/ldapsampler/internal/config"
	"github.com/croessner/ldapsampler/internal/csvdata"
	"github.com/croessner/ldapsampler/internal/ldapclient"
	"github.com/croessner/ldapsampler/internal/metrics"
)

// Runner holds the components required to execute a scenario.
type Runner struct {
	cfg    *config.Config
	client ldapclient.Client
	users  *csvdata.Users
	m      *metrics.Metrics
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Runner.
func New(cfg *config.Config, client ldapclient.Client, users *csvdata.Users, m *metrics.Metrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{cfg: cfg, client: client, users: users, m: m, logger: logger, now: time.Now}
}

// Run executes until the configured duration elapses or the context is
// canceled. Reaching either is not an error.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	var limiter *rate.Limiter
	if r.cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.Rate), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Concurrency; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return nil
					}
				}

				r.runOnce()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// timed runs fn and records its latency under op, whatever the outcome.
func (r *Runner) timed(op metrics.Op, fn func() error) error {
	start := r.now()
	err := fn()
	r.m.Observe(op, r.now().Sub(start))

	return err
}

// runOnce performs a single attempt depending on the configured mode.
func (r *Runner) runOnce() {
	r.m.Attempt()
	user := r.users.All[rand.Intn(len(r.users.All))]

	var dn string
	err := r.timed(metrics.OpLookup, func() error {
		var err error
		dn, err = r.client.LookupDN(user.Username)

		return err
	})
	if err != nil {
		r.fail("lookup", user.Username, err)

		return
	}

	if r.cfg.Mode == config.ModeAuth || r.cfg.Mode == config.ModeBoth {
		if err := r.timed(metrics.OpBind, func() error { return r.client.UserBind(dn, user.Password) }); err != nil {
			r.fail("bind", user.Username, err)

			return
		}
	}

	if r.cfg.Mode == config.ModeSearch || r.cfg.Mode == config.ModeBoth {
		filter := r.prepareFilter(user.Username)
		if err := r.timed(metrics.OpSearch, func() error {
			_, err := r.client.UserSearch(dn, user.Password, filter)

			return err
		}); err != nil {
			r.fail("search", user.Username, err)

			return
		}
	}

	r.m.Succeeded()
}

func (r *Runner) fail(op, username string, err error) {
	r.m.Failed()
	r.logger.Debug("Attempt failed", "operation", op, "username", username, "error", err)
}

func (r *Runner) prepareFilter(username string) string {
	return ldapclient.UserFilter(r.cfg.Filter, username)
}
