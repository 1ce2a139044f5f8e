package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/croessner/ldapsampler/internal/config"
	"github.com/croessner/ldapsampler/internal/csvdata"
	"github.com/croessner/ldapsampler/internal/metrics"
	"github.com/croessner/ldapsampler/internal/sampler"
)

type fakeClient struct {
	bindErr   error
	searchErr error
}

func (f *fakeClient) BindLookup() error                                   { return nil }
func (f *fakeClient) LookupDN(username string) (string, error)            { return "dn-" + username, nil }
func (f *fakeClient) UserBind(dn, password string) error                  { return f.bindErr }
func (f *fakeClient) UserSearch(dn, password, filter string) (int, error) { return 1, f.searchErr }
func (f *fakeClient) Close()                                              {}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)

	return func() time.Time {
		t = t.Add(step)

		return t
	}
}

func newRunner(mode config.Mode, client *fakeClient) (*Runner, *metrics.Metrics) {
	cfg := &config.Config{Mode: mode, Filter: "(uid=%s)"}
	users := &csvdata.Users{All: []csvdata.User{{Username: "bob", Password: "pw"}}}
	m := metrics.New(64)

	r := New(cfg, client, users, m, nil)
	r.now = steppingClock(time.Millisecond)

	return r, m
}

func TestPrepareFilter(t *testing.T) {
	cfg := &config.Config{Filter: "(uid=%s)"}
	r := &Runner{cfg: cfg}

	if got := r.prepareFilter("alice"); got != "(uid=alice)" {
		t.Fatalf("unexpected filter: %s", got)
	}

	if got := r.prepareFilter("a*b"); got != `(uid=a\2ab)` {
		t.Fatalf("username must be escaped: %s", got)
	}

	cfg2 := &config.Config{Filter: "(objectClass=person)"}
	r2 := &Runner{cfg: cfg2}

	if got := r2.prepareFilter("ignored"); got != cfg2.Filter {
		t.Fatalf("unexpected filter passthrough: %s", got)
	}
}

func TestRunOnce_ModeAuth_Success(t *testing.T) {
	r, m := newRunner(config.ModeAuth, &fakeClient{})

	r.runOnce()

	att, suc, fal, _ := m.Snapshot()
	if att != 1 || suc != 1 || fal != 0 {
		t.Fatalf("metrics mismatch: att=%d suc=%d fail=%d", att, suc, fal)
	}

	lookup := m.Recorder(metrics.OpLookup).Sample()
	bind := m.Recorder(metrics.OpBind).Sample()
	search := m.Recorder(metrics.OpSearch).Sample()

	if lookup.Count != 1 || bind.Count != 1 || search.Count != 0 {
		t.Fatalf("unexpected latency counts: lookup=%d bind=%d search=%d", lookup.Count, bind.Count, search.Count)
	}

	if bind.Max != time.Millisecond {
		t.Fatalf("unexpected bind latency: %v", bind.Max)
	}
}

func TestRunOnce_ModeBoth_BindFailure(t *testing.T) {
	r, m := newRunner(config.ModeBoth, &fakeClient{bindErr: errors.New("invalid credentials")})

	r.runOnce()

	_, suc, fal, _ := m.Snapshot()
	if suc != 0 || fal != 1 {
		t.Fatalf("metrics mismatch: suc=%d fail=%d", suc, fal)
	}

	if got := m.Recorder(metrics.OpBind).Sample().Count; got != 1 {
		t.Fatalf("failed bind latency should still be recorded, got %d", got)
	}

	if got := m.Recorder(metrics.OpSearch).Sample().Count; got != 0 {
		t.Fatalf("search must not run after a failed bind, got %d", got)
	}
}

func TestRunOnce_ModeSearch(t *testing.T) {
	r, m := newRunner(config.ModeSearch, &fakeClient{})

	r.runOnce()

	if got := m.Recorder(metrics.OpBind).Sample().Count; got != 0 {
		t.Fatalf("search mode must not bind separately, got %d", got)
	}

	if got := m.Recorder(metrics.OpSearch).Sample(); got.Count != 1 {
		t.Fatalf("unexpected search sample: %+v", got)
	}
}

func TestRun_StopsAtDuration(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeAuth, Concurrency: 4, Duration: 50 * time.Millisecond, Rate: 200}
	users := &csvdata.Users{All: []csvdata.User{{Username: "bob", Password: "pw"}}}
	m := metrics.New(sampler.DefaultCapacity)

	r := New(cfg, &fakeClient{}, users, m, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	att, suc, _, _ := m.Snapshot()
	if att == 0 || att != suc {
		t.Fatalf("unexpected counts: attempts=%d success=%d", att, suc)
	}

	// 200/s for 50ms with a burst of 1 allows only a handful of attempts.
	if att > 30 {
		t.Fatalf("rate limit not applied: %d attempts", att)
	}
}
