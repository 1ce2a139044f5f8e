package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()

	reg := prometheus.NewRegistry()
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "ldapsampler_bind_latency_us", Help: "h"}, []string{"bucket"})
	require.NoError(t, reg.Register(g))
	g.WithLabelValues("p99").Set(1234)

	return reg
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	return rec.Code, string(body)
}

func TestHandlerServesMetrics(t *testing.T) {
	s := New(":0", "/custom", testRegistry(t), nil)

	code, body := get(t, s.Handler(), "/custom")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `ldapsampler_bind_latency_us{bucket="p99"} 1234`)

	code, body = get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)

	code, body = get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `href="/custom"`)

	code, _ = get(t, s.Handler(), "/nope")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDefaultPath(t *testing.T) {
	s := New(":0", "", testRegistry(t), nil)

	code, _ := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(ln.Addr().String(), "/metrics", testRegistry(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunListenError(t *testing.T) {
	s := New("256.0.0.1:bad", "/metrics", testRegistry(t), nil)

	err := s.Run(context.Background())
	assert.Error(t, err)
}
