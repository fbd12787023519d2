package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/senecgrab/senecgrab/pkg/controller"
	"github.com/senecgrab/senecgrab/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

type fakeStatus struct {
	status controller.Status
}

func (f fakeStatus) Status() controller.Status {
	return f.status
}

func newTestServer(status StatusProvider) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "senecgrab_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	cfg := &Config{ListenAddr: "127.0.0.1:0", ServerName: "senecgrab-test"}
	return cfg.New(status, reg)
}

func TestHandler(t *testing.T) {
	success := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := newTestServer(fakeStatus{status: controller.Status{
		Authenticated:       true,
		LastAttempt:         success,
		LastSuccess:         success,
		ConsecutiveFailures: 0,
		Entries:             21,
	}})
	h := srv.setupHandler()

	t.Run("Healthz", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
		assert.Equal(t, "senecgrab-test", w.Header().Get("Server"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("Status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var got map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, true, got["authenticated"])
		assert.Equal(t, float64(21), got["entries"])
		assert.Equal(t, "2024-05-01T12:00:00Z", got["lastSuccess"])
		assert.NotEmpty(t, got["version"])
		assert.NotContains(t, got, "lastError")
	})

	t.Run("Status Wrong Method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("Metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "senecgrab_test_total 1")
		assert.Contains(t, w.Body.String(), "go_goroutines")
	})

	t.Run("Metrics Gzipped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Contains(t, string(body), "senecgrab_test_total 1")
	})
}

func TestHandlerWithoutController(t *testing.T) {
	h := newTestServer(nil).setupHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"controller not running"}`, w.Body.String())
}

func TestRevisionMiddleware(t *testing.T) {
	srv := &Server{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	w := httptest.NewRecorder()
	srv.revisionMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, w.Header().Get("Server"))
}

func TestRun(t *testing.T) {
	srv := newTestServer(fakeStatus{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// give ListenAndServe a moment before shutting down
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunListenError(t *testing.T) {
	srv := (&Config{ListenAddr: "not-an-address"}).New(fakeStatus{}, prometheus.NewRegistry())
	err := srv.Run(context.Background())
	assert.ErrorContains(t, err, "server error")
}

func TestConfigEnabled(t *testing.T) {
	assert.True(t, (&Config{ListenAddr: ":8080"}).Enabled())
	assert.False(t, (&Config{}).Enabled())
}
