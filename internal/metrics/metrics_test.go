package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/go-dashboard-gateway/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newMetrics(t *testing.T) (*metrics.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, reg)
	require.NoError(t, err)
	return m, reg
}

func TestMetrics_Counters(t *testing.T) {
	m, reg := newMetrics(t)

	m.GuardOutcome("allow")
	m.GuardOutcome("deny_redirect")
	m.GuardOutcome("deny_redirect")
	m.Initialize("production", false, errors.New("timeout"))
	m.Initialize("development", true, nil)
	m.Callback("succeeded")

	expected := `
# HELP auth_guard_outcomes_total Route guard decisions by outcome
# TYPE auth_guard_outcomes_total counter
auth_guard_outcomes_total{outcome="allow"} 1
auth_guard_outcomes_total{outcome="deny_redirect"} 2
# HELP auth_initialize_total Identity provider initializations by mode and result
# TYPE auth_initialize_total counter
auth_initialize_total{mode="development",result="authenticated"} 1
auth_initialize_total{mode="production",result="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "auth_guard_outcomes_total", "auth_initialize_total"))
}

func TestMetrics_ReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := metrics.New(reg, reg)
	require.NoError(t, err)
	second, err := metrics.New(reg, reg)
	require.NoError(t, err)

	first.Callback("failed")
	second.Callback("failed")

	count, err := testutil.GatherAndCount(reg, "auth_callback_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMetrics_Middleware(t *testing.T) {
	m, reg := newMetrics(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/login/{provider}", m.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	}))
	mux.Handle("GET /metrics", m.Handler())

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/login/google", nil))
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/login/github", nil))

	expected := `
# HELP http_requests_total HTTP requests processed
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/auth/login/{provider}",status="303"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "http_request_duration_seconds")
}

func TestMetrics_Nil(t *testing.T) {
	var m *metrics.Metrics
	m.GuardOutcome("allow")
	m.Initialize("production", true, nil)
	m.Callback("none")

	called := false
	m.Middleware(func(http.ResponseWriter, *http.Request) { called = true })(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}
