package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/internal/metrics"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/authflow"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/keycloaktest"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/sdkfake"
	"github.com/jrsteele09/go-dashboard-gateway/server"
	"github.com/jrsteele09/go-dashboard-gateway/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	liveBaseURL = "https://tasks.example.com"
	devBaseURL  = "http://localhost:4200"
)

type testConfig struct {
	config.EnvVars
	config.Cors
	config.Keycloak
	config.Sessions
}

// testFixture holds all test dependencies
type testFixture struct {
	server    *server.Server
	realm     *keycloaktest.Server
	transport *sdkfake.Transport
	cookies   map[string]*http.Cookie
}

type fixtureOptions struct {
	offline     bool
	providerURL string
}

func setupTestFixture(t *testing.T, opts fixtureOptions) *testFixture {
	t.Helper()

	realm := keycloaktest.New(t)
	kc := config.DefaultKeycloak(liveBaseURL)
	kc.Offline = opts.offline
	kc.Provider = realm.ProviderConfig(liveBaseURL)
	if opts.providerURL != "" {
		kc.Provider.URL = opts.providerURL
	}

	sealer, err := session.NewSealer("test-secret")
	require.NoError(t, err)
	sessions := session.NewStore(session.NewMemoryRepo(), sealer, time.Hour, session.WithRememberMeAge(24*time.Hour))

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry, registry)
	require.NoError(t, err)

	transport := &sdkfake.Transport{Response: keycloak.Response{OK: true, Status: http.StatusOK}}
	srv, err := server.New(
		testConfig{Keycloak: kc},
		sessions,
		authflow.NewCacheRepo(authflow.DefaultTTL),
		keycloak.NewProviders(realm.Client()),
		m,
		server.WithTransport(transport),
		server.WithInitTimeout(5*time.Second),
	)
	require.NoError(t, err)

	return &testFixture{
		server:    srv,
		realm:     realm,
		transport: transport,
		cookies:   map[string]*http.Cookie{},
	}
}

// do serves the request, sending and keeping cookies like a browser would.
func (f *testFixture) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	res := rec.Result()
	for _, c := range res.Cookies() {
		if c.MaxAge < 0 {
			delete(f.cookies, c.Name)
			continue
		}
		f.cookies[c.Name] = c
	}
	return res
}

func (f *testFixture) get(t *testing.T, rawURL string) *http.Response {
	t.Helper()
	return f.do(t, httptest.NewRequest(http.MethodGet, rawURL, nil))
}

func (f *testFixture) post(t *testing.T, rawURL string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req)
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func TestServer_Index(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	res := f.get(t, liveBaseURL+"/")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/dashboard", res.Header.Get("Location"))
}

func TestServer_HealthAndStatic(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	res := f.get(t, liveBaseURL+"/healthz")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, body(t, res))

	res = f.get(t, liveBaseURL+"/assets/silent-check-sso.html")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/html")
	require.Equal(t, "no-store", res.Header.Get("Cache-Control"))
	require.Contains(t, body(t, res), "parent.postMessage")

	res = f.get(t, liveBaseURL+"/css/dashboard.css")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "public, max-age=300, must-revalidate", res.Header.Get("Cache-Control"))

	res = f.get(t, liveBaseURL+"/css/missing.css")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestServer_CORSPreflight(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com")
	f := setupTestFixture(t, fixtureOptions{})

	req := httptest.NewRequest(http.MethodOptions, liveBaseURL+"/api/auth/status", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	res := f.do(t, req)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "https://admin.example.com", res.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, liveBaseURL+"/api/auth/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	res = f.do(t, req)
	require.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}
