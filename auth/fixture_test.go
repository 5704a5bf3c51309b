package auth_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/sdkfake"
	"github.com/jrsteele09/go-dashboard-gateway/location"
	"github.com/jrsteele09/go-dashboard-gateway/session"
	"github.com/stretchr/testify/require"
)

const (
	liveBaseURL = "https://tasks.example.com"
	devBaseURL  = "http://localhost:4200"
)

// testFixture holds all test dependencies
type testFixture struct {
	kc        config.Keycloak
	sdk       *sdkfake.SDK
	loc       *location.Memory
	transport *sdkfake.Transport
	store     *session.Handle
	svc       *auth.Service
}

type fixtureOptions struct {
	url     string
	offline bool
	service []auth.ServiceOption
}

// setupLive creates a fixture served from a production host.
func setupLive(t *testing.T, path string, opts ...auth.ServiceOption) *testFixture {
	t.Helper()
	return setupTestFixture(t, fixtureOptions{url: liveBaseURL + path, service: opts})
}

// setupOffline creates a fixture served from localhost with offline mode on.
func setupOffline(t *testing.T, path string, opts ...auth.ServiceOption) *testFixture {
	t.Helper()
	return setupTestFixture(t, fixtureOptions{url: devBaseURL + path, offline: true, service: opts})
}

func setupTestFixture(t *testing.T, opts fixtureOptions) *testFixture {
	t.Helper()

	kc := config.DefaultKeycloak(liveBaseURL)
	kc.Offline = opts.offline

	loc, err := location.NewMemory(opts.url)
	require.NoError(t, err)

	sealer, err := session.NewSealer("test-secret")
	require.NoError(t, err)
	store, err := session.NewStore(session.NewMemoryRepo(), sealer, time.Hour).Open(t.Context(), "")
	require.NoError(t, err)

	sdk := sdkfake.New()
	transport := &sdkfake.Transport{}
	svc, err := auth.NewService(kc, sdk, loc, append([]auth.ServiceOption{auth.WithTransport(transport)}, opts.service...)...)
	require.NoError(t, err)

	return &testFixture{
		kc:        kc,
		sdk:       sdk,
		loc:       loc,
		transport: transport,
		store:     store,
		svc:       svc,
	}
}

func sessionLogin(token string) session.Login {
	return session.Login{Token: token, Roles: []string{"user"}}
}
