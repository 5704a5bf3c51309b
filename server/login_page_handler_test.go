package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/go-dashboard-gateway/keycloak/keycloaktest"
	"github.com/stretchr/testify/require"
)

func TestLoginPage_Offline(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{offline: true})

	res := f.get(t, devBaseURL+"/login")
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	require.Contains(t, page, "Login with Keycloak")
	require.Contains(t, page, "Development mode")
	require.Contains(t, page, "Continue with Google")
	require.Contains(t, page, "Continue with GitHub")
	require.NotContains(t, page, "Continue with Facebook")
	require.Contains(t, page, `href="/forgot-password"`)
	require.Zero(t, f.realm.Discoveries(), "offline login page never contacts the realm")
}

func TestLoginPage_OfflineLoginEntersDashboard(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{offline: true})

	res := f.post(t, devBaseURL+"/auth/login", url.Values{"remember_me": {"true"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/dashboard", res.Header.Get("Location"))
	require.Contains(t, f.cookies, "dashboard_session")
	require.Contains(t, f.cookies, "remember_me")
	require.True(t, f.cookies["dashboard_session"].HttpOnly)
	require.Positive(t, f.cookies["dashboard_session"].MaxAge, "remembered sessions outlive the browser")

	res = f.get(t, devBaseURL+"/dashboard")
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	require.Contains(t, page, "Welcome, Demo User")
	require.Contains(t, page, "demo@example.com")
	require.Contains(t, page, `<li class="badge">user</li>`)
	require.Zero(t, f.realm.Discoveries())
}

func TestLoginPage_OfflineProviderLogin(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{offline: true})

	res := f.post(t, devBaseURL+"/auth/login/github", nil)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/dashboard", res.Header.Get("Location"))
}

func TestLoginPage_LiveAnonymousShowsForm(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	res := f.get(t, liveBaseURL+"/login")
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	require.Contains(t, page, "Login with Keycloak")
	require.NotContains(t, page, "Development mode")
	require.NotContains(t, page, "alert-danger")
}

func TestLoginPage_LiveProviderUnavailable(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{providerURL: "http://127.0.0.1:1"})

	res := f.get(t, liveBaseURL+"/login")
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	require.Contains(t, page, "Authentication service unavailable. Please try again.")
	require.Contains(t, page, "Login with Keycloak")
}

func TestLoginPage_LiveUnknownProvider(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	res := f.post(t, liveBaseURL+"/auth/login/facebook", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body(t, res), "Login failed. Please try again.")
}

func TestLoginPage_LiveProviderLoginRedirectsWithHint(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	res := f.post(t, liveBaseURL+"/auth/login/google", nil)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	authURL, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(authURL.String(), f.realm.Issuer()))
	require.Equal(t, "google", authURL.Query().Get("kc_idp_hint"))
}

func TestLoginFlow_LiveRoundTrip(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	// Unauthenticated users are sent to the login page.
	res := f.get(t, liveBaseURL+"/dashboard")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("Location"))

	res = f.post(t, liveBaseURL+"/auth/login", url.Values{"remember_me": {"true"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	authURL := res.Header.Get("Location")
	require.True(t, strings.HasPrefix(authURL, f.realm.Issuer()+"/protocol/openid-connect/auth"))
	require.Contains(t, f.cookies, "dashboard_session")

	// The realm sends the browser back with the authorization code.
	callback := f.realm.Authorize(authURL)
	res = f.get(t, liveBaseURL+"/dashboard?"+callback.Encode())
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "/dashboard", res.Header.Get("HX-Replace-Url"))
	page := body(t, res)
	require.Contains(t, page, "history.replaceState")
	require.Contains(t, page, "Welcome, Jane Doe")
	require.Contains(t, page, "You can edit tasks.")

	t.Run("status reports the session", func(t *testing.T) {
		res := f.get(t, liveBaseURL+"/api/auth/status")
		require.Equal(t, http.StatusOK, res.StatusCode)

		var status struct {
			IsAuthenticated bool     `json:"isAuthenticated"`
			Mode            string   `json:"mode"`
			Token           string   `json:"token"`
			Roles           []string `json:"roles"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
		require.True(t, status.IsAuthenticated)
		require.Equal(t, "production", status.Mode)
		require.Equal(t, "Present", status.Token)
		require.Contains(t, status.Roles, "task-editor")
	})

	t.Run("token info", func(t *testing.T) {
		res := f.get(t, liveBaseURL+"/api/auth/token-info")
		require.Equal(t, http.StatusOK, res.StatusCode)

		var info struct {
			Subject string `json:"sub"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&info))
		require.Equal(t, keycloaktest.Subject, info.Subject)
	})

	t.Run("login page moves on to the dashboard", func(t *testing.T) {
		res := f.get(t, liveBaseURL+"/login")
		require.Equal(t, http.StatusSeeOther, res.StatusCode)
		require.Equal(t, "/dashboard", res.Header.Get("Location"))
	})

	t.Run("logout ends the realm session", func(t *testing.T) {
		res := f.get(t, liveBaseURL+"/auth/logout")
		require.Equal(t, http.StatusSeeOther, res.StatusCode)

		endSession, err := url.Parse(res.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, f.realm.Issuer()+"/protocol/openid-connect/logout", endSession.Scheme+"://"+endSession.Host+endSession.Path)
		require.Equal(t, liveBaseURL+"/login", endSession.Query().Get("post_logout_redirect_uri"))
		require.NotEmpty(t, endSession.Query().Get("id_token_hint"))
		require.NotContains(t, f.cookies, "dashboard_session")
		require.NotContains(t, f.cookies, "remember_me")

		res = f.get(t, liveBaseURL+"/dashboard")
		require.Equal(t, http.StatusSeeOther, res.StatusCode)
		require.Equal(t, "/login", res.Header.Get("Location"))
	})
}

func TestLoginFlow_FailedCallbackReturnsToLogin(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	res := f.get(t, liveBaseURL+"/dashboard?code=forged&state=unknown&session_state=x")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("Location"))
}

func TestGuard_HTMXDenial(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	req := httptest.NewRequest(http.MethodGet, liveBaseURL+"/widgets", nil)
	req.Header.Set("HX-Request", "true")
	res := f.do(t, req)

	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("HX-Redirect"))
}

func TestGuard_APIDenial(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	res := f.get(t, liveBaseURL+"/api/auth/token-info")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.JSONEq(t, `{"error":"unauthorized","error_description":"authentication required"}`, body(t, res))

	req := httptest.NewRequest(http.MethodPost, liveBaseURL+"/api/auth/refresh", nil)
	res = f.do(t, req)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	t.Run("callback parameters do not open the API", func(t *testing.T) {
		res := f.get(t, liveBaseURL+"/api/auth/token-info?code=x&state=y")
		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
		require.JSONEq(t, `{"error":"unauthorized","error_description":"authentication required"}`, body(t, res))
	})
}

func TestLoginFlow_SignInRotatesSessionID(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	res := f.post(t, liveBaseURL+"/auth/login", nil)
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	anonymous := f.cookies["dashboard_session"]
	require.NotNil(t, anonymous)

	callback := f.realm.Authorize(res.Header.Get("Location"))
	res = f.get(t, liveBaseURL+"/dashboard?"+callback.Encode())
	require.Equal(t, http.StatusOK, res.StatusCode)
	signedIn := f.cookies["dashboard_session"]
	require.NotNil(t, signedIn)
	require.NotEqual(t, anonymous.Value, signedIn.Value)

	// The id handed out before sign in no longer opens the session.
	req := httptest.NewRequest(http.MethodGet, liveBaseURL+"/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_session", Value: anonymous.Value})
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginFlow_CallbackFromAnotherBrowser(t *testing.T) {
	attacker := setupTestFixture(t, fixtureOptions{})
	res := attacker.post(t, liveBaseURL+"/auth/login", nil)
	callback := attacker.realm.Authorize(res.Header.Get("Location"))

	// The victim opens the attacker's callback with a session of their own.
	victim := &testFixture{server: attacker.server, realm: attacker.realm, transport: attacker.transport, cookies: map[string]*http.Cookie{}}
	res = victim.get(t, liveBaseURL+"/dashboard?"+callback.Encode())
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("Location"))

	res = victim.get(t, liveBaseURL+"/api/auth/status")
	require.Contains(t, body(t, res), `"isAuthenticated":false`)
}

func TestMode_SpoofedHostStaysLive(t *testing.T) {
	t.Setenv("BASE_URL", liveBaseURL)
	f := setupTestFixture(t, fixtureOptions{offline: true})

	res := f.get(t, liveBaseURL+"/dashboard")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("Location"))

	res = f.get(t, "https://tasks.dev.example.com/dashboard")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("Location"))

	res = f.get(t, "https://tasks.dev.example.com/api/auth/status")
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	require.Contains(t, page, `"mode":"production"`)
	require.Contains(t, page, `"isAuthenticated":false`)
}

func TestMetrics_GuardOutcomes(t *testing.T) {
	f := setupTestFixture(t, fixtureOptions{})

	f.get(t, liveBaseURL+"/dashboard")
	res := f.get(t, liveBaseURL+"/metrics")
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	require.Contains(t, page, `auth_guard_outcomes_total{outcome="deny_redirect"} 1`)
	require.Contains(t, page, `auth_initialize_total{mode="production",result="unauthenticated"} 1`)
	require.Contains(t, page, `http_requests_total{method="GET",path="/dashboard",status="303"} 1`)
}
