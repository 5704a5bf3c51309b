// Package keycloaktest runs a minimal Keycloak realm for tests: discovery, JWKS,
// token, userinfo and reset-credentials endpoints.
package keycloaktest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

const (
	Realm        = "test-realm"
	ClientID     = "task-client"
	Subject      = "user-123"
	Email        = "jane.doe@example.com"
	RefreshToken = "refresh-1"
	keyID        = "test-key"
)

type grant struct {
	nonce     string
	challenge string
}

type Server struct {
	*httptest.Server
	t   *testing.T
	key *rsa.PrivateKey

	mu             sync.Mutex
	codes          map[string]grant
	discoveries    int
	discoveryDelay time.Duration
	idTokenIssuer  string
	TokenRequests  []url.Values
	ResetRequests  []map[string]string
	ResetStatus    int
	AccessTokenTTL time.Duration
	RealmRoles     []string
	ClientRoles    map[string][]string
}

func New(t *testing.T) *Server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s := &Server{
		t:              t,
		key:            key,
		codes:          map[string]grant{},
		ResetStatus:    http.StatusOK,
		AccessTokenTTL: 5 * time.Minute,
		RealmRoles:     []string{"user", "offline_access"},
		ClientRoles:    map[string][]string{ClientID: {"task-editor"}, "account": {"view-profile"}},
	}

	mux := http.NewServeMux()
	base := "/realms/" + Realm
	mux.HandleFunc("GET "+base, s.realm)
	mux.HandleFunc("GET "+base+"/.well-known/openid-configuration", s.discovery)
	mux.HandleFunc("GET "+base+"/protocol/openid-connect/certs", s.jwks)
	mux.HandleFunc("POST "+base+"/protocol/openid-connect/token", s.token)
	mux.HandleFunc("GET "+base+"/protocol/openid-connect/userinfo", s.userinfo)
	mux.HandleFunc("POST "+base+"/login-actions/reset-credentials", s.resetCredentials)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Issuer() string {
	return s.URL + "/realms/" + Realm
}

// ProviderConfig points a client at this realm, redirecting back to baseURL.
func (s *Server) ProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		URL:      s.URL,
		Realm:    Realm,
		ClientID: ClientID,
		InitOptions: config.InitOptions{
			OnLoad:                config.OnLoadCheckSSO,
			PKCEMethod:            config.PKCEMethodS256,
			ResponseMode:          config.ResponseModeFragment,
			Flow:                  config.FlowStandard,
			RedirectURI:           baseURL + "/dashboard",
			PostLogoutRedirectURI: baseURL + "/login",
		},
	}
}

// SetDiscoveryDelay makes the discovery endpoint answer after d.
func (s *Server) SetDiscoveryDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discoveryDelay = d
}

// SetIDTokenIssuer makes the token endpoint issue ID tokens claiming issuer,
// which clients must refuse.
func (s *Server) SetIDTokenIssuer(issuer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idTokenIssuer = issuer
}

// Discoveries returns how many discovery documents were served.
func (s *Server) Discoveries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discoveries
}

// Authorize plays the user logging in at the realm: it reads the authorization
// URL the client navigated to and returns the callback query Keycloak would send.
func (s *Server) Authorize(authURL string) url.Values {
	s.t.Helper()

	u, err := url.Parse(authURL)
	require.NoError(s.t, err)
	q := u.Query()
	require.Equal(s.t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(s.t, q.Get("state"))

	code := "code-" + q.Get("state")[:8]
	s.mu.Lock()
	s.codes[code] = grant{nonce: q.Get("nonce"), challenge: q.Get("code_challenge")}
	s.mu.Unlock()

	return url.Values{
		"code":          {code},
		"state":         {q.Get("state")},
		"session_state": {"session-state-1"},
	}
}

// AccessToken signs an access token the way the realm would.
func (s *Server) AccessToken(ttl time.Duration) string {
	s.t.Helper()
	now := time.Now()
	resources := map[string]any{}
	for client, roles := range s.ClientRoles {
		resources[client] = map[string]any{"roles": roles}
	}
	return s.sign(jwt.MapClaims{
		"iss":                s.Issuer(),
		"sub":                Subject,
		"azp":                ClientID,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
		"name":               "Jane Doe",
		"email":              Email,
		"preferred_username": "jane",
		"realm_access":       map[string]any{"roles": s.RealmRoles},
		"resource_access":    resources,
	})
}

func (s *Server) sign(claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	signed, err := token.SignedString(s.key)
	require.NoError(s.t, err)
	return signed
}

func (s *Server) realm(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"realm": Realm})
}

func (s *Server) discovery(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.discoveries++
	delay := s.discoveryDelay
	s.mu.Unlock()
	time.Sleep(delay)

	oidcBase := s.Issuer() + "/protocol/openid-connect"
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                s.Issuer(),
		"authorization_endpoint":                oidcBase + "/auth",
		"token_endpoint":                        oidcBase + "/token",
		"userinfo_endpoint":                     oidcBase + "/userinfo",
		"jwks_uri":                              oidcBase + "/certs",
		"end_session_endpoint":                  oidcBase + "/logout",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (s *Server) jwks(w http.ResponseWriter, _ *http.Request) {
	pub := s.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": keyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	s.mu.Lock()
	s.TokenRequests = append(s.TokenRequests, r.PostForm)
	s.mu.Unlock()

	var nonce string
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		s.mu.Lock()
		g, ok := s.codes[r.PostForm.Get("code")]
		delete(s.codes, r.PostForm.Get("code"))
		s.mu.Unlock()
		if !ok || challenge(r.PostForm.Get("code_verifier")) != g.challenge {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		nonce = g.nonce
	case "refresh_token":
		if r.PostForm.Get("refresh_token") != RefreshToken {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "Token is not active"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	s.mu.Lock()
	issuer := s.idTokenIssuer
	s.mu.Unlock()
	if issuer == "" {
		issuer = s.Issuer()
	}

	now := time.Now()
	idClaims := jwt.MapClaims{
		"iss":   issuer,
		"sub":   Subject,
		"aud":   ClientID,
		"iat":   now.Unix(),
		"exp":   now.Add(5 * time.Minute).Unix(),
		"email": Email,
	}
	if nonce != "" {
		idClaims["nonce"] = nonce
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  s.AccessToken(s.AccessTokenTTL),
		"id_token":      s.sign(idClaims),
		"refresh_token": RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(s.AccessTokenTTL.Seconds()),
	})
}

func (s *Server) userinfo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sub":                Subject,
		"email":              Email,
		"email_verified":     true,
		"preferred_username": "jane",
		"given_name":         "Jane",
		"family_name":        "Doe",
	})
}

func (s *Server) resetCredentials(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.ResetRequests = append(s.ResetRequests, body)
	status := s.ResetStatus
	s.mu.Unlock()
	w.WriteHeader(status)
}

func challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
