// Package sdkfake provides in-memory stand-ins for the Keycloak client.
package sdkfake

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
)

// SDK records calls and answers with the configured values.
type SDK struct {
	mu    sync.Mutex
	calls []string

	// InitFunc replaces the Init result when set.
	InitFunc   func(ctx context.Context, cfg config.ProviderConfig) (bool, error)
	InitResult bool
	InitErr    error

	LoggedIn     bool
	Profile      keycloak.UserProfile
	ProfileErr   error
	Roles        []string
	LoginErr     error
	LogoutErr    error
	UpdateErr    error
	Refreshed    bool
	AccessToken  string
	Refresh      string
	ParsedClaims map[string]any

	LastLogin          keycloak.LoginOptions
	LastLogoutRedirect string
	LastMinValidity    time.Duration
}

var _ keycloak.SDK = (*SDK)(nil)

func New() *SDK {
	return &SDK{}
}

func (s *SDK) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

// Calls returns the names of the methods called so far.
func (s *SDK) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// CallCount returns how often the named method was called.
func (s *SDK) CallCount(call string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (s *SDK) Init(ctx context.Context, cfg config.ProviderConfig) (bool, error) {
	s.record("Init")
	if s.InitFunc != nil {
		return s.InitFunc(ctx, cfg)
	}
	return s.InitResult, s.InitErr
}

func (s *SDK) Login(_ context.Context, opts keycloak.LoginOptions) error {
	s.record("Login")
	s.mu.Lock()
	s.LastLogin = opts
	s.mu.Unlock()
	return s.LoginErr
}

func (s *SDK) Logout(_ context.Context, redirectURI string) error {
	s.record("Logout")
	s.mu.Lock()
	s.LastLogoutRedirect = redirectURI
	s.mu.Unlock()
	return s.LogoutErr
}

func (s *SDK) IsLoggedIn() bool {
	s.record("IsLoggedIn")
	return s.LoggedIn
}

func (s *SDK) LoadUserProfile(context.Context) (keycloak.UserProfile, error) {
	s.record("LoadUserProfile")
	return s.Profile, s.ProfileErr
}

func (s *SDK) UserRoles() []string {
	s.record("UserRoles")
	return slices.Clone(s.Roles)
}

func (s *SDK) IsUserInRole(role string) bool {
	s.record("IsUserInRole")
	return slices.Contains(s.Roles, role)
}

func (s *SDK) UpdateToken(_ context.Context, minValidity time.Duration) (bool, error) {
	s.record("UpdateToken")
	s.mu.Lock()
	s.LastMinValidity = minValidity
	s.mu.Unlock()
	return s.Refreshed, s.UpdateErr
}

func (s *SDK) Token() string {
	return s.AccessToken
}

func (s *SDK) RefreshToken() string {
	return s.Refresh
}

func (s *SDK) TokenParsed() map[string]any {
	return s.ParsedClaims
}
