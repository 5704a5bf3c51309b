package auth

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/internal/errors"
	"github.com/jrsteele09/go-dashboard-gateway/internal/metrics"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/jrsteele09/go-dashboard-gateway/location"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// InitTimeout bounds the identity provider initialization.
	InitTimeout = 15 * time.Second
	// RefreshMinValidity is how close to expiry a token is refreshed.
	RefreshMinValidity = 70 * time.Second

	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Service adapts the identity provider SDK to the dashboard. A Service serves
// one navigation: it reads and rewrites the location of that request.
type Service struct {
	kc          config.KeycloakConfig
	sdk         keycloak.SDK
	loc         location.Location
	transport   keycloak.Transport
	metrics     *metrics.Metrics
	initTimeout time.Duration
	initGroup   singleflight.Group
	publicHost  string
}

type ServiceOption func(*Service)

// WithInitTimeout replaces InitTimeout.
func WithInitTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.initTimeout = d
	}
}

// WithTransport sets the client used for the password reset endpoints and the
// provider reachability check.
func WithTransport(t keycloak.Transport) ServiceOption {
	return func(s *Service) {
		s.transport = t
	}
}

// WithPublicHost names the host the dashboard is deployed on. A production
// host is always live, whatever Host the request claims.
func WithPublicHost(host string) ServiceOption {
	return func(s *Service) {
		s.publicHost = host
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(kc config.KeycloakConfig, sdk keycloak.SDK, loc location.Location, options ...ServiceOption) (*Service, error) {
	if kc == nil {
		return nil, fmt.Errorf("[NewService] keycloak config is required")
	}
	if sdk == nil {
		return nil, fmt.Errorf("[NewService] sdk is required")
	}
	if loc == nil {
		return nil, fmt.Errorf("[NewService] location is required")
	}

	s := &Service{
		kc:          kc,
		sdk:         sdk,
		loc:         loc,
		initTimeout: InitTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.transport == nil {
		s.transport = keycloak.NewHTTPTransport(nil)
	}
	return s, nil
}

// Mode resolves the configuration for the host of the current request. On a
// production deployment the request's host is not consulted.
func (s *Service) Mode() config.ActiveConfig {
	if s.publicHost != "" && !config.IsDevelopment(s.publicHost) {
		return config.Resolve(s.kc, s.publicHost)
	}
	return config.Resolve(s.kc, s.loc.URL().Host)
}

// Location is the location this service navigates.
func (s *Service) Location() location.Location {
	return s.loc
}

// Initialize reports whether the session is authenticated. It never fails: an
// unreachable or slow provider means not authenticated.
func (s *Service) Initialize(ctx context.Context) bool {
	authenticated, _ := s.InitializeDetailed(ctx)
	return authenticated
}

// InitializeDetailed is Initialize with the cause of a failed initialization,
// for callers that tell an outage apart from an anonymous user. Concurrent calls
// share one initialization.
func (s *Service) InitializeDetailed(ctx context.Context) (bool, error) {
	switch cfg := s.Mode().(type) {
	case config.Offline:
		s.metrics.Initialize(cfg.Mode(), true, nil)
		return true, nil
	case config.Live:
		v, err, _ := s.initGroup.Do("init", func() (any, error) {
			return s.initLive(ctx, cfg.Provider)
		})
		authenticated, _ := v.(bool)
		s.metrics.Initialize(cfg.Mode(), authenticated, err)
		if err != nil {
			log.Warn().Err(err).Str("realm", cfg.Provider.Realm).Msg("identity provider initialization failed")
			return false, err
		}
		return authenticated, nil
	default:
		return false, errors.ErrUnsupported
	}
}

type initResult struct {
	authenticated bool
	err           error
}

func (s *Service) initLive(ctx context.Context, provider config.ProviderConfig) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.initTimeout)
	defer cancel()

	// Buffered so a result arriving after the timeout is dropped.
	done := make(chan initResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- initResult{err: fmt.Errorf("identity provider init panicked: %v", r)}
			}
		}()
		authenticated, err := s.sdk.Init(ctx, provider)
		done <- initResult{authenticated: authenticated, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return false, res.err
		}
		if res.authenticated && DetectCallback(s.loc) {
			s.loc.ReplaceState(withoutQuery(s.loc.URL()))
		}
		return res.authenticated, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, errors.Wrapf(errors.ErrInitTimeout, "no answer within %s", s.initTimeout)
		}
		return false, ctx.Err()
	}
}

// Login sends the browser to the provider's login page. Offline there is
// nothing to log in to.
func (s *Service) Login(ctx context.Context) error {
	if _, ok := s.Mode().(config.Live); !ok {
		return nil
	}
	return s.sdk.Login(ctx, keycloak.LoginOptions{})
}

// LoginWithProvider logs in through an enabled social identity provider.
func (s *Service) LoginWithProvider(ctx context.Context, providerID string) error {
	if _, ok := s.kc.GetSocialProviders().Enabled()[providerID]; !ok {
		return errors.Wrapf(errors.ErrUnknownProvider, "%q", providerID)
	}
	if _, ok := s.Mode().(config.Live); !ok {
		return nil
	}
	return s.sdk.Login(ctx, keycloak.LoginOptions{IDPHint: providerID})
}

func (s *Service) LoginWithGoogle(ctx context.Context) error {
	return s.LoginWithProvider(ctx, "google")
}

func (s *Service) LoginWithGitHub(ctx context.Context) error {
	return s.LoginWithProvider(ctx, "github")
}

// Logout ends the provider session. The browser always ends up away from the
// current page, on the login page when the provider cannot be reached.
func (s *Service) Logout(ctx context.Context) {
	switch cfg := s.Mode().(type) {
	case config.Live:
		redirect := cfg.Provider.InitOptions.PostLogoutRedirectURI
		if err := s.sdk.Logout(ctx, redirect); err != nil {
			log.Err(err).Msg("identity provider logout failed")
			s.loc.Navigate(LoginPath)
		}
	default:
		s.loc.Navigate(LoginPath)
	}
}

func (s *Service) IsAuthenticated() bool {
	switch s.Mode().(type) {
	case config.Live:
		return s.sdk.IsLoggedIn()
	default:
		return s.kc.GetOfflineMode()
	}
}

func (s *Service) UserProfile(ctx context.Context) (keycloak.UserProfile, error) {
	switch cfg := s.Mode().(type) {
	case config.Offline:
		return mockProfile(cfg.MockUser), nil
	default:
		return s.sdk.LoadUserProfile(ctx)
	}
}

func (s *Service) UserRoles() []string {
	switch cfg := s.Mode().(type) {
	case config.Offline:
		return cfg.MockUser.Roles
	default:
		return s.sdk.UserRoles()
	}
}

// HasRole checks the mock roles offline and the token roles otherwise.
func (s *Service) HasRole(role string) bool {
	switch cfg := s.Mode().(type) {
	case config.Offline:
		return slices.Contains(cfg.MockUser.Roles, role)
	default:
		return s.sdk.IsUserInRole(role)
	}
}

// Token returns the raw access token, or "".
func (s *Service) Token() string {
	if _, ok := s.Mode().(config.Live); !ok {
		return ""
	}
	return s.sdk.Token()
}

// RefreshToken refreshes the access token if it expires within RefreshMinValidity.
func (s *Service) RefreshToken(ctx context.Context) error {
	if _, ok := s.Mode().(config.Live); !ok {
		return nil
	}
	_, err := s.sdk.UpdateToken(ctx, RefreshMinValidity)
	return err
}

func (s *Service) SocialProviders() config.SocialProviders {
	return s.kc.GetSocialProviders().Enabled()
}

func (s *Service) IsForgotPasswordEnabled() bool {
	return s.kc.GetForgotPasswordConfig().Enabled
}

// TokenInfo decodes the access token, or returns nil when there is none.
func (s *Service) TokenInfo() *keycloak.TokenInfo {
	raw := s.Token()
	if raw == "" {
		return nil
	}
	info, err := keycloak.DecodeTokenInfo(raw)
	if err != nil {
		log.Debug().Err(err).Msg("failed to parse token")
		return nil
	}
	return info
}

// Status describes the authentication of the session for diagnostics.
type Status struct {
	IsAuthenticated bool           `json:"isAuthenticated"`
	Mode            string         `json:"mode"`
	Token           string         `json:"token,omitempty"`
	RefreshToken    string         `json:"refreshToken,omitempty"`
	TokenParsed     map[string]any `json:"tokenParsed,omitempty"`
	Message         string         `json:"message"`
}

func (s *Service) AuthStatus() Status {
	cfg := s.Mode()
	if _, ok := cfg.(config.Live); !ok {
		return Status{
			IsAuthenticated: s.kc.GetOfflineMode(),
			Mode:            cfg.Mode(),
			Message:         "Running in development mode",
		}
	}

	status := Status{
		IsAuthenticated: s.sdk.IsLoggedIn(),
		Mode:            cfg.Mode(),
		Token:           presence(s.sdk.Token()),
		RefreshToken:    presence(s.sdk.RefreshToken()),
		TokenParsed:     s.sdk.TokenParsed(),
		Message:         "User is not authenticated",
	}
	if status.IsAuthenticated {
		status.Message = "User is authenticated"
	}
	return status
}

// CheckProvider checks that the realm answers. It is meant for operators.
func (s *Service) CheckProvider(ctx context.Context) error {
	cfg, ok := s.Mode().(config.Live)
	if !ok {
		return errors.Wrapf(errors.ErrUnsupported, "no identity provider in development mode")
	}
	resp, err := s.transport.Get(ctx, cfg.Provider.IssuerURL())
	if err != nil {
		return errors.Wrapf(err, "cannot reach identity provider at %s", cfg.Provider.URL)
	}
	if !resp.OK {
		return errors.Wrapf(errors.ErrProviderResponded, "identity provider returned %d", resp.Status)
	}
	return nil
}

func mockProfile(u config.MockUser) keycloak.UserProfile {
	return keycloak.UserProfile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func presence(v string) string {
	if v == "" {
		return "Missing"
	}
	return "Present"
}

// withoutQuery keeps the path and fragment of u.
func withoutQuery(u *url.URL) string {
	clean := url.URL{Path: u.Path, RawPath: u.RawPath, Fragment: u.Fragment}
	if clean.Path == "" {
		clean.Path = "/"
	}
	return clean.String()
}
