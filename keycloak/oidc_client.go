package keycloak

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/url"
	"slices"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/internal/errors"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/authflow"
	"github.com/jrsteele09/go-dashboard-gateway/location"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// OIDCClient implements SDK with the authorization code flow and PKCE. One client
// serves one request of one browser session; the tokens live in the TokenStore.
type OIDCClient struct {
	providers *Providers
	flows     authflow.Repo
	tokens    TokenStore
	loc       location.Location
	now       func() time.Time

	cfg      config.ProviderConfig
	provider *Provider
	oauth    *oauth2.Config
}

var _ SDK = (*OIDCClient)(nil)

type Option func(*OIDCClient)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *OIDCClient) { c.now = now }
}

func NewOIDCClient(cfg config.ProviderConfig, providers *Providers, flows authflow.Repo, tokens TokenStore, loc location.Location, opts ...Option) *OIDCClient {
	c := &OIDCClient{
		providers: providers,
		flows:     flows,
		tokens:    tokens,
		loc:       loc,
		now:       time.Now,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init finishes a pending callback found in the location, or otherwise checks
// whether the session already holds a usable token (check-sso).
func (c *OIDCClient) Init(ctx context.Context, cfg config.ProviderConfig) (bool, error) {
	if cfg != c.cfg {
		c.cfg = cfg
		c.provider = nil
	}
	ctx = c.providers.ClientContext(ctx)
	if err := c.discover(ctx); err != nil {
		return false, err
	}

	query := c.loc.URL().Query()
	if e := query.Get("error"); e != "" {
		return false, errors.Wrapf(errors.ErrCallbackError, "%s: %s", e, query.Get("error_description"))
	}
	if code, state := query.Get("code"), query.Get("state"); code != "" && state != "" {
		if err := c.exchange(ctx, code, state); err != nil {
			return false, err
		}
		return true, nil
	}
	return c.checkSSO(ctx)
}

func (c *OIDCClient) Login(ctx context.Context, opts LoginOptions) error {
	if err := c.discover(c.providers.ClientContext(ctx)); err != nil {
		return err
	}

	state := generateRandomString(32)
	nonce := generateRandomString(32)
	verifier := oauth2.GenerateVerifier()
	redirectURI := c.oauth.RedirectURL
	if opts.RedirectURI != "" {
		redirectURI = opts.RedirectURI
	}

	err := c.flows.Upsert(state, &authflow.State{
		SessionID:    c.tokens.ID(),
		CodeVerifier: verifier,
		Nonce:        nonce,
		RedirectURI:  redirectURI,
		CreatedAt:    c.now(),
	})
	if err != nil {
		return errors.Wrapf(err, "store authorization state")
	}

	params := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("redirect_uri", redirectURI),
	}
	if opts.IDPHint != "" {
		params = append(params, oauth2.SetAuthURLParam("kc_idp_hint", opts.IDPHint))
	}
	c.loc.Navigate(c.oauth.AuthCodeURL(state, params...))
	return nil
}

// Logout forgets the tokens and sends the browser to the realm's end session endpoint.
func (c *OIDCClient) Logout(ctx context.Context, redirectURI string) error {
	var idTokenHint string
	if tokens := c.tokens.Tokens(); tokens != nil {
		idTokenHint = tokens.IDToken
	}
	if err := c.tokens.ClearTokens(ctx); err != nil {
		return errors.Wrapf(err, "clear tokens")
	}
	if err := c.discover(c.providers.ClientContext(ctx)); err != nil {
		return err
	}
	if c.provider.EndSessionURL == "" {
		return errors.ErrNoEndSession
	}

	endSession, err := url.Parse(c.provider.EndSessionURL)
	if err != nil {
		return errors.Wrapf(err, "parse end_session_endpoint")
	}
	q := endSession.Query()
	q.Set("client_id", c.cfg.ClientID)
	if redirectURI != "" {
		q.Set("post_logout_redirect_uri", redirectURI)
	}
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	endSession.RawQuery = q.Encode()

	c.loc.Navigate(endSession.String())
	return nil
}

func (c *OIDCClient) IsLoggedIn() bool {
	tokens := c.tokens.Tokens()
	return tokens != nil && tokens.AccessToken != "" && !tokens.ExpiresWithin(0, c.now())
}

func (c *OIDCClient) LoadUserProfile(ctx context.Context) (UserProfile, error) {
	tokens := c.tokens.Tokens()
	if tokens == nil || tokens.AccessToken == "" {
		return UserProfile{}, errors.ErrNotAuthenticated
	}
	ctx = c.providers.ClientContext(ctx)
	if err := c.discover(ctx); err != nil {
		return UserProfile{}, err
	}

	info, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(c.oauthToken(tokens)))
	if err != nil {
		return UserProfile{}, errors.Wrapf(err, "load user info")
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		GivenName         string `json:"given_name"`
		FamilyName        string `json:"family_name"`
	}
	if err := info.Claims(&claims); err != nil {
		return UserProfile{}, errors.Wrapf(err, "decode user info")
	}

	return UserProfile{
		ID:        info.Subject,
		Username:  claims.PreferredUsername,
		Email:     info.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
	}, nil
}

// UserRoles returns the realm roles and the roles of every client in the access token.
func (c *OIDCClient) UserRoles() []string {
	claims := c.TokenParsed()
	if claims == nil {
		return []string{}
	}
	return Roles(claims)
}

// IsUserInRole checks the realm roles and the roles granted for this client.
func (c *OIDCClient) IsUserInRole(role string) bool {
	claims := c.TokenParsed()
	if claims == nil {
		return false
	}
	return slices.Contains(RealmRoles(claims), role) || slices.Contains(ResourceRoles(claims, c.cfg.ClientID), role)
}

// UpdateToken refreshes the access token when it expires within minValidity. It
// reports whether a refresh happened.
func (c *OIDCClient) UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error) {
	tokens := c.tokens.Tokens()
	if tokens == nil || tokens.AccessToken == "" {
		return false, errors.ErrNotAuthenticated
	}
	if !tokens.ExpiresWithin(minValidity, c.now()) {
		return false, nil
	}
	ctx = c.providers.ClientContext(ctx)
	if err := c.discover(ctx); err != nil {
		return false, err
	}
	if err := c.refresh(ctx, tokens); err != nil {
		return false, err
	}
	return true, nil
}

func (c *OIDCClient) Token() string {
	if tokens := c.tokens.Tokens(); tokens != nil {
		return tokens.AccessToken
	}
	return ""
}

func (c *OIDCClient) RefreshToken() string {
	if tokens := c.tokens.Tokens(); tokens != nil {
		return tokens.RefreshToken
	}
	return ""
}

// TokenParsed returns the claims of the access token, or nil.
func (c *OIDCClient) TokenParsed() map[string]any {
	raw := c.Token()
	if raw == "" {
		return nil
	}
	claims, err := ParseClaims(raw)
	if err != nil {
		log.Debug().Err(err).Msg("access token is not a JWT")
		return nil
	}
	return claims
}

func (c *OIDCClient) discover(ctx context.Context) error {
	if c.provider != nil {
		return nil
	}
	provider, err := c.providers.Get(ctx, c.cfg.IssuerURL())
	if err != nil {
		return err
	}

	c.provider = provider
	c.oauth = &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  c.cfg.InitOptions.RedirectURI,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return nil
}

func (c *OIDCClient) exchange(ctx context.Context, code, state string) error {
	flow, err := c.flows.Take(state)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidState, "take state")
	}
	if flow.SessionID == "" || flow.SessionID != c.tokens.ID() {
		return errors.Wrapf(errors.ErrInvalidState, "state was issued to another session")
	}

	token, err := c.oauth.Exchange(ctx, code,
		oauth2.VerifierOption(flow.CodeVerifier),
		oauth2.SetAuthURLParam("redirect_uri", flow.RedirectURI),
	)
	if err != nil {
		return errors.Wrapf(err, "exchange authorization code")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return errors.ErrMissingIDToken
	}
	idToken, err := c.provider.Verifier(&oidc.Config{ClientID: c.cfg.ClientID, Now: c.now}).Verify(ctx, rawIDToken)
	if err != nil {
		// The realm may have moved or replaced its keys; discover it again next time.
		c.providers.Forget(c.cfg.IssuerURL())
		c.provider = nil
		return errors.Wrapf(err, "verify id token")
	}

	var claims struct {
		Nonce string `json:"nonce"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return errors.Wrapf(err, "decode id token")
	}
	if claims.Nonce != flow.Nonce {
		return errors.ErrInvalidNonce
	}

	if err := c.tokens.Rotate(ctx); err != nil {
		return errors.Wrapf(err, "rotate session")
	}
	return c.tokens.SaveTokens(ctx, tokenSet(token, rawIDToken))
}

func (c *OIDCClient) checkSSO(ctx context.Context) (bool, error) {
	tokens := c.tokens.Tokens()
	if tokens == nil || tokens.AccessToken == "" {
		return false, nil
	}
	if !tokens.ExpiresWithin(0, c.now()) {
		return true, nil
	}
	if tokens.RefreshToken == "" {
		return false, c.tokens.ClearTokens(ctx)
	}

	err := c.refresh(ctx, tokens)
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		log.Debug().Err(err).Msg("refresh token rejected, session is no longer signed in")
		return false, c.tokens.ClearTokens(ctx)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *OIDCClient) refresh(ctx context.Context, tokens *TokenSet) error {
	if tokens.RefreshToken == "" {
		return errors.ErrNoRefreshToken
	}

	token, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: tokens.RefreshToken}).Token()
	if err != nil {
		return errors.Wrapf(err, "refresh token")
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		rawIDToken = tokens.IDToken
	}
	refreshed := tokenSet(token, rawIDToken)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}
	return c.tokens.SaveTokens(ctx, refreshed)
}

func (c *OIDCClient) oauthToken(tokens *TokenSet) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		RefreshToken: tokens.RefreshToken,
		Expiry:       tokens.Expiry,
	}
}

func tokenSet(token *oauth2.Token, rawIDToken string) *TokenSet {
	return &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      rawIDToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
