// Package keycloak talks to a Keycloak realm on behalf of one browser session.
package keycloak

import (
	"context"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
)

type UserProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LoginOptions struct {
	// IDPHint asks Keycloak to broker the login through the named identity provider.
	IDPHint string
	// RedirectURI overrides the configured post-login redirect.
	RedirectURI string
}

// TokenSet is what the session keeps of a token response.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// ExpiresWithin reports whether the access token expires within d of now.
// A token without an expiry never expires.
func (t *TokenSet) ExpiresWithin(d time.Duration, now time.Time) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Add(d).Before(t.Expiry)
}

// TokenStore persists the token set of the current session.
type TokenStore interface {
	// ID identifies the browser session. Authorization requests are bound to it.
	ID() string
	// Rotate moves the session to a new id when it signs in.
	Rotate(ctx context.Context) error
	Tokens() *TokenSet
	SaveTokens(ctx context.Context, tokens *TokenSet) error
	ClearTokens(ctx context.Context) error
}

// SDK is the identity provider client used by the authentication service.
type SDK interface {
	Init(ctx context.Context, cfg config.ProviderConfig) (bool, error)
	Login(ctx context.Context, opts LoginOptions) error
	Logout(ctx context.Context, redirectURI string) error
	IsLoggedIn() bool
	LoadUserProfile(ctx context.Context) (UserProfile, error)
	UserRoles() []string
	IsUserInRole(role string) bool
	UpdateToken(ctx context.Context, minValidity time.Duration) (bool, error)
	Token() string
	RefreshToken() string
	TokenParsed() map[string]any
}
