// Package session holds the authentication state of each browser session.
package session

import (
	"slices"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
)

// State is what pages read about the current user.
type State struct {
	IsAuthenticated bool                  `json:"isAuthenticated"`
	Offline         bool                  `json:"offline,omitempty"`
	Token           string                `json:"-"`
	Profile         *keycloak.UserProfile `json:"profile,omitempty"`
	Roles           []string              `json:"roles"`
	IsLoading       bool                  `json:"isLoading"`
	Error           string                `json:"error,omitempty"`
	RememberMe      bool                  `json:"rememberMe,omitempty"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

func (s State) clone() State {
	if s.Profile != nil {
		p := *s.Profile
		s.Profile = &p
	}
	s.Roles = slices.Clone(s.Roles)
	return s
}

// HasRole reports whether the session was granted role.
func (s State) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

// Login is the outcome of a successful sign in.
type Login struct {
	// Token is the access token. Only offline sessions may omit it.
	Token      string
	Profile    *keycloak.UserProfile
	Roles      []string
	Offline    bool
	RememberMe bool
}
