// Package authflow keeps the state of authorization requests between the redirect
// to Keycloak and the callback.
package authflow

import "time"

// DefaultTTL bounds how long a user may take to finish logging in at the provider.
const DefaultTTL = 10 * time.Minute

type State struct {
	// SessionID is the browser session that started the login. Only that
	// session may complete it.
	SessionID    string
	CodeVerifier string
	Nonce        string
	RedirectURI  string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, flow *State) error
	// Take returns the flow stored under state and removes it.
	Take(state string) (*State, error)
}
