package sdkfake

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
)

// Tokens is a TokenStore kept in memory.
type Tokens struct {
	mu        sync.Mutex
	id        string
	tokens    *keycloak.TokenSet
	Rotations int
}

var _ keycloak.TokenStore = (*Tokens)(nil)

func NewTokens(initial *keycloak.TokenSet) *Tokens {
	return &Tokens{id: uuid.NewString(), tokens: initial}
}

func (t *Tokens) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *Tokens) Rotate(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = uuid.NewString()
	t.Rotations++
	return nil
}

func (t *Tokens) Tokens() *keycloak.TokenSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tokens == nil {
		return nil
	}
	copied := *t.tokens
	return &copied
}

func (t *Tokens) SaveTokens(_ context.Context, tokens *keycloak.TokenSet) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := *tokens
	t.tokens = &copied
	return nil
}

func (t *Tokens) ClearTokens(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens = nil
	return nil
}
