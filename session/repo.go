package session

import (
	"context"
	"time"
)

// Record is the persisted form of a session. The provider tokens are sealed.
type Record struct {
	ID           string    `json:"id"`
	State        State     `json:"state"`
	SealedTokens []byte    `json:"sealed_tokens,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Repo interface {
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
}
