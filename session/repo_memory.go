package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/internal/errors"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryRepo keeps sessions in process, expiring them with the record.
type MemoryRepo struct {
	c *gocache.Cache
}

var _ Repo = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (r *MemoryRepo) Upsert(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	r.c.Set(rec.ID, b, ttl(rec.ExpiresAt))
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("session id is required")
	}
	v, ok := r.c.Get(id)
	if !ok {
		return Record{}, errors.ErrSessionNotFound
	}

	var rec Record
	if err := json.Unmarshal(v.([]byte), &rec); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	return rec, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	r.c.Delete(id)
	return nil
}

func ttl(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return gocache.NoExpiration
	}
	d := time.Until(expiresAt)
	if d <= 0 {
		return time.Millisecond
	}
	return d
}
