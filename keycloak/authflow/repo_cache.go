package authflow

import (
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-dashboard-gateway/internal/errors"
	gocache "github.com/patrickmn/go-cache"
)

// CacheRepo stores flow states in memory and expires them after the TTL.
type CacheRepo struct {
	mu sync.Mutex
	c  *gocache.Cache
}

var _ Repo = (*CacheRepo)(nil)

func NewCacheRepo(ttl time.Duration) *CacheRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CacheRepo{c: gocache.New(ttl, time.Minute)}
}

func (r *CacheRepo) Upsert(state string, flow *State) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	stored := *flow
	r.c.SetDefault(state, &stored)
	return nil
}

func (r *CacheRepo) Take(state string) (*State, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.c.Get(state)
	if !ok {
		return nil, apperrors.ErrInvalidState
	}
	r.c.Delete(state)

	flow := *v.(*State)
	return &flow, nil
}
