package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/internal/errors"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisRepo stores sessions as JSON values under "<prefix>:session:<id>".
type RedisRepo struct {
	client *redis.Client
	prefix string
}

var _ Repo = (*RedisRepo)(nil)

// NewRedisRepo connects and pings the server.
func NewRedisRepo(ctx context.Context, cfg RedisConfig) (*RedisRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: redis ping failed: %w", err)
	}

	return &RedisRepo{client: client, prefix: cfg.Prefix}, nil
}

func (r *RedisRepo) key(id string) string {
	if r.prefix == "" {
		return "session:" + id
	}
	return r.prefix + ":session:" + id
}

func (r *RedisRepo) Upsert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var expiration time.Duration
	if !rec.ExpiresAt.IsZero() {
		expiration = ttl(rec.ExpiresAt)
	}
	return r.client.Set(ctx, r.key(rec.ID), b, expiration).Err()
}

func (r *RedisRepo) Get(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("session id is required")
	}
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		return Record{}, errors.ErrSessionNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	return rec, nil
}

func (r *RedisRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}
