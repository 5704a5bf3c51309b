package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/internal/errors"
	"github.com/jrsteele09/go-dashboard-gateway/session"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo(t *testing.T) {
	repo := session.NewMemoryRepo()
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, session.Record{ID: "s1", State: session.State{Roles: []string{"user"}}, ExpiresAt: time.Now().Add(time.Hour)}))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	got.State.Roles[0] = "changed"

	again, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "user", again.State.Roles[0], "stored records are not shared")

	require.NoError(t, repo.Upsert(ctx, session.Record{ID: "short", ExpiresAt: time.Now().Add(20 * time.Millisecond)}))
	time.Sleep(50 * time.Millisecond)
	_, err = repo.Get(ctx, "short")
	require.ErrorIs(t, err, errors.ErrSessionNotFound)

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err = repo.Get(ctx, "s1")
	require.ErrorIs(t, err, errors.ErrSessionNotFound)
	require.Error(t, repo.Delete(ctx, ""))
}
