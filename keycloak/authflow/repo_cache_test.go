package authflow_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/internal/errors"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/authflow"
	"github.com/stretchr/testify/require"
)

func TestCacheRepo_TakeIsSingleUse(t *testing.T) {
	repo := authflow.NewCacheRepo(time.Minute)
	flow := &authflow.State{CodeVerifier: "verifier", Nonce: "nonce", CreatedAt: time.Now()}

	require.NoError(t, repo.Upsert("state-1", flow))
	flow.Nonce = "changed"

	got, err := repo.Take("state-1")
	require.NoError(t, err)
	require.Equal(t, "verifier", got.CodeVerifier)
	require.Equal(t, "nonce", got.Nonce)

	_, err = repo.Take("state-1")
	require.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestCacheRepo_Expiry(t *testing.T) {
	repo := authflow.NewCacheRepo(20 * time.Millisecond)
	require.NoError(t, repo.Upsert("state-1", &authflow.State{Nonce: "n"}))

	time.Sleep(50 * time.Millisecond)

	_, err := repo.Take("state-1")
	require.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestCacheRepo_Validation(t *testing.T) {
	repo := authflow.NewCacheRepo(0)

	require.Error(t, repo.Upsert("", &authflow.State{}))
	require.Error(t, repo.Upsert("s", nil))
	_, err := repo.Take("")
	require.Error(t, err)
}
