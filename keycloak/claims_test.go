package keycloak_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/keycloaktest"
	"github.com/stretchr/testify/require"
)

func TestRoles(t *testing.T) {
	realm := keycloaktest.New(t)
	realm.RealmRoles = []string{"user", "admin"}
	realm.ClientRoles = map[string][]string{"zeta": {"admin", "z"}, "alpha": {"a"}}

	claims, err := keycloak.ParseClaims(realm.AccessToken(time.Minute))
	require.NoError(t, err)

	require.Equal(t, []string{"user", "admin"}, keycloak.RealmRoles(claims))
	require.Equal(t, []string{"a"}, keycloak.ResourceRoles(claims, "alpha"))
	require.Empty(t, keycloak.ResourceRoles(claims, "missing"))
	require.Equal(t, []string{"user", "admin", "a", "z"}, keycloak.Roles(claims))
}

func TestDecodeTokenInfo(t *testing.T) {
	t.Run("keycloak access token", func(t *testing.T) {
		realm := keycloaktest.New(t)

		info, err := keycloak.DecodeTokenInfo(realm.AccessToken(time.Hour))
		require.NoError(t, err)
		require.Equal(t, keycloaktest.Subject, info.Subject)
		require.Equal(t, "Jane Doe", info.Name)
		require.Equal(t, keycloaktest.Email, info.Email)
		require.WithinDuration(t, time.Now(), info.IssuedAt, time.Minute)
		require.WithinDuration(t, time.Now().Add(time.Hour), info.ExpiresAt, time.Minute)
	})

	t.Run("not a token", func(t *testing.T) {
		_, err := keycloak.DecodeTokenInfo("not-a-jwt")
		require.Error(t, err)
	})
}

func TestTokenSet_ExpiresWithin(t *testing.T) {
	now := time.Now()

	require.False(t, (&keycloak.TokenSet{}).ExpiresWithin(time.Hour, now))
	require.True(t, (&keycloak.TokenSet{Expiry: now.Add(time.Minute)}).ExpiresWithin(70*time.Second, now))
	require.False(t, (&keycloak.TokenSet{Expiry: now.Add(2 * time.Minute)}).ExpiresWithin(70*time.Second, now))
	require.True(t, (&keycloak.TokenSet{Expiry: now.Add(-time.Second)}).ExpiresWithin(0, now))
}
