package config_test

import (
	"testing"

	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"localhost:4200", true},
		{"LOCALHOST", true},
		{"127.0.0.1", true},
		{"127.0.0.1:8080", true},
		{"dev.tasks.example.com", true},
		{"tasks-devbox", true},
		{"tasks.example.com", false},
		{"10.0.0.5", false},
		{"[::1]:4200", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			require.Equal(t, tt.want, config.IsDevelopment(tt.host))
		})
	}
}

func TestResolve(t *testing.T) {
	offline := config.DefaultKeycloak("http://localhost:4200")
	offline.Offline = true

	live := config.DefaultKeycloak("http://localhost:4200")

	t.Run("offline flag on a development host", func(t *testing.T) {
		active := config.Resolve(offline, "localhost")
		o, ok := active.(config.Offline)
		require.True(t, ok, "expected Offline, got %T", active)
		require.Equal(t, "mock-user-id", o.MockUser.ID)
		require.Equal(t, []string{"user"}, o.MockUser.Roles)
		require.Equal(t, config.ModeDevelopment, active.Mode())
	})

	t.Run("offline flag is ignored outside development hosts", func(t *testing.T) {
		for _, host := range []string{"tasks.example.com", "app.example.org:443", "192.168.1.20"} {
			active := config.Resolve(offline, host)
			_, ok := active.(config.Live)
			require.True(t, ok, "host %s resolved to %T", host, active)
		}
	})

	t.Run("development host without the offline flag is live", func(t *testing.T) {
		active := config.Resolve(live, "localhost")
		l, ok := active.(config.Live)
		require.True(t, ok)
		require.Equal(t, "ensa-realm", l.Provider.Realm)
		require.Equal(t, "task-client", l.Provider.ClientID)
		require.Equal(t, config.PKCEMethodS256, l.Provider.InitOptions.PKCEMethod)
		require.Equal(t, config.OnLoadCheckSSO, l.Provider.InitOptions.OnLoad)
		require.Equal(t, "http://localhost:4200/dashboard", l.Provider.InitOptions.RedirectURI)
		require.Equal(t, "http://localhost:4200/login", l.Provider.InitOptions.PostLogoutRedirectURI)
		require.Equal(t, config.ModeProduction, active.Mode())
	})
}

func TestProviderConfig_URLs(t *testing.T) {
	p := config.ProviderConfig{URL: "https://sso.example.com", Realm: "tasks"}
	require.Equal(t, "https://sso.example.com/realms/tasks", p.IssuerURL())
	require.Equal(t, "https://sso.example.com/realms/tasks/login-actions/reset-credentials", p.ResetCredentialsURL())
}
