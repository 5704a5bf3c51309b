package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-dashboard-gateway/auth"
	"github.com/jrsteele09/go-dashboard-gateway/internal/logging"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/authflow"
	"github.com/jrsteele09/go-dashboard-gateway/location"
	"github.com/jrsteele09/go-dashboard-gateway/session"
	"github.com/spf13/cobra"
)

var flagCheckURL string

var checkProviderCmd = &cobra.Command{
	Use:   "check-provider",
	Short: "Check that the Keycloak realm answers",
	Long:  "check-provider resolves the configuration for the dashboard URL and requests the realm, the same way the login page does before showing an error.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkProvider(cmd.Context())
	},
}

func init() {
	checkProviderCmd.Flags().StringVar(&flagCheckURL, "url", "", "dashboard URL to resolve the configuration for (defaults to BASE_URL)")
}

func checkProvider(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())

	target := flagCheckURL
	if target == "" {
		target = c.GetBaseURL()
	}
	loc, err := location.NewMemory(target + auth.LoginPath)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", target, err)
	}

	sealer, err := session.NewSealer(c.GetSessionSecret())
	if err != nil {
		return err
	}
	store, err := session.NewStore(session.NewMemoryRepo(), sealer, c.GetMaxSessionAge()).Open(ctx, "")
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: providerTimeout}
	sdk := keycloak.NewOIDCClient(c.GetProviderConfig(), keycloak.NewProviders(client), authflow.NewCacheRepo(authflow.DefaultTTL), store, loc)
	svc, err := auth.NewService(c, sdk, loc, auth.WithTransport(keycloak.NewHTTPTransport(client)))
	if err != nil {
		return err
	}

	mode := svc.Mode().Mode()
	if err := svc.CheckProvider(ctx); err != nil {
		return fmt.Errorf("%s mode: %w", mode, err)
	}
	fmt.Printf("Keycloak realm %s is reachable (%s mode)\n", c.GetProviderConfig().IssuerURL(), mode)
	return nil
}
