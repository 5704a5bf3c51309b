package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagConfigFile string

var rootCmd = &cobra.Command{
	Use:   "dashboard-gateway",
	Short: "dashboard-gateway – Keycloak login for the task dashboard",
	Long:  "dashboard-gateway serves the task dashboard and signs its users in through a Keycloak realm.\n\nRun 'dashboard-gateway serve' to start the server.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "YAML file with Keycloak settings (overrides AUTH_CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkProviderCmd)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
