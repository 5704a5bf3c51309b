package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-dashboard-gateway/internal/config"
	"github.com/jrsteele09/go-dashboard-gateway/internal/logging"
	"github.com/jrsteele09/go-dashboard-gateway/internal/metrics"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak"
	"github.com/jrsteele09/go-dashboard-gateway/keycloak/authflow"
	"github.com/jrsteele09/go-dashboard-gateway/server"
	"github.com/jrsteele09/go-dashboard-gateway/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
	providerTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx := context.Background()
	sessions, closeSessions, err := newSessionStore(ctx, c)
	if err != nil {
		return err
	}
	defer closeSessions()

	m, err := metrics.New(nil, nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	providers := keycloak.NewProviders(&http.Client{Timeout: providerTimeout})
	handler, err := server.New(c, sessions, authflow.NewCacheRepo(authflow.DefaultTTL), providers, m)
	if err != nil {
		return err
	}
	handler.InitialiseSystem(ctx)

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(srv)
	}()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func loadConfig() (config.Config, error) {
	if flagConfigFile != "" {
		if err := os.Setenv("AUTH_CONFIG_FILE", flagConfigFile); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// newSessionStore builds the store for the configured driver. The returned
// func releases the backing connection.
func newSessionStore(ctx context.Context, c config.Config) (*session.Store, func(), error) {
	sealer, err := session.NewSealer(c.GetSessionSecret())
	if err != nil {
		return nil, nil, fmt.Errorf("session sealer: %w", err)
	}
	opts := []session.Option{session.WithRememberMeAge(c.GetRememberMeAge())}

	switch driver := c.GetSessionDriver(); driver {
	case config.SessionDriverMemory:
		log.Info().Msg("sessions are kept in memory")
		return session.NewStore(session.NewMemoryRepo(), sealer, c.GetMaxSessionAge(), opts...), func() {}, nil
	case config.SessionDriverRedis:
		repo, err := session.NewRedisRepo(ctx, session.RedisConfig{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
			Prefix:   c.GetSessionKeyPrefix(),
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("sessions are kept in redis")
		closeRepo := func() {
			if err := repo.Close(); err != nil {
				log.Err(err).Msg("failed to close redis")
			}
		}
		return session.NewStore(repo, sealer, c.GetMaxSessionAge(), opts...), closeRepo, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %q", driver)
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
