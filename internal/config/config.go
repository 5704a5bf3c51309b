package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const (
	envFileVar    = "ENV_FILE"
	configFileVar = "AUTH_CONFIG_FILE"
)

type Config interface {
	EnvConfig
	CorsConfig
	KeycloakConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Keycloak
	Sessions
}

// New builds the configuration from the process environment only.
func New() Config {
	env := EnvVars{}
	return mainConfig{
		EnvVars:  env,
		Keycloak: NewKeycloak(env),
	}
}

// Load reads an optional .env file, then the environment, then the optional YAML
// overlay named by AUTH_CONFIG_FILE.
func Load() (Config, error) {
	envFile := GetEnv(envFileVar, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[config Load] failed to load %s: %w", envFile, err)
	}

	env := EnvVars{}
	kc := NewKeycloak(env)
	if path := os.Getenv(configFileVar); path != "" {
		if err := ApplyFile(path, &kc); err != nil {
			return nil, fmt.Errorf("[config Load] %w", err)
		}
	}

	return mainConfig{
		EnvVars:  env,
		Keycloak: kc,
	}, nil
}
