package config

import "time"

const (
	SessionDriverMemory = "memory"
	SessionDriverRedis  = "redis"
)

type SessionConfig interface {
	GetSessionDriver() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetSessionKeyPrefix() string
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetRememberMeAge() time.Duration
}

type Sessions struct{}

var _ SessionConfig = Sessions{}

func (Sessions) GetSessionDriver() string {
	return GetEnv("SESSION_DRIVER", SessionDriverMemory)
}

func (Sessions) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Sessions) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Sessions) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Sessions) GetSessionKeyPrefix() string {
	return GetEnv("SESSION_KEY_PREFIX", "dashboard")
}

// GetSessionSecret is the key material the stored provider tokens are sealed with.
func (Sessions) GetSessionSecret() string {
	return GetEnv("SESSION_SECRET", "default-session-secret-for-development")
}

func (Sessions) GetMaxSessionAge() time.Duration {
	return GetEnvDuration("SESSION_MAX_AGE", 8*time.Hour)
}

func (Sessions) GetRememberMeAge() time.Duration {
	return GetEnvDuration("REMEMBER_ME_AGE", 30*24*time.Hour)
}
