// Package config resolves client configuration from the environment.
package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	RedisConfig
}

type EnvConfig interface {
	GetBaseURL() string
	GetAppName() string
	GetRequestTimeoutSeconds() int
	GetTokenFile() string
	GetLogLevel() string
	GetEnv() string
}

type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisKeyPrefix() string
}

type mainConfig struct {
	EnvVars
	Redis
}

// New loads an optional .env file and returns the resolved configuration.
func New() Config {
	godotenv.Load() //nolint:errcheck // a missing .env file is fine
	return mainConfig{}
}
