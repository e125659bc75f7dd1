package config

import (
	"os"
	"path/filepath"
	"strconv"
)

const (
	baseURLVar   = "CAMPAIGNS_BASE_URL"
	appNameVar   = "CAMPAIGNS_APP_NAME"
	timeoutVar   = "CAMPAIGNS_REQUEST_TIMEOUT"
	tokenFileVar = "CAMPAIGNS_TOKEN_FILE"
	logLevelVar  = "CAMPAIGNS_LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// GetBaseURL returns the root URL of the campaigns portal API.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8000")
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Campaigns Client")
}

func (EnvVars) GetRequestTimeoutSeconds() int {
	raw := GetEnv(timeoutVar, "30")
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 30
	}
	return secs
}

// GetTokenFile returns where the file-backed token store keeps its document.
// Defaults to a dotfile in the user's home directory.
func (EnvVars) GetTokenFile() string {
	if path := os.Getenv(tokenFileVar); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".campaigns-tokens.json"
	}
	return filepath.Join(home, ".campaigns-tokens.json")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
