package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "STORYREEL_"

// loadDotEnv fills the process environment from .env files in the working
// directory. Variables already set win.
func loadDotEnv() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnv("API_BASE_URL", c.API.BaseURL)
	c.API.Token = getEnv("API_TOKEN", c.API.Token)
	c.API.TimeoutSeconds = getEnvInt("API_TIMEOUT_SECONDS", c.API.TimeoutSeconds)
	c.Cache.Path = getEnv("CACHE_PATH", c.Cache.Path)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Mock.Bind = getEnv("MOCK_BIND", c.Mock.Bind)
	c.Mock.Token = getEnv("MOCK_TOKEN", c.Mock.Token)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(envPrefix + key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
