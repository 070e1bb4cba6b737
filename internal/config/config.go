package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// API holds the backend connection settings.
type API struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Polling overrides the reconciler intervals. All values are milliseconds.
type Polling struct {
	FirstPollMS        int `toml:"first_poll_ms"`
	QueuedMS           int `toml:"queued_ms"`
	InProgressMS       int `toml:"in_progress_ms"`
	CompletedWaitMS    int `toml:"completed_wait_ms"`
	NetworkErrorBaseMS int `toml:"network_error_base_ms"`
	MaxNetworkSteps    int `toml:"max_network_steps"`
	MaxResultWaitMS    int `toml:"max_result_wait_ms"`
}

// Cache locates the local scene cache and the generation lock files.
type Cache struct {
	Path    string `toml:"path"`
	LockDir string `toml:"lock_dir"`
}

// Mock configures `storyreel mock serve`.
type Mock struct {
	Bind          string  `toml:"bind"`
	Token         string  `toml:"token"`
	PublicURL     string  `toml:"public_url"`
	FailureRate   float64 `toml:"failure_rate"`
	MinDelayMS    int     `toml:"min_delay_ms"`
	DelaySpreadMS int     `toml:"delay_spread_ms"`
	URLLagMS      int     `toml:"url_lag_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for storyreel.
type Config struct {
	API     API     `toml:"api"`
	Polling Polling `toml:"polling"`
	Cache   Cache   `toml:"cache"`
	Mock    Mock    `toml:"mock"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/storyreel/config.toml")
}

// Load reads the TOML file at path (or the default locations when path is
// empty), applies .env and STORYREEL_* overrides, then normalizes and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	loadDotEnv()
	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("storyreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	c.API.BaseURL = strings.TrimSpace(c.API.BaseURL)
	c.API.Token = strings.TrimSpace(c.API.Token)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	var err error
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = Default().Cache.Path
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if strings.TrimSpace(c.Cache.LockDir) == "" {
		c.Cache.LockDir = filepath.Join(filepath.Dir(c.Cache.Path), "locks")
	}
	if c.Cache.LockDir, err = expandPath(c.Cache.LockDir); err != nil {
		return fmt.Errorf("cache.lock_dir: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories holding the cache and lock files.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{filepath.Dir(c.Cache.Path), c.Cache.LockDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
