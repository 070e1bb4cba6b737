package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colsephiroth/storyreel/client"
	"github.com/colsephiroth/storyreel/internal/config"
	"github.com/colsephiroth/storyreel/internal/logging"
	"github.com/colsephiroth/storyreel/internal/scenecache"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     zerolog.Logger
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		logger:       zerolog.Nop(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = *c.logLevelFlag
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) api() (*client.API, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return client.NewAPI(
		cfg.API.BaseURL,
		client.WithToken(cfg.API.Token),
		client.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout()}),
		client.WithAPILogger(c.logger.With().Str("component", "api").Logger()),
	)
}

func (c *commandContext) withCache(fn func(*scenecache.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := scenecache.Open(cfg.Cache.Path, c.logger.With().Str("component", "scenecache").Logger())
	if err != nil {
		return fmt.Errorf("open scene cache: %w", err)
	}
	defer store.Close()
	return fn(store)
}
