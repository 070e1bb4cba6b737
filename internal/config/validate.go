package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/colsephiroth/storyreel/internal/logging"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateMock(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute url, got %q", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("api.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePolling() error {
	p := c.Polling
	for name, v := range map[string]int{
		"polling.first_poll_ms":         p.FirstPollMS,
		"polling.queued_ms":             p.QueuedMS,
		"polling.in_progress_ms":        p.InProgressMS,
		"polling.completed_wait_ms":     p.CompletedWaitMS,
		"polling.network_error_base_ms": p.NetworkErrorBaseMS,
		"polling.max_result_wait_ms":    p.MaxResultWaitMS,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if p.MaxNetworkSteps < 1 {
		return errors.New("polling.max_network_steps must be at least 1")
	}
	if p.MaxResultWaitMS < p.CompletedWaitMS {
		return errors.New("polling.max_result_wait_ms must not be shorter than polling.completed_wait_ms")
	}
	return nil
}

func (c *Config) validateMock() error {
	if c.Mock.FailureRate < 0 || c.Mock.FailureRate > 1 {
		return fmt.Errorf("mock.failure_rate must be within [0, 1], got %v", c.Mock.FailureRate)
	}
	if c.Mock.MinDelayMS < 0 || c.Mock.DelaySpreadMS < 0 || c.Mock.URLLagMS < 0 {
		return errors.New("mock delays must not be negative")
	}
	if c.Mock.Bind == "" {
		return errors.New("mock.bind is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "", logging.FormatAuto, logging.FormatJSON, logging.FormatConsole:
		return nil
	default:
		return fmt.Errorf("logging.format must be auto, json or console, got %q", c.Logging.Format)
	}
}
