package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateAgent(); err != nil {
		return err
	}
	if err := c.validatePlatform(); err != nil {
		return err
	}
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "sqlite":
	case "redis":
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("storage.redis_addr must be set when storage.backend is redis")
		}
		if c.Storage.RedisDB < 0 {
			return errors.New("storage.redis_db must be >= 0")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want sqlite or redis)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateAgent() error {
	if c.Agent.CallTimeout <= 0 {
		return errors.New("agent.call_timeout must be positive")
	}
	if c.Agent.LongPollSeconds < 0 {
		return errors.New("agent.long_poll_seconds must be >= 0")
	}
	if c.Agent.StaleSeconds <= 0 {
		return errors.New("agent.stale_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePlatform() error {
	if !c.Platform.Enabled {
		return nil
	}
	parsed, err := url.Parse(c.Platform.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("platform.base_url %q is not an absolute url", c.Platform.BaseURL)
	}
	if c.Platform.PageSize <= 0 {
		return errors.New("platform.page_size must be positive")
	}
	if c.Platform.RequestTimeout <= 0 {
		return errors.New("platform.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateRecording() error {
	if c.Recording.MaxErrors <= 0 {
		return errors.New("recording.max_errors must be positive")
	}
	if c.Recording.WatchdogSeconds <= 0 {
		return errors.New("recording.watchdog_seconds must be positive")
	}
	if c.Recording.FetchDelayMillis < 0 {
		return errors.New("recording.fetch_delay_millis must be >= 0")
	}
	if c.Recording.StallCheckInterval < 0 {
		return errors.New("recording.stall_check_interval must be >= 0")
	}
	if c.Recording.StallCheckInterval > 0 && c.Recording.StallChecks <= 0 {
		return errors.New("recording.stall_checks must be positive when stall checks are enabled")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "markdown", "text":
		return nil
	default:
		return fmt.Errorf("output.format: unsupported value %q (want markdown or text)", c.Output.Format)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
