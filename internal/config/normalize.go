package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeAgent()
	c.normalizePlatform()
	c.normalizeNotifications()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.LogDir, defaultSocketName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.TranscriptKey = strings.TrimSpace(c.Storage.TranscriptKey)
	if c.Storage.TranscriptKey == "" {
		c.Storage.TranscriptKey = defaultTranscriptKey
	}
	c.Storage.RedisAddr = strings.TrimSpace(c.Storage.RedisAddr)
	if c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = defaultRedisAddr
	}
	if c.Storage.RedisPassword == "" {
		if value, ok := os.LookupEnv(defaultRedisPasswordEnv); ok {
			c.Storage.RedisPassword = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeAgent() {
	c.Agent.Bind = strings.TrimSpace(c.Agent.Bind)
	if c.Agent.Bind == "" {
		c.Agent.Bind = defaultAgentBind
	}
	c.Agent.Token = strings.TrimSpace(c.Agent.Token)
	if c.Agent.Token == "" {
		if value, ok := os.LookupEnv(defaultAgentTokenEnv); ok {
			c.Agent.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizePlatform() {
	c.Platform.BaseURL = strings.TrimRight(strings.TrimSpace(c.Platform.BaseURL), "/")
	if c.Platform.BaseURL == "" {
		c.Platform.BaseURL = defaultPlatformBaseURL
	}
	c.Platform.Cookie = strings.TrimSpace(c.Platform.Cookie)
	if c.Platform.Cookie == "" {
		if value, ok := os.LookupEnv(defaultPlatformCookieEnv); ok {
			c.Platform.Cookie = strings.TrimSpace(value)
		}
	}
	c.Platform.AccessToken = strings.TrimSpace(c.Platform.AccessToken)
	if c.Platform.AccessToken == "" {
		if value, ok := os.LookupEnv(defaultPlatformTokenEnv); ok {
			c.Platform.AccessToken = strings.TrimSpace(value)
		}
	}
	locales := make([]string, 0, len(c.Platform.CaptionLocales))
	for _, locale := range c.Platform.CaptionLocales {
		if trimmed := strings.TrimSpace(locale); trimmed != "" {
			locales = append(locales, trimmed)
		}
	}
	c.Platform.CaptionLocales = locales
	c.Platform.UserAgent = strings.TrimSpace(c.Platform.UserAgent)
	if c.Platform.UserAgent == "" {
		c.Platform.UserAgent = defaultPlatformUserAgent
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(defaultNotificationsTopicEnv); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	c.Output.Title = strings.TrimSpace(c.Output.Title)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
