package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Storage selects the durable key-value backend that holds transcripts and checkpoints.
type Storage struct {
	Backend       string `toml:"backend"`
	TranscriptKey string `toml:"transcript_key"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// Agent contains configuration for the page-agent bridge the browser extension polls.
type Agent struct {
	Bind            string `toml:"bind"`
	Token           string `toml:"token"`
	CallTimeout     int    `toml:"call_timeout"`
	LongPollSeconds int    `toml:"long_poll_seconds"`
	StaleSeconds    int    `toml:"stale_seconds"`
}

// Platform contains configuration for the course-content API used by the list strategy.
type Platform struct {
	Enabled        bool     `toml:"enabled"`
	BaseURL        string   `toml:"base_url"`
	Cookie         string   `toml:"cookie"`
	AccessToken    string   `toml:"access_token"`
	PageSize       int      `toml:"page_size"`
	CaptionLocales []string `toml:"caption_locales"`
	RequestTimeout int      `toml:"request_timeout"`
	UserAgent      string   `toml:"user_agent"`
}

// Recording contains the orchestrator's error budget and timing policy.
type Recording struct {
	MaxErrors          int `toml:"max_errors"`
	WatchdogSeconds    int `toml:"watchdog_seconds"`
	FetchDelayMillis   int `toml:"fetch_delay_millis"`
	StallCheckInterval int `toml:"stall_check_interval"`
	StallChecks        int `toml:"stall_checks"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Stopped        bool   `toml:"stopped"`
	Errors         bool   `toml:"errors"`
}

// Output controls rendering of the transcript document.
type Output struct {
	Format string `toml:"format"`
	Title  string `toml:"title"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Lectern.
//
// Configuration sections by subsystem:
//   - Paths: state, log and socket locations
//   - Storage: durable key-value backend (sqlite or redis)
//   - Agent: page-agent bridge bind address and call timeouts
//   - Platform: course-content API used when the page exposes a course id
//   - Recording: error budget, watchdog and pacing
//   - Notifications: ntfy push notification settings
//   - Output: transcript document format
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Agent         Agent         `toml:"agent"`
	Platform      Platform      `toml:"platform"`
	Recording     Recording     `toml:"recording"`
	Notifications Notifications `toml:"notifications"`
	Output        Output        `toml:"output"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lectern.toml")
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

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.SocketPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create socket directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing the sqlite storage backend.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "lectern.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "lecternd.lock")
}

// PIDPath returns the file the running daemon records its process id in.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "lecternd.pid")
}

// LogFilePath returns the daemon log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "lectern.log")
}

// AgentCallTimeout bounds every request the orchestrator sends to the page agent.
func (c *Config) AgentCallTimeout() time.Duration {
	return time.Duration(c.Agent.CallTimeout) * time.Second
}

// AgentLongPoll is how long a sync request is held open when no command is pending.
func (c *Config) AgentLongPoll() time.Duration {
	return time.Duration(c.Agent.LongPollSeconds) * time.Second
}

// Watchdog is the wait for a capture report after a navigation is accepted.
func (c *Config) Watchdog() time.Duration {
	return time.Duration(c.Recording.WatchdogSeconds) * time.Second
}

// FetchDelay paces direct content fetches in the list strategy.
func (c *Config) FetchDelay() time.Duration {
	return time.Duration(c.Recording.FetchDelayMillis) * time.Millisecond
}

// StallInterval is the period of the stall monitor.
func (c *Config) StallInterval() time.Duration {
	return time.Duration(c.Recording.StallCheckInterval) * time.Second
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

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
