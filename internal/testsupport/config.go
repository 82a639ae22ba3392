package testsupport

import (
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Platform fetching is disabled and timers are shortened; options override both.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "lectern.sock")
	cfgVal.Agent.Bind = "127.0.0.1:0"
	cfgVal.Agent.CallTimeout = 2
	cfgVal.Agent.LongPollSeconds = 0
	cfgVal.Platform.Enabled = false
	cfgVal.Recording.WatchdogSeconds = 2
	cfgVal.Recording.FetchDelayMillis = 0
	cfgVal.Recording.StallCheckInterval = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithMaxErrors overrides the recorder error budget.
func WithMaxErrors(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Recording.MaxErrors = n
	}
}

// WithPlatform enables the platform client against baseURL.
func WithPlatform(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Platform.Enabled = true
		b.cfg.Platform.BaseURL = baseURL
		b.cfg.Platform.RequestTimeout = 5
	}
}

// WithAgentToken sets the bearer token the bridge requires.
func WithAgentToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Agent.Token = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
