package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"lectern/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("LECTERN_PLATFORM_COOKIE", "")
	t.Setenv("LECTERN_AGENT_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "lectern")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	wantSocket := filepath.Join(tempHome, ".local", "share", "lectern", "logs", "lectern.sock")
	if cfg.Paths.SocketPath != wantSocket {
		t.Fatalf("unexpected socket path: got %q want %q", cfg.Paths.SocketPath, wantSocket)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Fatalf("expected sqlite backend by default, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.TranscriptKey != "transcriptData" {
		t.Fatalf("unexpected transcript key: %q", cfg.Storage.TranscriptKey)
	}
	if cfg.Recording.MaxErrors != 5 {
		t.Fatalf("expected max errors 5, got %d", cfg.Recording.MaxErrors)
	}
	if cfg.Watchdog() != 180*time.Second {
		t.Fatalf("unexpected watchdog: %s", cfg.Watchdog())
	}
	if cfg.FetchDelay() != 500*time.Millisecond {
		t.Fatalf("unexpected fetch delay: %s", cfg.FetchDelay())
	}
	if cfg.AgentCallTimeout() != 30*time.Second {
		t.Fatalf("unexpected agent call timeout: %s", cfg.AgentCallTimeout())
	}
	if cfg.Agent.Bind != "127.0.0.1:7488" {
		t.Fatalf("unexpected agent bind: %q", cfg.Agent.Bind)
	}
	if !cfg.Platform.Enabled {
		t.Fatal("expected platform fetching enabled by default")
	}
	if len(cfg.Platform.CaptionLocales) == 0 || cfg.Platform.CaptionLocales[0] != "en_US" {
		t.Fatalf("unexpected caption locales: %v", cfg.Platform.CaptionLocales)
	}
	if cfg.Output.Format != "markdown" {
		t.Fatalf("unexpected output format: %q", cfg.Output.Format)
	}
}

func TestLoadHonoursEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LECTERN_PLATFORM_COOKIE", "  access_token=abc  ")
	t.Setenv("LECTERN_AGENT_TOKEN", "bridge-secret")
	t.Chdir(t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Platform.Cookie != "access_token=abc" {
		t.Fatalf("expected cookie from env, got %q", cfg.Platform.Cookie)
	}
	if cfg.Agent.Token != "bridge-secret" {
		t.Fatalf("expected agent token from env, got %q", cfg.Agent.Token)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[paths]
state_dir = "~/state"

[storage]
backend = "Redis"
redis_addr = "10.0.0.5:6379"
redis_db = 2

[recording]
max_errors = 3
watchdog_seconds = 45

[output]
format = "TEXT"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("expected tilde expansion, got %q", cfg.Paths.StateDir)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisDB != 2 {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Recording.MaxErrors != 3 || cfg.Watchdog() != 45*time.Second {
		t.Fatalf("unexpected recording config: %+v", cfg.Recording)
	}
	if cfg.Output.Format != "text" {
		t.Fatalf("expected lowercased output format, got %q", cfg.Output.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"backend", func(c *config.Config) { c.Storage.Backend = "mongo" }, "storage.backend"},
		{"max errors", func(c *config.Config) { c.Recording.MaxErrors = 0 }, "recording.max_errors"},
		{"watchdog", func(c *config.Config) { c.Recording.WatchdogSeconds = -1 }, "recording.watchdog_seconds"},
		{"base url", func(c *config.Config) { c.Platform.BaseURL = "not a url" }, "platform.base_url"},
		{"output", func(c *config.Config) { c.Output.Format = "pdf" }, "output.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateSkipsPlatformWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Platform.Enabled = false
	cfg.Platform.BaseURL = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled platform to skip validation, got %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if parsed.Recording.MaxErrors != config.Default().Recording.MaxErrors {
		t.Fatalf("sample max_errors %d does not match default", parsed.Recording.MaxErrors)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load(sample) returned error: %v", err)
	}
}

func TestEnsureDirectoriesCreatesStateAndLogDirs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SocketPath = filepath.Join(base, "run", "lectern.sock")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, filepath.Dir(cfg.Paths.SocketPath)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist", dir)
		}
	}
}
