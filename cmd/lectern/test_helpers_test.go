package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/agent"
	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/ipc"
	"lectern/internal/logging"
	"lectern/internal/recorder"
	"lectern/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	hub := logging.NewStreamHub(256)
	logPath := filepath.Join(cfg.Paths.LogDir, "cli-test.log")
	logger, err := logging.New(logging.Options{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		Stream:           hub,
	})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	bridge := agent.New(cfg, logger)
	mgr := recorder.NewManager(cfg, store, bridge, logger)
	d, err := daemon.New(cfg, store, logger, bridge, mgr, hub)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		d.Close()
		t.Fatalf("daemon Start: %v", err)
	}
	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		socketPath: cfg.Paths.SocketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
socket_path = %q

[agent]
bind = %q
call_timeout = %d
long_poll_seconds = 0

[platform]
enabled = false

[recording]
watchdog_seconds = %d
stall_check_interval = 0
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.SocketPath,
		cfg.Agent.Bind,
		cfg.Agent.CallTimeout,
		cfg.Recording.WatchdogSeconds,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
