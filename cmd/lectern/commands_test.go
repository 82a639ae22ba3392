package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/testsupport"
)

func TestStatusCommandAgainstRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "running (pid")
	requireContains(t, out, "== Recording ==")
	requireContains(t, out, "[INFO] idle")
	requireContains(t, out, "Extension:")
	requireContains(t, out, "not connected")
	requireContains(t, out, "== Checks ==")
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	requireContains(t, out, `"running": true`)
	requireContains(t, out, `"state": "idle"`)
}

func TestStatusCommandWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"status"}, cfg.Paths.SocketPath, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[WARN] not running")
	requireContains(t, out, "State directory")
	if strings.Contains(out, "== Recording ==") {
		t.Fatalf("did not expect recording section while offline:\n%s", out)
	}
}

func TestRecordingCommandsWhileIdle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Recording stopped")

	_, _, err = runCLI(t, []string{"force-advance"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected force-advance to fail while idle")
	}
	requireContains(t, err.Error(), "lectern start <page>")

	_, _, err = runCLI(t, []string{"start", "  "}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected blank page to be rejected")
	}
	requireContains(t, err.Error(), "start recording")

	out, _, err = runCLI(t, []string{"clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	requireContains(t, out, "Transcripts cleared")
}

func TestStartRequiresPageArgument(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected missing page argument to fail")
	}
}

func TestExportCommandWritesFile(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "out", "course.md")

	out, _, err := runCLI(t, []string{"export", "--output", target, "--title", "My Notes"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, `Wrote "My Notes"`)
	requireContains(t, out, "Lectures")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	requireContains(t, string(data), "My Notes")
}

func TestExportCommandStdout(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"export", "--format", "text"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Course Transcript")

	if _, _, err := runCLI(t, []string{"export", "--format", "pdf"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unsupported format to fail")
	}
}

func TestLogsCommandShowsDaemonEvents(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs", "--lines", "50"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "lectern daemon started")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	if env.cfg.Notifications.NtfyTopic != "" {
		t.Skip("ntfy topic configured from environment")
	}

	out, _, _ := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	requireContains(t, out, "ntfy topic not configured")
}

func TestCommandsReportMissingDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"health"}, cfg.Paths.SocketPath, configPath)
	if err == nil {
		t.Fatal("expected health to fail without a daemon")
	}
	requireContains(t, err.Error(), "lectern daemon start")
}

func TestDaemonStopWhenNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"daemon", "stop"}, cfg.Paths.SocketPath, configPath)
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestExportCommandIntoDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()

	out, _, err := runCLI(t, []string{"export", "-o", dir, "-t", "Go: Basics", "-f", "text"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := filepath.Join(dir, "Go- Basics.txt")
	requireContains(t, out, want)
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected document at %s: %v", want, err)
	}
}

func TestLogsCommandReadsFileWhenDaemonDown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	if err := os.WriteFile(cfg.LogFilePath(), []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, stderr, err := runCLI(t, []string{"logs", "-n", "2"}, cfg.Paths.SocketPath, configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected output %q", out)
	}
	requireContains(t, stderr, "Daemon not running")
}

func TestLogsCommandOverAPI(t *testing.T) {
	env := setupCLITestEnv(t)
	address := env.daemon.Status(context.Background()).AgentAddress

	cfg := *env.cfg
	cfg.Agent.Bind = address
	configPath := filepath.Join(t.TempDir(), "api.toml")
	writeTestConfig(t, configPath, &cfg)

	out, _, err := runCLI(t, []string{"logs", "--api", "-n", "50"}, env.socketPath, configPath)
	if err != nil {
		t.Fatalf("logs --api: %v", err)
	}
	requireContains(t, out, "lectern daemon started")
}
