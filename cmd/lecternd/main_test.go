package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand(io.Discard, io.Discard)
	if err := cmd.ParseFlags([]string{"--config", "/tmp/lectern.toml", "--socket", "/tmp/l.sock", "--log-level", "debug", "--dev"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	flags := cmd.Flags()
	for name, want := range map[string]string{
		"config":    "/tmp/lectern.toml",
		"socket":    "/tmp/l.sock",
		"log-level": "debug",
		"dev":       "true",
	} {
		if got := flags.Lookup(name).Value.String(); got != want {
			t.Fatalf("--%s = %q, want %q", name, got, want)
		}
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCommand(io.Discard, io.Discard)
	cmd.SetArgs([]string{"extra"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected positional arguments to be rejected")
	}
}

func TestRootCommandHelp(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand(&out, io.Discard)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out.String(), "--log-level") {
		t.Fatalf("expected flags in help output, got %q", out.String())
	}
}

func TestRunReportsConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[storage]\nbackend = \"cassandra\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := newRootCommand(io.Discard, io.Discard)
	cmd.SetArgs([]string{"--config", path})
	err := cmd.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "storage.backend") {
		t.Fatalf("expected storage validation error, got %v", err)
	}
}
