package daemonrun

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"lectern/internal/testsupport"
)

func TestRecorderOptions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts, err := recorderOptions(cfg)
	if err != nil {
		t.Fatalf("recorderOptions: %v", err)
	}
	if len(opts) != 1 {
		t.Fatalf("expected notifier only, got %d options", len(opts))
	}

	cfg = testsupport.NewConfig(t, testsupport.WithPlatform("https://courses.example.com"))
	opts, err = recorderOptions(cfg)
	if err != nil {
		t.Fatalf("recorderOptions with platform: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("expected notifier and content source, got %d options", len(opts))
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lecternd.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file contents %q", data)
	}
	if err := writePIDFile(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}
