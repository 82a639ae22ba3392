package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckAgentBind(t *testing.T) {
	cases := []struct {
		name   string
		bind   string
		token  string
		passed bool
	}{
		{name: "loopback", bind: "127.0.0.1:7788", passed: true},
		{name: "localhost", bind: "localhost:7788", passed: true},
		{name: "ipv6 loopback", bind: "[::1]:7788", passed: true},
		{name: "public without token", bind: "0.0.0.0:7788", passed: false},
		{name: "public with token", bind: "0.0.0.0:7788", token: "secret", passed: true},
		{name: "missing port", bind: "127.0.0.1", passed: false},
		{name: "bad port", bind: "127.0.0.1:http", passed: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckAgentBind(tc.bind, tc.token)
			if result.Passed != tc.passed {
				t.Fatalf("CheckAgentBind(%q) passed=%v, want %v (%s)", tc.bind, result.Passed, tc.passed, result.Detail)
			}
		})
	}
}

func TestCheckStore_OK(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	result := CheckStore(context.Background(), "sqlite", store)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result.Name != "Storage (sqlite)" {
		t.Fatalf("unexpected name %q", result.Name)
	}
}

func TestCheckStore_Closed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	result := CheckStore(context.Background(), "", store)
	if result.Passed {
		t.Fatal("expected failure for closed store")
	}
}

func TestCheckPlatform_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithPlatform(srv.URL))
	cfg.Platform.AccessToken = "token"

	result := CheckPlatform(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result.Detail != "Reachable" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckPlatform_NoCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithPlatform(srv.URL))

	result := CheckPlatform(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "no credentials") {
		t.Fatalf("expected credentials note, got %q", result.Detail)
	}
}

func TestCheckPlatform_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithPlatform(url))

	result := CheckPlatform(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for closed server")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := RunAll(context.Background(), cfg, nil)
	// Directories plus the bridge address.
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesStoreAndPlatform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithPlatform(srv.URL))
	store := testsupport.MustOpenStore(t, cfg)

	results := RunAll(context.Background(), cfg, store)
	names := make(map[string]bool)
	for _, r := range results {
		names[r.Name] = true
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if !names["Platform API"] {
		t.Fatal("expected platform check in results")
	}
	found := false
	for name := range names {
		if strings.HasPrefix(name, "Storage") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected storage check in results")
	}
}
