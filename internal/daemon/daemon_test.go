package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"lectern/internal/agent"
	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/kvstore"
	"lectern/internal/logging"
	"lectern/internal/recorder"
	"lectern/internal/testsupport"
	"lectern/internal/transcripts"
)

func newDaemon(t *testing.T, cfg *config.Config, store kvstore.Store) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	bridge := agent.New(cfg, logger)
	mgr := recorder.NewManager(cfg, store, bridge, logger)
	d, err := daemon.New(cfg, store, logger, bridge, mgr, logging.NewStreamHub(64))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Recorder.State != recorder.StateIdle {
		t.Fatalf("expected idle recorder, got %s", status.Recorder.State)
	}
	if strings.HasSuffix(status.AgentAddress, ":0") {
		t.Fatalf("expected bound agent address, got %s", status.AgentAddress)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := newDaemon(t, cfg, store)
	second := newDaemon(t, cfg, store)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	err := second.Start(ctx)
	if err == nil {
		second.Stop()
		t.Fatal("expected lock conflict")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDaemonServesAgentAndStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAgentToken("secret"))
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	base := "http://" + d.Status(ctx).AgentAddress

	body, _ := json.Marshal(agent.SyncRequest{PageID: "tab-1", AgentVersion: "1.2.0"})
	req, _ := http.NewRequest(http.MethodPost, base+"/agent/sync", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync status %d", resp.StatusCode)
	}

	health := d.Health(ctx)
	if !health.Agent.Connected {
		t.Fatal("expected agent to be connected after sync")
	}
	if health.Agent.AgentVersion != "1.2.0" {
		t.Fatalf("unexpected agent version %q", health.Agent.AgentVersion)
	}
	if !health.StoreOK {
		t.Fatalf("expected store ok, got %s", health.StoreError)
	}
	if len(health.Checks) == 0 {
		t.Fatal("expected preflight results")
	}

	resp, err = http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, base+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer resp.Body.Close()
	var payload struct {
		Running bool `json:"running"`
		Agent   struct {
			Connected bool `json:"connected"`
		} `json:"agent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !payload.Running || !payload.Agent.Connected {
		t.Fatalf("unexpected status payload %+v", payload)
	}
}

func TestDaemonExport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	repo := transcripts.NewRepository(store, cfg.Storage.TranscriptKey)
	seed := transcripts.Collection{}
	seed.Set("1. Intro", "1. Welcome", []string{"hello there"})
	seed.Set("1. Intro", "2. Setup", []string{transcripts.ErrorLine("navigation failed")})
	if err := repo.Save(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	d := newDaemon(t, cfg, store)
	export, err := d.Export(ctx, "markdown", "")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if export.Title != "Course Transcript" {
		t.Fatalf("unexpected title %q", export.Title)
	}
	if export.Sections != 1 || export.Lectures != 2 {
		t.Fatalf("unexpected counts: %d sections, %d lectures", export.Sections, export.Lectures)
	}
	if len(export.Failed) != 1 {
		t.Fatalf("expected one failed lecture, got %v", export.Failed)
	}
	if !strings.Contains(export.Document, "hello there") {
		t.Fatalf("document missing transcript text:\n%s", export.Document)
	}

	titled, err := d.Export(ctx, "text", "My Notes")
	if err != nil {
		t.Fatalf("Export text: %v", err)
	}
	if titled.Title != "My Notes" {
		t.Fatalf("unexpected title %q", titled.Title)
	}

	if _, err := d.Export(ctx, "pdf", ""); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestDaemonStopRecordingWhenIdle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	if err := d.StopRecording(context.Background(), ""); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if err := d.ForceAdvance(context.Background()); err == nil {
		t.Fatal("expected force advance to fail when idle")
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent || message != "ntfy topic not configured" {
		t.Fatalf("unexpected result sent=%v message=%q", sent, message)
	}
}
