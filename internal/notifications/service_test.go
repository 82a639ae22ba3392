package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"lectern/internal/config"
	"lectern/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		msgs []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		msgs = append(msgs, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), msgs...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRecordingCompleted(context.Background(), "Go", 3, 0, time.Minute); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, messages := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyRecordingCompleted(ctx, "Go Basics", 12, 0, 95*time.Second); err != nil {
		t.Fatalf("completed: %v", err)
	}
	if err := svc.NotifyRecordingCompleted(ctx, "", 10, 2, 0); err != nil {
		t.Fatalf("completed with errors: %v", err)
	}
	if err := svc.NotifyRecordingStopped(ctx, "Go Basics", "too many consecutive errors", 4, 12); err != nil {
		t.Fatalf("stopped: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "discovery"); err != nil {
		t.Fatalf("error: %v", err)
	}

	got := messages()
	if len(got) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(got))
	}
	if got[0].title != "Lectern - Recording Complete" || got[0].body != "✅ Transcripts ready: Go Basics (12 lectures in 1m35s)" {
		t.Fatalf("unexpected completed payload: %+v", got[0])
	}
	if got[0].priority != "high" || got[0].tags != "lectern,recording,completed" {
		t.Fatalf("unexpected completed headers: %+v", got[0])
	}
	if got[1].title != "Lectern - Recording Complete (with errors)" || got[1].body != "Transcripts ready: course (10 captured, 2 failed in 0s)" {
		t.Fatalf("unexpected completed-with-errors payload: %+v", got[1])
	}
	if !strings.Contains(got[2].body, "at 4/12") || !strings.Contains(got[2].body, "Reason: too many consecutive errors") {
		t.Fatalf("unexpected stopped payload: %+v", got[2])
	}
	if got[3].body != "❌ Error with discovery: boom" {
		t.Fatalf("unexpected error payload: %+v", got[3])
	}
}

func TestNtfyServiceHonoursEventToggles(t *testing.T) {
	srv, messages := newNtfyServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Stopped = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	_ = svc.NotifyRecordingStopped(ctx, "Go", "user request", 1, 2)
	_ = svc.NotifyError(ctx, errors.New("boom"), "")
	if got := messages(); len(got) != 0 {
		t.Fatalf("expected disabled events to be skipped, got %+v", got)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer srv.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
