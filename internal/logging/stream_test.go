package logging_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lectern/internal/logging"
)

func streamOptions(t *testing.T, hub *logging.StreamHub, level string) logging.Options {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.log")
	return logging.Options{Format: "console", Level: level, OutputPaths: []string{path}, ErrorOutputPaths: []string{path}, Stream: hub}
}

func TestStreamHubCapturesComponentAndSession(t *testing.T) {
	hub := logging.NewStreamHub(10)
	logger, err := logging.New(streamOptions(t, hub, "info"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "agent").
		With(logging.String(logging.FieldSessionID, "abc")).
		Info("navigate accepted", logging.String(logging.FieldLecture, "S::L"), logging.String("page", "tab-1"))

	events, next := hub.Tail(10)
	if len(events) != 1 || next != 1 {
		t.Fatalf("expected one event with seq 1, got %d events next=%d", len(events), next)
	}
	evt := events[0]
	if evt.Component != "agent" || evt.SessionID != "abc" || evt.Lecture != "S::L" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Fields["page"] != "tab-1" {
		t.Fatalf("expected page field, got %v", evt.Fields)
	}
}

func TestStreamHubRespectsLevel(t *testing.T) {
	hub := logging.NewStreamHub(10)
	logger, err := logging.New(streamOptions(t, hub, "warn"))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	events, _ := hub.Tail(10)
	if len(events) != 1 || events[0].Message != "shown" {
		t.Fatalf("expected only warn event, got %+v", events)
	}
}

func TestStreamHubEvictsOldest(t *testing.T) {
	hub := logging.NewStreamHub(2)
	for _, msg := range []string{"a", "b", "c"} {
		hub.Publish(logging.LogEvent{Message: msg})
	}
	events, next := hub.Tail(0)
	if len(events) != 2 || events[0].Message != "b" || events[1].Message != "c" {
		t.Fatalf("unexpected buffer: %+v", events)
	}
	if next != 3 {
		t.Fatalf("expected next sequence 3, got %d", next)
	}
}

func TestStreamHubFetchWaitsForEvents(t *testing.T) {
	hub := logging.NewStreamHub(4)
	hub.Publish(logging.LogEvent{Message: "first"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan []logging.LogEvent, 1)
	go func() {
		events, _, _ := hub.Fetch(ctx, 1, 10, true)
		done <- events
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(logging.LogEvent{Message: "second"})

	select {
	case events := <-done:
		if len(events) != 1 || events[0].Message != "second" {
			t.Fatalf("unexpected events: %+v", events)
		}
	case <-time.After(time.Second):
		t.Fatal("fetch did not wake after publish")
	}
}

func TestStreamHubFetchHonoursCancellation(t *testing.T) {
	hub := logging.NewStreamHub(4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, _, err := hub.Fetch(ctx, 0, 10, true)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(time.Second):
		t.Fatal("fetch did not return after cancel")
	}
}
