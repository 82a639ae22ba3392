package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"lectern/internal/ipc"
	"lectern/internal/recorder"
)

type stubStatus struct {
	resp *ipc.StatusResponse
	err  error
}

func (s stubStatus) Status() (*ipc.StatusResponse, error) {
	return s.resp, s.err
}

func activeStatus(handled int) *ipc.StatusResponse {
	return &ipc.StatusResponse{
		Running: true,
		Recording: ipc.RecordingStatus{
			Active:      true,
			State:       recorder.StateRecording,
			CourseTitle: "Go Basics",
			Section:     "1. Intro",
			Lecture:     "2. Setup",
			Handled:     handled,
			Total:       4,
			MaxErrors:   5,
		},
		Agent: ipc.AgentHealth{Connected: true},
	}
}

func TestWatchModelRendersProgress(t *testing.T) {
	m := newWatchModel(stubStatus{}, 0)
	next, cmd := m.Update(statusMsg{status: activeStatus(2)})
	if cmd == nil {
		t.Fatal("expected a refresh to be scheduled")
	}
	view := next.View()
	for _, want := range []string{"Go Basics", "2/4", "1. Intro / 2. Setup", "connected", "q to quit"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestWatchModelQuitsWhenRecordingEnds(t *testing.T) {
	m := newWatchModel(stubStatus{}, 0)
	next, _ := m.Update(statusMsg{status: activeStatus(3)})

	finished := activeStatus(4)
	finished.Recording.Active = false
	finished.Recording.State = recorder.StateComplete
	finished.Recording.Outcome = "complete"
	final, cmd := next.Update(statusMsg{status: finished})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	view := final.View()
	if !strings.Contains(view, "complete") {
		t.Fatalf("expected outcome in view:\n%s", view)
	}
	if strings.Contains(view, "q to quit") {
		t.Fatalf("did not expect help after finishing:\n%s", view)
	}
}

func TestWatchModelKeepsPollingWhileIdle(t *testing.T) {
	idle := &ipc.StatusResponse{Running: true, Recording: ipc.RecordingStatus{State: recorder.StateIdle}}
	m := newWatchModel(stubStatus{}, 0)
	next, cmd := m.Update(statusMsg{status: idle})
	if cmd == nil {
		t.Fatal("expected refresh while idle")
	}
	if next.(watchModel).done {
		t.Fatal("model should not finish before a recording was observed")
	}
}

func TestWatchModelStatusError(t *testing.T) {
	m := newWatchModel(stubStatus{err: errors.New("boom")}, 0)
	msg := m.fetch()
	next, _ := m.Update(msg)
	wm := next.(watchModel)
	if wm.err == nil || !strings.Contains(wm.err.Error(), "boom") {
		t.Fatalf("expected fetch error, got %v", wm.err)
	}
}

func TestWatchModelQuitKey(t *testing.T) {
	m := newWatchModel(stubStatus{}, 0)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
