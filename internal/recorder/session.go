package recorder

import (
	"time"

	"lectern/internal/outline"
)

// Strategy selects how units are captured.
type Strategy string

const (
	// StrategySequential navigates the page to each lecture and waits for the
	// page agent to report the transcript.
	StrategySequential Strategy = "sequential"
	// StrategyList fetches each lecture's captions directly from the platform.
	StrategyList Strategy = "list"
)

// State is the lifecycle state reported by Status.
type State string

const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateRecording   State = "recording"
	StateComplete    State = "complete"
	StateStopped     State = "stopped"
	StateError       State = "error"
)

// Cursor is the traversal position. Handled counts outline units that are
// resolved: captured and stored, or closed out by a failure.
type Cursor struct {
	Section int `json:"section"`
	Lecture int `json:"lecture"`
	Handled int `json:"handled"`
}

// Session is the single recording run the manager owns.
type Session struct {
	ID                string
	Page              string
	Strategy          Strategy
	CourseID          string
	Outline           *outline.Outline
	Cursor            Cursor
	Processed         map[string]bool
	Failed            map[string]bool
	ConsecutiveErrors int
	MaxErrors         int
	LastError         string
	StartedAt         time.Time

	// pending is the unit the loop is waiting on, nil between units.
	pending *outline.Unit
	// skip cancels the current unit's context.
	skip func()
	// unsaved holds captures kept only in memory after a failed write.
	unsaved map[string]unsavedCapture
	// retried is set once the loop has made its second pass.
	retried bool
}

type unsavedCapture struct {
	section string
	lecture string
}

func newSession(id, page string, maxErrors int) *Session {
	return &Session{
		ID:        id,
		Page:      page,
		Strategy:  StrategySequential,
		Processed: make(map[string]bool),
		Failed:    make(map[string]bool),
		MaxErrors: maxErrors,
		unsaved:   make(map[string]unsavedCapture),
	}
}

func (s *Session) total() int {
	return s.Outline.LectureCount()
}

func (s *Session) resolvedKey(key string) bool {
	return s.Processed[key] || s.Failed[key]
}

// resolved counts outline units that need no further work.
func (s *Session) resolved() int {
	n := 0
	for _, unit := range s.Outline.Units() {
		if s.resolvedKey(unit.Key()) {
			n++
		}
	}
	return n
}

// checkpoint is the persisted form of a session used to resume after restart.
type checkpoint struct {
	ID        string           `json:"id"`
	Page      string           `json:"page"`
	Strategy  Strategy         `json:"strategy"`
	CourseID  string           `json:"course_id,omitempty"`
	Outline   *outline.Outline `json:"outline"`
	Cursor    Cursor           `json:"cursor"`
	Processed []string         `json:"processed"`
	Failed    []string         `json:"failed,omitempty"`
	StartedAt time.Time        `json:"started_at"`
}

func (s *Session) checkpoint() checkpoint {
	processed := make([]string, 0, len(s.Processed))
	for key := range s.Processed {
		processed = append(processed, key)
	}
	failed := make([]string, 0, len(s.Failed))
	for key := range s.Failed {
		failed = append(failed, key)
	}
	return checkpoint{
		ID:        s.ID,
		Page:      s.Page,
		Strategy:  s.Strategy,
		CourseID:  s.CourseID,
		Outline:   s.Outline,
		Cursor:    s.Cursor,
		Processed: processed,
		Failed:    failed,
		StartedAt: s.StartedAt,
	}
}

// Status is a point-in-time snapshot of the manager.
type Status struct {
	Active            bool      `json:"active"`
	State             State     `json:"state"`
	Outcome           string    `json:"outcome,omitempty"`
	SessionID         string    `json:"session_id,omitempty"`
	Page              string    `json:"page,omitempty"`
	Strategy          Strategy  `json:"strategy,omitempty"`
	CourseTitle       string    `json:"course_title,omitempty"`
	Section           string    `json:"section,omitempty"`
	Lecture           string    `json:"lecture,omitempty"`
	Cursor            Cursor    `json:"cursor"`
	Handled           int       `json:"handled"`
	Total             int       `json:"total"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	MaxErrors         int       `json:"max_errors"`
	LastError         string    `json:"last_error,omitempty"`
	StartedAt         time.Time `json:"started_at,omitempty"`
	FinishedAt        time.Time `json:"finished_at,omitempty"`
}
