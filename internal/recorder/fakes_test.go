package recorder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lectern/internal/outline"
	"lectern/internal/recorder"
)

// fakeAgent stands in for the browser page. onNavigate runs synchronously
// inside Navigate, so reports it makes land before the navigation returns.
type fakeAgent struct {
	mu sync.Mutex

	discovery    outline.Discovery
	discoveryErr error
	onNavigate   func(ctx context.Context, unit outline.Unit) error
	pingErr      error

	navigations []string
	progress    []int
	stops       int
	completes   int
	pings       int
}

func (a *fakeAgent) Structure(context.Context, string) (outline.Discovery, error) {
	return a.discovery, a.discoveryErr
}

func (a *fakeAgent) Navigate(ctx context.Context, _ string, unit outline.Unit) error {
	a.mu.Lock()
	a.navigations = append(a.navigations, unit.Key())
	fn := a.onNavigate
	a.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, unit)
}

func (a *fakeAgent) Ping(context.Context, string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pings++
	return a.pingErr
}

func (a *fakeAgent) Stop(context.Context, string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	return nil
}

func (a *fakeAgent) Progress(_ context.Context, _, _, _ string, handled, _ int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress = append(a.progress, handled)
	return nil
}

func (a *fakeAgent) Complete(context.Context, string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completes++
	return nil
}

func (a *fakeAgent) visited() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.navigations...)
}

func (a *fakeAgent) counts() (stops, completes, pings int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stops, a.completes, a.pings
}

// fakeSource serves a fixed curriculum and per-lecture captions.
type fakeSource struct {
	course   *outline.Outline
	lines    map[string][]string
	failures map[string]error

	mu      sync.Mutex
	fetched []string
}

func (s *fakeSource) Curriculum(context.Context, string) (*outline.Outline, error) {
	if s.course == nil {
		return nil, errors.New("curriculum unavailable")
	}
	return s.course.Clone(), nil
}

func (s *fakeSource) Transcript(_ context.Context, _, lectureID string) ([]string, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, lectureID)
	s.mu.Unlock()
	if err := s.failures[lectureID]; err != nil {
		return nil, err
	}
	return s.lines[lectureID], nil
}

func course(sections ...outline.Section) *outline.Outline {
	return &outline.Outline{Title: "Test Course", Sections: sections}
}

func section(title string, lectures ...string) outline.Section {
	s := outline.Section{Title: title}
	for _, l := range lectures {
		s.Lectures = append(s.Lectures, outline.Lecture{Title: l, ID: title + "/" + l})
	}
	return s
}

// capturing returns a navigate hook that reports "<lecture> text" for every unit.
func capturing(m *recorder.Manager) func(context.Context, outline.Unit) error {
	return func(ctx context.Context, unit outline.Unit) error {
		return m.ReportCapture(ctx, unit.Section, unit.Lecture.Title, []string{unit.Lecture.Title + " text"})
	}
}

func waitDone(t *testing.T, m *recorder.Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("recording did not finish: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
