package recorder

import (
	"context"
	"fmt"
	"time"

	"lectern/internal/logging"
	"lectern/internal/outline"
	"lectern/internal/services"
)

// run walks the outline one unit at a time until the outline is exhausted,
// the session ends, or ctx is cancelled.
func (m *Manager) run(ctx context.Context, id string, done chan struct{}) {
	defer m.wg.Done()
	defer close(done)
	ctx = services.WithStage(services.WithSessionID(ctx, id), "capture")

	for ctx.Err() == nil {
		step, ok := m.nextUnit(ctx, id)
		if !ok {
			return
		}
		if step.finished {
			m.complete(ctx, id)
			return
		}

		switch step.strategy {
		case StrategyList:
			m.fetchUnit(ctx, step)
		default:
			m.navigateUnit(ctx, step)
		}
		step.cancel()

		if ctx.Err() != nil {
			return
		}
		if !m.advance(ctx, id, step.unit) {
			return
		}
	}
}

type unitStep struct {
	id       string
	page     string
	courseID string
	strategy Strategy
	unit     outline.Unit
	ctx      context.Context
	cancel   context.CancelFunc
	finished bool
}

// nextUnit moves the cursor past empty sections and processed lectures and
// marks the next unit pending. It returns false when the session is gone.
func (m *Manager) nextUnit(ctx context.Context, id string) (unitStep, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.currentLocked(id)
	if !ok {
		return unitStep{}, false
	}

	cursor := &sess.Cursor
	for {
		if cursor.Section >= len(sess.Outline.Sections) {
			if !sess.retried && sess.resolved() < sess.total() {
				// One more pass over units whose capture never reached storage.
				sess.retried = true
				*cursor = Cursor{}
				sess.ConsecutiveErrors = 0
				m.logger.Info("revisiting unresolved lectures",
					logging.String(logging.FieldSessionID, sess.ID),
					logging.Int("unresolved", sess.total()-sess.resolved()),
				)
				continue
			}
			cursor.Handled = sess.resolved()
			return unitStep{finished: true}, true
		}
		if cursor.Lecture >= len(sess.Outline.Sections[cursor.Section].Lectures) {
			cursor.Section++
			cursor.Lecture = 0
			sess.ConsecutiveErrors = 0
			continue
		}
		unit, _ := sess.Outline.Unit(cursor.Section, cursor.Lecture)
		key := unit.Key()
		if sess.resolvedKey(key) {
			cursor.Lecture++
			continue
		}
		if entry, ok := sess.unsaved[key]; ok {
			// The lines are already in memory; only the write is retried.
			m.retryUnsavedLocked(ctx, sess, key, entry)
			cursor.Lecture++
			continue
		}
		cursor.Handled = sess.resolved()

		unitCtx, cancel := context.WithCancel(services.WithLecture(ctx, unit.Key()))
		pending := unit
		sess.pending = &pending
		sess.skip = cancel
		m.drainWake()
		return unitStep{
			id:       id,
			page:     sess.Page,
			courseID: sess.CourseID,
			strategy: sess.Strategy,
			unit:     unit,
			ctx:      unitCtx,
			cancel:   cancel,
		}, true
	}
}

// navigateUnit asks the page to open the lecture and waits for the capture
// report, the watchdog, or a skip.
func (m *Manager) navigateUnit(ctx context.Context, step unitStep) {
	navCtx, cancel := m.agentContext(step.ctx)
	err := m.agent.Navigate(navCtx, step.page, step.unit)
	cancel()
	if err != nil {
		if step.ctx.Err() != nil {
			return
		}
		m.fail(ctx, step, FailureNavigation, fmt.Sprintf("navigation failed: %v", err))
		return
	}

	timer := time.NewTimer(m.watchdog)
	defer timer.Stop()
	select {
	case <-m.wake:
	case <-step.ctx.Done():
	case <-timer.C:
		m.fail(ctx, step, FailureLiveness, fmt.Sprintf("no transcript reported within %s", m.watchdog))
	}
}

// fetchUnit pulls the lecture's captions from the platform in place of
// navigation, then paces before the next item.
func (m *Manager) fetchUnit(ctx context.Context, step unitStep) {
	lines, err := m.source.Transcript(step.ctx, step.courseID, step.unit.Lecture.ID)
	switch {
	case err == nil:
		m.deliver(ctx, step, lines)
	case step.ctx.Err() != nil:
		return
	default:
		m.fail(ctx, step, FailureCapture, fmt.Sprintf("caption fetch failed: %v", err))
	}

	// Pace every request, failed ones included.
	if m.fetchDelay <= 0 {
		return
	}
	timer := time.NewTimer(m.fetchDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-step.ctx.Done():
	}
}

// deliver applies a fetched transcript as the pending unit's capture.
func (m *Manager) deliver(ctx context.Context, step unitStep, lines []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.currentLocked(step.id)
	if !ok {
		return
	}
	key := step.unit.Key()
	if m.storeLocked(ctx, sess, step.unit.Section, step.unit.Lecture.Title, lines) {
		sess.Processed[key] = true
	}
	if sess.pending != nil && sess.pending.Key() == key {
		sess.pending = nil
		sess.ConsecutiveErrors = 0
	}
	logging.WithContext(step.ctx, m.logger).Info("transcript fetched", logging.Int("lines", len(lines)))
}

// fail charges a unit failure unless a report already resolved the unit.
func (m *Manager) fail(ctx context.Context, step unitStep, kind FailureKind, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.currentLocked(step.id)
	if !ok || sess.pending == nil || sess.pending.Key() != step.unit.Key() {
		return
	}
	m.absorbLocked(ctx, sess, kind, detail)
}

// advance moves the cursor past unit, checkpoints, and updates the page panel.
func (m *Manager) advance(ctx context.Context, id string, unit outline.Unit) bool {
	m.mu.Lock()
	sess, ok := m.currentLocked(id)
	if !ok {
		m.mu.Unlock()
		return false
	}
	sess.pending = nil
	sess.skip = nil
	sess.Cursor.Lecture++
	sess.Cursor.Handled = sess.resolved()
	m.saveCheckpointLocked(ctx)
	page, handled, total := sess.Page, sess.Cursor.Handled, sess.total()
	m.mu.Unlock()

	agentCtx, cancel := m.agentContext(ctx)
	defer cancel()
	if err := m.agent.Progress(agentCtx, page, unit.Section, unit.Lecture.Title, handled, total); err != nil {
		m.logger.Debug("progress update not delivered", logging.Error(err))
	}
	return true
}

func (m *Manager) complete(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.currentLocked(id); !ok {
		return
	}
	m.finishLocked(ctx, StateComplete, "")
}
