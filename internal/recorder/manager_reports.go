package recorder

import (
	"context"
	"fmt"

	"lectern/internal/logging"
	"lectern/internal/outline"
	"lectern/internal/transcripts"
)

// ReportCapture records the transcript lines the page captured for a lecture.
// Reports for an already processed lecture are acknowledged without effect.
func (m *Manager) ReportCapture(ctx context.Context, section, lecture string, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.activeLocked()
	if sess == nil {
		return ErrNotRecording
	}

	reported := outline.Key(section, lecture)
	if sess.Processed[reported] {
		m.logger.Debug("duplicate capture ignored",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.String(logging.FieldLecture, reported),
		)
		return nil
	}

	unit, known := sess.Outline.Find(section, lecture)
	pending := sess.pending
	switch {
	case known && (pending == nil || unit.Key() != pending.Key()):
		// Captured out of turn; keep it so the loop skips the lecture later.
		if m.storeLocked(ctx, sess, unit.Section, unit.Lecture.Title, lines) {
			sess.Processed[reported] = true
		}
		return nil
	case !known && pending == nil:
		m.logger.Info("capture for unknown lecture stored without advancing",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.String(logging.FieldLecture, reported),
		)
		m.storeLocked(ctx, sess, section, lecture, lines)
		return nil
	case !known:
		// Page titles can differ from outline titles; attribute to the pending unit.
		unit = *pending
	}

	if m.storeLocked(ctx, sess, unit.Section, unit.Lecture.Title, lines) {
		sess.Processed[unit.Key()] = true
		sess.Processed[reported] = true
	}
	sess.ConsecutiveErrors = 0
	sess.pending = nil
	m.logger.Info("transcript captured",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldLecture, unit.Key()),
		logging.Int("lines", len(lines)),
	)
	m.signal()
	return nil
}

// ReportError counts a failed capture against the error budget. Reaching the
// budget ends the session and returns ErrBudgetExhausted.
func (m *Manager) ReportError(ctx context.Context, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.activeLocked()
	if sess == nil {
		return ErrNotRecording
	}
	if m.absorbLocked(ctx, sess, FailureReported, detail) {
		return ErrBudgetExhausted
	}
	return nil
}

// activeLocked returns the session once discovery has produced an outline.
func (m *Manager) activeLocked() *Session {
	if m.session == nil || m.session.Outline == nil {
		return nil
	}
	return m.session
}

// absorbLocked charges one failure to the budget and resolves the pending
// unit with an error sentinel unless it already has an entry. It reports
// whether the budget is exhausted, in which case the session has ended.
func (m *Manager) absorbLocked(ctx context.Context, sess *Session, kind FailureKind, detail string) bool {
	sess.ConsecutiveErrors++
	sess.LastError = detail

	attrs := []logging.Attr{
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String("failure", string(kind)),
		logging.String("detail", detail),
		logging.Int("consecutive_errors", sess.ConsecutiveErrors),
		logging.Int("max_errors", sess.MaxErrors),
	}
	if pending := sess.pending; pending != nil {
		attrs = append(attrs, logging.String(logging.FieldLecture, pending.Key()))
		sess.Failed[pending.Key()] = true
		if !m.collection.Has(pending.Section, pending.Lecture.Title) {
			m.storeLocked(ctx, sess, pending.Section, pending.Lecture.Title, []string{transcripts.ErrorLine(detail)})
		}
		sess.pending = nil
	}
	logging.WarnWithContext(m.logger, "lecture capture failed", "unit_failed", attrs...)

	if sess.ConsecutiveErrors >= sess.MaxErrors {
		logging.ErrorWithContext(m.logger, "error budget exhausted; stopping", "budget_exhausted",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.Int("consecutive_errors", sess.ConsecutiveErrors),
			logging.String(logging.FieldErrorHint, "check that the course page is still open and playing"),
		)
		m.finishLocked(ctx, StateError, budgetExhaustedReason)
		return true
	}
	m.signal()
	return false
}

// storeLocked merges one entry into storage and the in-memory copy. A failed
// write keeps the in-memory entry and reports false.
func (m *Manager) storeLocked(ctx context.Context, sess *Session, section, lecture string, lines []string) bool {
	key := outline.Key(section, lecture)
	m.collection.Set(section, lecture, lines)
	if _, err := m.repo.Merge(ctx, section, lecture, lines); err != nil {
		sess.unsaved[key] = unsavedCapture{section: section, lecture: lecture}
		logging.ErrorWithContext(m.logger, "transcript write failed", "storage_write_failed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.String(logging.FieldLecture, key),
			logging.Error(fmt.Errorf("%w: %w", ErrStorageWrite, err)),
			logging.String(logging.FieldErrorHint, "the write is retried on the next pass and at shutdown; check storage health"),
		)
		return false
	}
	delete(sess.unsaved, key)
	return true
}
