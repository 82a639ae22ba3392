package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"lectern/internal/kvstore"
	"lectern/internal/logging"
	"lectern/internal/outline"
	"lectern/internal/transcripts"
)

// Start begins recording the course shown on page. Discovery runs before
// Start returns; the processing loop continues in the background.
func (m *Manager) Start(ctx context.Context, page string) error {
	page = strings.TrimSpace(page)
	if page == "" {
		return ErrInvalidTarget
	}

	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return ErrAlreadyRecording
	}
	collection, err := m.repo.Load(ctx)
	if err != nil {
		logging.WarnWithContext(m.logger, "could not load stored transcripts", "transcript_load_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "earlier transcripts are not carried into this run"),
		)
		collection = transcripts.Collection{}
	}
	sess := newSession(uuid.NewString(), page, m.maxErrors)
	sess.StartedAt = time.Now()
	m.session = sess
	m.state = StateDiscovering
	m.outcome = ""
	m.finishedAt = time.Time{}
	m.collection = collection
	m.mu.Unlock()

	logger := m.logger.With(logging.String(logging.FieldSessionID, sess.ID))
	logger.Info("recording requested", logging.String("page", page))

	course, strategy, courseID, err := m.discover(ctx, page)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.currentLocked(sess.ID); !ok {
		return fmt.Errorf("recording stopped during discovery: %w", ErrNotRecording)
	}
	if err != nil {
		m.finishLocked(ctx, StateError, discoveryDetail(err))
		logging.ErrorWithContext(logger, "structure discovery failed", "discovery_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "open the course player page and make sure the extension is connected"),
		)
		return fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
	}

	sess.Outline = course
	sess.Strategy = strategy
	sess.CourseID = courseID
	m.courseTitle = course.Title
	m.lastPage = page
	m.state = StateRecording
	m.startLoopLocked(sess)

	total := course.LectureCount()
	logger.Info("recording started",
		logging.String("strategy", string(strategy)),
		logging.Int("sections", len(course.Sections)),
		logging.Int("lectures", total),
	)
	title := course.Title
	m.background(func(ctx context.Context) {
		if err := m.notifier.NotifyRecordingStarted(ctx, title, total); err != nil {
			logger.Debug("start notification failed", logging.Error(err))
		}
	})
	return nil
}

func discoveryDetail(err error) string {
	switch {
	case errors.Is(err, outline.ErrNoCourseContext):
		return "no course context on page"
	case errors.Is(err, outline.ErrEmptyOutline):
		return "course has no lectures"
	case errors.Is(err, outline.ErrParseFailure):
		return "course structure could not be parsed"
	default:
		return err.Error()
	}
}

// discover resolves the outline and strategy for page. A course id selects the
// list strategy when a content source is configured; a scraped outline is the
// fallback.
func (m *Manager) discover(ctx context.Context, page string) (*outline.Outline, Strategy, string, error) {
	agentCtx, cancel := m.agentContext(ctx)
	discovery, err := m.agent.Structure(agentCtx, page)
	cancel()
	if err != nil {
		return nil, "", "", err
	}

	if discovery.CourseID != "" && m.source != nil {
		course, err := m.source.Curriculum(ctx, discovery.CourseID)
		if err == nil {
			if course.Title == "" {
				course.Title = discovery.Title
			}
			return course, StrategyList, discovery.CourseID, nil
		}
		if discovery.Outline == nil {
			return nil, "", "", err
		}
		logging.WarnWithContext(m.logger, "curriculum fetch failed; using page outline", "curriculum_fetch_failed",
			logging.String("course_id", discovery.CourseID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "lectures are captured by navigating the page"),
		)
	}

	if discovery.Outline == nil {
		if discovery.CourseID != "" {
			return nil, "", "", fmt.Errorf("%w: page exposes course %s but platform access is disabled",
				outline.ErrNoCourseContext, discovery.CourseID)
		}
		return nil, "", "", outline.ErrNoCourseContext
	}
	course := discovery.Outline.Clone()
	if err := course.Validate(); err != nil {
		return nil, "", "", err
	}
	if course.Title == "" {
		course.Title = discovery.Title
	}
	return course, StrategySequential, discovery.CourseID, nil
}

// Resume restarts a session persisted by a previous daemon run. It reports
// whether a session was resumed.
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return false, nil
	}

	var cp checkpoint
	found, err := kvstore.GetJSON(ctx, m.store, checkpointKey, &cp)
	if err != nil {
		return false, fmt.Errorf("load checkpoint: %w", err)
	}
	if !found {
		return false, nil
	}
	if cp.ID == "" || strings.TrimSpace(cp.Page) == "" || cp.Outline.Validate() != nil {
		m.removeCheckpoint(ctx)
		return false, errors.New("discarded unusable checkpoint")
	}
	if cp.Strategy == StrategyList && m.source == nil {
		cp.Strategy = StrategySequential
	}

	collection, err := m.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	sess := newSession(cp.ID, cp.Page, m.maxErrors)
	sess.Strategy = cp.Strategy
	sess.CourseID = cp.CourseID
	sess.Outline = cp.Outline
	sess.StartedAt = cp.StartedAt
	for _, key := range cp.Processed {
		sess.Processed[key] = true
	}
	for _, key := range cp.Failed {
		sess.Failed[key] = true
	}
	// Remaining work comes from the processed and failed sets, not the saved cursor.
	sess.Cursor = Cursor{Handled: sess.resolved()}
	m.session = sess
	m.collection = collection
	m.courseTitle = cp.Outline.Title
	m.lastPage = cp.Page
	m.state = StateRecording
	m.outcome = ""
	m.startLoopLocked(sess)

	m.logger.Info("recording resumed",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.Int("handled", sess.Cursor.Handled),
		logging.Int("total", sess.total()),
	)
	return true, nil
}

func (m *Manager) startLoopLocked(sess *Session) {
	loopCtx, cancel := context.WithCancel(m.rootCtx)
	done := make(chan struct{})
	m.cancelLoop = cancel
	m.loopDone = done
	m.drainWake()
	m.saveCheckpointLocked(loopCtx)

	m.wg.Add(1)
	go m.run(loopCtx, sess.ID, done)
	if m.stallInterval > 0 && m.stallChecks > 0 {
		m.wg.Add(1)
		go m.monitor(loopCtx, sess.ID)
	}
}

// Stop ends the session. Stopping when idle is a no-op.
func (m *Manager) Stop(ctx context.Context, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "user request"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	m.finishLocked(ctx, StateStopped, reason)
	return nil
}

// ForceAdvance counts the pending unit as failed and moves the loop past it.
func (m *Manager) ForceAdvance(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.activeLocked()
	if sess == nil {
		return ErrNotRecording
	}
	return m.forceAdvanceLocked(ctx, sess, "forced advance")
}

func (m *Manager) forceAdvanceLocked(ctx context.Context, sess *Session, detail string) error {
	skip := sess.skip
	if m.absorbLocked(ctx, sess, FailureReported, detail) {
		return ErrBudgetExhausted
	}
	if skip != nil {
		skip()
	}
	return nil
}

// finishLocked ends the session in state and persists what was captured.
// Page and ntfy notices are sent in the background.
func (m *Manager) finishLocked(ctx context.Context, state State, detail string) {
	sess := m.session
	if sess == nil {
		return
	}
	m.session = nil
	m.state = state
	m.finishedAt = time.Now()
	switch state {
	case StateComplete:
		m.outcome = string(StateComplete)
	default:
		m.outcome = fmt.Sprintf("%s (%s)", state, detail)
	}
	if m.cancelLoop != nil {
		m.cancelLoop()
		m.cancelLoop = nil
	}
	if sess.skip != nil {
		sess.skip()
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := m.repo.Save(persistCtx, m.collection); err != nil {
		logging.ErrorWithContext(m.logger, "final transcript write failed", "storage_write_failed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.Error(fmt.Errorf("%w: %w", ErrStorageWrite, err)),
			logging.String(logging.FieldErrorHint, "export now; the in-memory copy is lost when the daemon exits"),
		)
	}
	m.removeCheckpoint(persistCtx)

	captured, failed := tally(sess.Outline, m.collection)
	logger := m.logger.With(logging.String(logging.FieldSessionID, sess.ID))
	logger.Info("recording finished",
		logging.String("outcome", m.outcome),
		logging.Int("handled", sess.Cursor.Handled),
		logging.Int("total", sess.total()),
		logging.Int("captured", captured),
		logging.Int("failed", failed),
	)

	title := m.courseTitle
	duration := m.finishedAt.Sub(sess.StartedAt)
	handled, total := sess.Cursor.Handled, sess.total()
	m.background(func(ctx context.Context) {
		var err error
		switch state {
		case StateComplete:
			if err := m.agent.Complete(ctx, sess.Page); err != nil {
				logger.Debug("page completion notice failed", logging.Error(err))
			}
			err = m.notifier.NotifyRecordingCompleted(ctx, title, captured, failed, duration)
		case StateStopped:
			m.stopPage(ctx, logger, sess.Page)
			err = m.notifier.NotifyRecordingStopped(ctx, title, detail, handled, total)
		default:
			m.stopPage(ctx, logger, sess.Page)
			if sess.Outline == nil {
				err = m.notifier.NotifyError(ctx, errors.New(detail), "discovery")
			} else {
				err = m.notifier.NotifyRecordingStopped(ctx, title, detail, handled, total)
			}
		}
		if err != nil {
			logger.Debug("notification failed", logging.Error(err))
		}
	})
}

func (m *Manager) stopPage(ctx context.Context, logger *slog.Logger, page string) {
	agentCtx, cancel := m.agentContext(ctx)
	defer cancel()
	if err := m.agent.Stop(agentCtx, page); err != nil {
		logger.Debug("page stop notice failed", logging.Error(err))
	}
}

func (m *Manager) background(fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn(m.rootCtx)
	}()
}

// tally counts outline units with real text and units holding a sentinel or nothing.
func tally(course *outline.Outline, collection transcripts.Collection) (captured, failed int) {
	for _, unit := range course.Units() {
		lines, ok := collection.Lines(unit.Section, unit.Lecture.Title)
		if ok && !transcripts.IsSentinel(lines) {
			captured++
			continue
		}
		if ok {
			failed++
		}
	}
	return captured, failed
}
