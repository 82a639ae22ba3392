package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lectern/internal/config"
	"lectern/internal/kvstore"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/transcripts"
)

const (
	checkpointKey     = "session"
	closeFlushTimeout = 5 * time.Second
)

// Manager owns the single recording session and drives the processing loop.
type Manager struct {
	store    kvstore.Store
	repo     *transcripts.Repository
	agent    PageAgent
	source   ContentSource
	notifier notifications.Service
	logger   *slog.Logger

	maxErrors     int
	watchdog      time.Duration
	fetchDelay    time.Duration
	callTimeout   time.Duration
	stallInterval time.Duration
	stallChecks   int

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	mu          sync.Mutex
	session     *Session
	state       State
	outcome     string
	courseTitle string
	lastPage    string
	finishedAt  time.Time
	collection  transcripts.Collection
	cancelLoop  context.CancelFunc
	wake        chan struct{}
	loopDone    chan struct{}
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithContentSource enables the list strategy for pages that expose a course id.
func WithContentSource(source ContentSource) Option {
	return func(m *Manager) {
		m.source = source
	}
}

// WithNotifier overrides the notifier built from configuration.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// NewManager constructs a recorder manager.
func NewManager(cfg *config.Config, store kvstore.Store, agent PageAgent, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	m := &Manager{
		store:         store,
		repo:          transcripts.NewRepository(store, cfg.Storage.TranscriptKey),
		agent:         agent,
		notifier:      notifications.NewService(cfg),
		logger:        logging.NewComponentLogger(logger, "recorder"),
		maxErrors:     cfg.Recording.MaxErrors,
		watchdog:      cfg.Watchdog(),
		fetchDelay:    cfg.FetchDelay(),
		callTimeout:   cfg.AgentCallTimeout(),
		stallInterval: cfg.StallInterval(),
		stallChecks:   cfg.Recording.StallChecks,
		rootCtx:       rootCtx,
		rootCancel:    rootCancel,
		state:         StateIdle,
		collection:    transcripts.Collection{},
		wake:          make(chan struct{}, 1),
	}
	if m.maxErrors <= 0 {
		m.maxErrors = 5
	}
	if m.callTimeout <= 0 {
		m.callTimeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns a snapshot of the current or last session.
func (m *Manager) Status(context.Context) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := Status{
		State:       m.state,
		Outcome:     m.outcome,
		Page:        m.lastPage,
		CourseTitle: m.courseTitle,
		MaxErrors:   m.maxErrors,
		FinishedAt:  m.finishedAt,
	}
	sess := m.session
	if sess == nil {
		return status
	}
	status.Active = true
	status.SessionID = sess.ID
	status.Page = sess.Page
	status.Strategy = sess.Strategy
	status.Cursor = sess.Cursor
	status.Handled = sess.Cursor.Handled
	status.Total = sess.total()
	status.ConsecutiveErrors = sess.ConsecutiveErrors
	status.MaxErrors = sess.MaxErrors
	status.LastError = sess.LastError
	status.StartedAt = sess.StartedAt
	if sess.pending != nil {
		status.Section = sess.pending.Section
		status.Lecture = sess.pending.Lecture.Title
	} else if unit, ok := sess.Outline.Unit(sess.Cursor.Section, sess.Cursor.Lecture); ok {
		status.Section = unit.Section
		status.Lecture = unit.Lecture.Title
	}
	return status
}

// Clear wipes the transcript collection in storage and memory.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.repo.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	m.collection = transcripts.Collection{}
	m.logger.Info("transcripts cleared")
	return nil
}

// Transcripts returns the collection for export along with the course title.
// During a run the in-memory copy is authoritative; otherwise storage is read.
func (m *Manager) Transcripts(ctx context.Context) (transcripts.Collection, string, error) {
	m.mu.Lock()
	active := m.session != nil
	title := m.courseTitle
	if active {
		clone := m.collection.Clone()
		m.mu.Unlock()
		return clone, title, nil
	}
	m.mu.Unlock()

	collection, err := m.repo.Load(ctx)
	if err != nil {
		return nil, title, err
	}
	return collection, title, nil
}

// Wait blocks until the current processing loop exits or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.loopDone
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops background work without ending the session, so the persisted
// checkpoint survives for Resume on the next start. Captures still held only
// in memory get one more write attempt.
func (m *Manager) Close() {
	m.rootCancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || len(m.session.unsaved) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()
	if stored := m.flushUnsavedLocked(ctx, m.session); stored > 0 {
		m.saveCheckpointLocked(ctx)
	}
}

// flushUnsavedLocked retries the write of every in-memory-only capture and
// marks the ones that land as processed. It returns how many were stored.
func (m *Manager) flushUnsavedLocked(ctx context.Context, sess *Session) int {
	stored := 0
	for key, entry := range sess.unsaved {
		if m.retryUnsavedLocked(ctx, sess, key, entry) {
			stored++
		}
	}
	return stored
}

// retryUnsavedLocked writes one in-memory capture again.
func (m *Manager) retryUnsavedLocked(ctx context.Context, sess *Session, key string, entry unsavedCapture) bool {
	lines, ok := m.collection.Lines(entry.section, entry.lecture)
	if !ok {
		delete(sess.unsaved, key)
		return false
	}
	if _, err := m.repo.Merge(ctx, entry.section, entry.lecture, lines); err != nil {
		m.logger.Debug("transcript write retry failed",
			logging.String(logging.FieldSessionID, sess.ID),
			logging.String(logging.FieldLecture, key),
			logging.Error(err),
		)
		return false
	}
	delete(sess.unsaved, key)
	sess.Processed[key] = true
	m.logger.Info("transcript stored on retry",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldLecture, key),
	)
	return true
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) drainWake() {
	select {
	case <-m.wake:
	default:
	}
}

// currentLocked reports whether id still names the live session. Caller holds mu.
func (m *Manager) currentLocked(id string) (*Session, bool) {
	if m.session == nil || m.session.ID != id {
		return nil, false
	}
	return m.session, true
}

func (m *Manager) saveCheckpointLocked(ctx context.Context) {
	if m.session == nil {
		return
	}
	if err := kvstore.PutJSON(ctx, m.store, checkpointKey, m.session.checkpoint()); err != nil {
		logging.WarnWithContext(m.logger, "checkpoint write failed", "checkpoint_write_failed",
			logging.String(logging.FieldSessionID, m.session.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "recording cannot resume from this point after a restart"),
		)
	}
}

func (m *Manager) removeCheckpoint(ctx context.Context) {
	if err := m.store.Delete(ctx, checkpointKey); err != nil {
		m.logger.Warn("checkpoint removal failed", logging.Error(err))
	}
}

func (m *Manager) agentContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, m.callTimeout)
}
