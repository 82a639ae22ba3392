package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lectern/internal/agent"
	"lectern/internal/config"
	"lectern/internal/kvstore"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/preflight"
	"lectern/internal/recorder"
	"lectern/internal/render"
)

// Daemon coordinates the bridge, the recorder and the agent HTTP server and
// enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    kvstore.Store
	bridge   *agent.Bridge
	recorder *recorder.Manager
	hub      *logging.StreamHub

	lockPath string
	lock     *flock.Flock
	server   *agentServer

	mu      sync.Mutex
	running atomic.Bool
	checks  []preflight.Result
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	AgentAddress string
	DatabasePath string
	LockFilePath string
	Recorder     recorder.Status
	Agent        agent.Health
}

// Health combines bridge connectivity, storage reachability and the latest
// preflight results.
type Health struct {
	Agent      agent.Health
	StoreOK    bool
	StoreError string
	Checks     []preflight.Result
}

// Export is a rendered transcript document.
type Export struct {
	Document string
	Title    string
	Sections int
	Lectures int
	Failed   []string
}

// New constructs a daemon with initialized dependencies. The bridge is wired
// to deliver page captures to the recorder.
func New(cfg *config.Config, store kvstore.Store, logger *slog.Logger, bridge *agent.Bridge, mgr *recorder.Manager, hub *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || store == nil || bridge == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, bridge, and recorder")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	bridge.SetSink(mgr)

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		bridge:   bridge,
		recorder: mgr,
		hub:      hub,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.server = newAgentServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, opens the agent endpoint and resumes any
// session interrupted by a previous run.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start agent server: %w", err)
	}

	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	d.running.Store(true)

	d.runPreflight(runCtx)

	resumed, err := d.recorder.Resume(runCtx)
	switch {
	case err != nil:
		logging.WarnWithContext(d.logger, "could not resume interrupted recording", "resume_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the previous session is not continued"),
			logging.String(logging.FieldErrorHint, "start the recording again from the course page"),
		)
	case resumed:
		d.logger.Info("interrupted recording resumed")
	}

	d.logger.Info("lectern daemon started",
		logging.String("lock", d.lockPath),
		logging.String("agent_address", d.server.address()),
	)
	return nil
}

func (d *Daemon) runPreflight(ctx context.Context) []preflight.Result {
	results := preflight.RunAll(ctx, d.cfg, d.store)
	for _, r := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "recording may fail until this is fixed"),
		)
	}
	d.mu.Lock()
	d.checks = results
	d.mu.Unlock()
	return results
}

// Stop closes the agent endpoint and releases the daemon lock. A running
// session keeps its checkpoint.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lectern daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.recorder.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StartRecording begins recording the course on page.
func (d *Daemon) StartRecording(ctx context.Context, page string) error {
	return d.recorder.Start(ctx, page)
}

// StopRecording ends the active session. Stopping when idle is a no-op.
func (d *Daemon) StopRecording(ctx context.Context, reason string) error {
	return d.recorder.Stop(ctx, reason)
}

// ForceAdvance skips the pending lecture.
func (d *Daemon) ForceAdvance(ctx context.Context) error {
	return d.recorder.ForceAdvance(ctx)
}

// ClearTranscripts wipes stored transcripts.
func (d *Daemon) ClearTranscripts(ctx context.Context) error {
	return d.recorder.Clear(ctx)
}

// Export renders the collected transcripts. An empty title falls back to the
// discovered course title, then the course slug from the page address.
func (d *Daemon) Export(ctx context.Context, format, title string) (Export, error) {
	collection, courseTitle, err := d.recorder.Transcripts(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("load transcripts: %w", err)
	}
	opts := render.Options{
		Title:       title,
		CourseTitle: courseTitle,
		CourseSlug:  courseSlug(d.recorder.Status(ctx).Page),
	}
	doc, err := render.Document(collection, format, opts)
	if err != nil {
		return Export{}, err
	}
	sections, lectures := collection.Counts()
	return Export{
		Document: doc,
		Title:    render.Title(opts),
		Sections: sections,
		Lectures: lectures,
		Failed:   collection.Failed(),
	}, nil
}

// courseSlug extracts the segment following "/course/" in a page address.
func courseSlug(page string) string {
	parsed, err := url.Parse(strings.TrimSpace(page))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "course" {
			return parts[i+1]
		}
	}
	return ""
}

// Health reports bridge connectivity and storage reachability and refreshes
// the preflight results.
func (d *Daemon) Health(ctx context.Context) Health {
	h := Health{Agent: d.bridge.Health(), StoreOK: true}
	if err := d.store.Ping(ctx); err != nil {
		h.StoreOK = false
		h.StoreError = err.Error()
	}
	h.Checks = d.runPreflight(ctx)
	return h
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogStream returns the in-memory log hub, if configured.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		AgentAddress: d.server.address(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Recorder:     d.recorder.Status(ctx),
		Agent:        d.bridge.Health(),
	}
}
