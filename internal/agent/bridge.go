package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/outline"
	"lectern/internal/services"
)

const (
	maxRequestBytes  = 8 << 20
	maxQueuedPerPage = 64
	idlePollMs       = 1000
)

// Sink receives capture reports forwarded from the page.
type Sink interface {
	ReportCapture(ctx context.Context, section, lecture string, lines []string) error
	ReportError(ctx context.Context, detail string) error
}

// Health summarizes the bridge's view of connected pages.
type Health struct {
	Connected    bool      `json:"connected"`
	LastPoll     time.Time `json:"last_poll"`
	AgentVersion string    `json:"agent_version,omitempty"`
	Pages        []string  `json:"pages,omitempty"`
}

type pageState struct {
	queue    []Command
	wake     chan struct{}
	lastPoll time.Time
	version  string
}

// Bridge is the daemon side of the page-agent protocol. Commands are queued per
// page and handed out on the page's next sync; replies come back on a later sync.
type Bridge struct {
	logger      *slog.Logger
	callTimeout time.Duration
	longPoll    time.Duration
	stale       time.Duration
	token       string

	mu      sync.Mutex
	pages   map[string]*pageState
	waiters map[string]chan CommandResult
	sink    Sink
	now     func() time.Time
}

// New constructs a bridge from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &Bridge{
		logger:  logging.NewComponentLogger(logger, "agent"),
		pages:   make(map[string]*pageState),
		waiters: make(map[string]chan CommandResult),
		now:     time.Now,
	}
	if cfg != nil {
		b.callTimeout = cfg.AgentCallTimeout()
		b.longPoll = cfg.AgentLongPoll()
		b.stale = time.Duration(cfg.Agent.StaleSeconds) * time.Second
		b.token = cfg.Agent.Token
	}
	if b.callTimeout <= 0 {
		b.callTimeout = 30 * time.Second
	}
	if b.stale <= 0 {
		b.stale = 90 * time.Second
	}
	return b
}

// SetSink routes capture events to the recorder.
func (b *Bridge) SetSink(sink Sink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Handler returns the HTTP handler serving /agent/sync.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/agent/sync", RequireToken(b.token, b.HandleSync))
	return mux
}

// Health reports whether any page has synced recently.
func (b *Bridge) Health() Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	var h Health
	for id, page := range b.pages {
		h.Pages = append(h.Pages, id)
		if page.lastPoll.After(h.LastPoll) {
			h.LastPoll = page.lastPoll
			h.AgentVersion = page.version
		}
	}
	h.Connected = !h.LastPoll.IsZero() && b.now().Sub(h.LastPoll) <= b.stale
	return h
}

// HandleSync processes one sync round trip: results and events in, pending
// commands out. With nothing queued the request is held for the long-poll window.
func (b *Bridge) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var req SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	req.PageID = strings.TrimSpace(req.PageID)
	if req.PageID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page_id is required"})
		return
	}

	wake := b.touch(req.PageID, req.AgentVersion)
	for _, res := range req.Results {
		b.deliverResult(res)
	}
	if len(req.Events) > 0 {
		ctx := services.WithRequestID(r.Context(), uuid.NewString())
		b.forwardEvents(ctx, req.PageID, req.Events)
	}

	commands := b.drain(req.PageID)
	if len(commands) == 0 && b.longPoll > 0 && len(req.Results) == 0 && len(req.Events) == 0 {
		timer := time.NewTimer(b.longPoll)
		select {
		case <-wake:
		case <-timer.C:
		case <-r.Context().Done():
		}
		timer.Stop()
		commands = b.drain(req.PageID)
	}

	next := idlePollMs
	if b.longPoll > 0 || len(commands) > 0 {
		next = 0
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Ack:        true,
		Commands:   commands,
		NextPollMs: next,
		ServerTime: b.now().UTC().Format(time.RFC3339),
	})
}

func (b *Bridge) touch(pageID, version string) <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(pageID)
	page := b.pageLocked(pageID)
	if page.lastPoll.IsZero() {
		b.logger.Info("page agent connected", logging.String("page_id", pageID), logging.String("agent_version", version))
	}
	page.lastPoll = b.now()
	if version != "" {
		page.version = version
	}
	return page.wake
}

// pruneLocked forgets idle pages that have not synced within the stale window.
// Pages with queued commands are kept until those commands are handed out.
func (b *Bridge) pruneLocked(keep string) {
	now := b.now()
	for id, page := range b.pages {
		if id == keep || len(page.queue) > 0 || now.Sub(page.lastPoll) <= b.stale {
			continue
		}
		delete(b.pages, id)
		b.logger.Debug("forgot stale page agent", logging.String("page_id", id))
	}
}

func (b *Bridge) pageLocked(pageID string) *pageState {
	page, ok := b.pages[pageID]
	if !ok {
		page = &pageState{wake: make(chan struct{})}
		b.pages[pageID] = page
	}
	return page
}

func (b *Bridge) drain(pageID string) []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	page := b.pageLocked(pageID)
	commands := page.queue
	page.queue = nil
	if commands == nil {
		commands = []Command{}
	}
	return commands
}

func (b *Bridge) deliverResult(res CommandResult) {
	b.mu.Lock()
	ch, ok := b.waiters[res.ID]
	delete(b.waiters, res.ID)
	b.mu.Unlock()
	if !ok {
		b.logger.Debug("result for unknown or expired command", logging.String("command_id", res.ID))
		return
	}
	ch <- res
}

func (b *Bridge) forwardEvents(ctx context.Context, pageID string, events []Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		b.logger.Warn("dropping page events; no recorder attached", logging.Int("events", len(events)))
		return
	}
	for _, evt := range events {
		var err error
		switch evt.Type {
		case EventCapture:
			err = sink.ReportCapture(ctx, evt.Section, evt.Lecture, evt.Lines)
		case EventCaptureError:
			detail := strings.TrimSpace(evt.Error)
			if detail == "" {
				detail = "capture failed"
			}
			err = sink.ReportError(ctx, detail)
		default:
			b.logger.Debug("ignoring unknown page event", logging.String("type", evt.Type), logging.String("page_id", pageID))
			continue
		}
		if err != nil {
			logging.WithContext(ctx, b.logger).Info("page event not applied",
				logging.String("type", evt.Type),
				logging.String("page_id", pageID),
				logging.Error(err),
			)
		}
	}
}

// enqueue adds a command to the page queue and wakes a held sync. Old commands
// are discarded once the queue is full so an absent page cannot grow it forever.
func (b *Bridge) enqueue(pageID, kind string, params any, reply chan CommandResult) (Command, error) {
	cmd := Command{ID: uuid.NewString(), Type: kind}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Command{}, fmt.Errorf("encode %s params: %w", kind, err)
		}
		cmd.Params = raw
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if reply != nil {
		b.waiters[cmd.ID] = reply
	}
	page := b.pageLocked(pageID)
	page.queue = append(page.queue, cmd)
	if len(page.queue) > maxQueuedPerPage {
		page.queue = page.queue[len(page.queue)-maxQueuedPerPage:]
	}
	close(page.wake)
	page.wake = make(chan struct{})
	return cmd, nil
}

func (b *Bridge) cancel(pageID, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.waiters, id)
	page, ok := b.pages[pageID]
	if !ok {
		return
	}
	for i, cmd := range page.queue {
		if cmd.ID == id {
			page.queue = append(page.queue[:i], page.queue[i+1:]...)
			return
		}
	}
}

// call queues a command and waits for its reply, bounded by the call timeout.
func (b *Bridge) call(ctx context.Context, pageID, kind string, params any) (json.RawMessage, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return nil, services.Wrap(services.ErrValidation, "agent", kind, "page id is required", nil)
	}
	reply := make(chan CommandResult, 1)
	cmd, err := b.enqueue(pageID, kind, params, reply)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(b.callTimeout)
	defer timer.Stop()
	select {
	case res := <-reply:
		if res.Status == StatusError {
			msg := strings.TrimSpace(res.Error)
			if msg == "" {
				msg = "page agent reported an error"
			}
			return nil, services.Wrap(services.ErrExternalTool, "agent", kind, msg, nil)
		}
		return res.Result, nil
	case <-timer.C:
		b.cancel(pageID, cmd.ID)
		return nil, services.Wrap(services.ErrTimeout, "agent", kind,
			fmt.Sprintf("no reply from page %q within %s", pageID, b.callTimeout), nil)
	case <-ctx.Done():
		b.cancel(pageID, cmd.ID)
		return nil, ctx.Err()
	}
}

// Structure asks the page for its course structure.
func (b *Bridge) Structure(ctx context.Context, pageID string) (outline.Discovery, error) {
	raw, err := b.call(ctx, pageID, CommandGetStructure, nil)
	if err != nil {
		return outline.Discovery{}, structureError(err)
	}
	var res structureResult
	if len(raw) == 0 {
		return outline.Discovery{}, outline.ErrNoCourseContext
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return outline.Discovery{}, fmt.Errorf("%w: %v", outline.ErrParseFailure, err)
	}
	discovery := outline.Discovery{
		CourseID: strings.TrimSpace(res.CourseID),
		Title:    strings.TrimSpace(res.Title),
	}
	if len(res.Outline) > 0 && string(res.Outline) != "null" {
		var parsed outline.Outline
		if err := json.Unmarshal(res.Outline, &parsed); err != nil {
			return outline.Discovery{}, fmt.Errorf("%w: %v", outline.ErrParseFailure, err)
		}
		if parsed.Title == "" {
			parsed.Title = discovery.Title
		}
		if err := parsed.Validate(); err != nil {
			return outline.Discovery{}, err
		}
		discovery.Outline = &parsed
	}
	if discovery.Outline == nil && discovery.CourseID == "" {
		return outline.Discovery{}, outline.ErrNoCourseContext
	}
	return discovery, nil
}

// structureError maps the page's error codes onto discovery errors.
func structureError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no_course_context"):
		return fmt.Errorf("%w: %v", outline.ErrNoCourseContext, err)
	case strings.Contains(msg, "parse_failure"):
		return fmt.Errorf("%w: %v", outline.ErrParseFailure, err)
	case strings.Contains(msg, "empty_outline"):
		return fmt.Errorf("%w: %v", outline.ErrEmptyOutline, err)
	}
	return err
}

// Navigate asks the page to open a lecture. A nil error means the page
// accepted the request; the transcript arrives later as a capture event.
func (b *Bridge) Navigate(ctx context.Context, pageID string, unit outline.Unit) error {
	_, err := b.call(ctx, pageID, CommandNavigate, NavigateParams{
		Section:      unit.Section,
		Lecture:      unit.Lecture.Title,
		LectureID:    unit.Lecture.ID,
		SectionIndex: unit.SectionIndex,
		LectureIndex: unit.LectureIndex,
	})
	return err
}

// Ping checks that the page is alive and answering.
func (b *Bridge) Ping(ctx context.Context, pageID string) error {
	_, err := b.call(ctx, pageID, CommandPing, nil)
	return err
}

// Stop tells the page to tear down its progress panel and stop capturing.
func (b *Bridge) Stop(ctx context.Context, pageID string) error {
	_, err := b.call(ctx, pageID, CommandStop, nil)
	return err
}

// Progress queues a panel update without waiting for a reply.
func (b *Bridge) Progress(_ context.Context, pageID, section, lecture string, handled, total int) error {
	if strings.TrimSpace(pageID) == "" {
		return errors.New("page id is required")
	}
	_, err := b.enqueue(strings.TrimSpace(pageID), CommandProgress, ProgressParams{
		Section: section,
		Lecture: lecture,
		Handled: handled,
		Total:   total,
	}, nil)
	return err
}

// Complete queues the completion notice without waiting for a reply.
func (b *Bridge) Complete(_ context.Context, pageID string) error {
	if strings.TrimSpace(pageID) == "" {
		return errors.New("page id is required")
	}
	_, err := b.enqueue(strings.TrimSpace(pageID), CommandComplete, nil, nil)
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
