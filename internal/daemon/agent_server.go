package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"lectern/internal/agent"
	"lectern/internal/config"
	"lectern/internal/logging"
)

// agentServer serves the page-agent bridge and a small read-only status API
// on the configured bind address.
type agentServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// statusPayload is the JSON body of GET /api/status.
type statusPayload struct {
	Running  bool          `json:"running"`
	PID      int           `json:"pid"`
	Recorder any           `json:"recorder"`
	Agent    agent.Health  `json:"agent"`
	Checks   []checkResult `json:"checks,omitempty"`
}

type checkResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type logsPayload struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

func newAgentServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *agentServer {
	srv := &agentServer{
		bind:   strings.TrimSpace(cfg.Agent.Bind),
		token:  cfg.Agent.Token,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.Handle("/agent/", d.bridge.Handler())
	mux.HandleFunc("/api/status", agent.RequireToken(srv.token, srv.handleStatus))
	mux.HandleFunc("/api/logs", agent.RequireToken(srv.token, srv.handleLogs))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.AgentLongPoll() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *agentServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("agent listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	// Held long-polls end with the daemon.
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("agent server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("agent server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *agentServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// address returns the bound address, which differs from the configured one
// when the port was 0.
func (s *agentServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *agentServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	payload := statusPayload{
		Running:  status.Running,
		PID:      status.PID,
		Recorder: status.Recorder,
		Agent:    status.Agent,
	}
	s.daemon.mu.Lock()
	for _, c := range s.daemon.checks {
		payload.Checks = append(payload.Checks, checkResult{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
	}
	s.daemon.mu.Unlock()
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *agentServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	hub := s.daemon.LogStream()
	if hub == nil {
		s.writeJSON(w, http.StatusOK, logsPayload{})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	if since == 0 && !follow {
		events, next := hub.Tail(limit)
		s.writeJSON(w, http.StatusOK, logsPayload{Events: events, Next: next})
		return
	}

	ctx := r.Context()
	if follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
	}
	events, next, err := hub.Fetch(ctx, since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, logsPayload{Events: events, Next: next})
}

func (s *agentServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *agentServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *agentServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "agent-server"))
	}
	return logging.NewNop()
}
