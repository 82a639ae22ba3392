package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"lectern/internal/agent"
	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/recorder"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Lectern", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

// codeFor maps recorder errors onto wire codes.
func codeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, recorder.ErrAlreadyRecording):
		return CodeAlreadyRecording
	case errors.Is(err, recorder.ErrInvalidTarget):
		return CodeInvalidTarget
	case errors.Is(err, recorder.ErrDiscoveryFailed):
		return CodeDiscoveryFailed
	case errors.Is(err, recorder.ErrNotRecording):
		return CodeNotRecording
	case errors.Is(err, recorder.ErrBudgetExhausted):
		return CodeBudgetExhausted
	case errors.Is(err, recorder.ErrStorageWrite):
		return CodeStorageWrite
	default:
		return CodeInternal
	}
}

func (s *service) Start(req StartRequest, resp *StartResponse) error {
	s.log().Debug("recording start requested", logging.String("page", req.Page))
	if err := s.daemon.StartRecording(s.ctx, req.Page); err != nil {
		resp.Started = false
		resp.Code = codeFor(err)
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "recording started"
	s.log().Info("recording started via IPC",
		logging.String(logging.FieldEventType, "recording_start"))
	return nil
}

func (s *service) Stop(req StopRequest, resp *StopResponse) error {
	s.log().Debug("recording stop requested")
	if err := s.daemon.StopRecording(s.ctx, req.Reason); err != nil {
		return err
	}
	resp.Stopped = true
	s.log().Info("recording stopped via IPC",
		logging.String(logging.FieldEventType, "recording_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.AgentAddress = status.AgentAddress
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.Recording = status.Recorder
	resp.Agent = convertAgentHealth(status.Agent)
	return nil
}

func (s *service) Clear(_ ClearRequest, resp *ClearResponse) error {
	s.log().Debug("transcript clear requested")
	if err := s.daemon.ClearTranscripts(s.ctx); err != nil {
		resp.Message = err.Error()
		return nil
	}
	resp.Cleared = true
	resp.Message = "transcripts cleared"
	s.log().Info("transcripts cleared via IPC",
		logging.String(logging.FieldEventType, "transcripts_clear"))
	return nil
}

func (s *service) ForceAdvance(_ ForceAdvanceRequest, resp *ForceAdvanceResponse) error {
	s.log().Debug("force advance requested")
	if err := s.daemon.ForceAdvance(s.ctx); err != nil {
		resp.Code = codeFor(err)
		resp.Message = err.Error()
		return nil
	}
	resp.Advanced = true
	resp.Message = "skipped to the next lecture"
	return nil
}

func (s *service) Export(req ExportRequest, resp *ExportResponse) error {
	export, err := s.daemon.Export(s.ctx, req.Format, req.Title)
	if err != nil {
		return err
	}
	resp.Document = export.Document
	resp.Title = export.Title
	resp.Sections = export.Sections
	resp.Lectures = export.Lectures
	resp.Failed = append(resp.Failed, export.Failed...)
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	health := s.daemon.Health(s.ctx)
	resp.Agent = convertAgentHealth(health.Agent)
	resp.StoreOK = health.StoreOK
	resp.StoreError = health.StoreError
	resp.Checks = make([]CheckResult, 0, len(health.Checks))
	for _, c := range health.Checks {
		resp.Checks = append(resp.Checks, CheckResult{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	hub := s.daemon.LogStream()
	if hub == nil {
		resp.Next = req.Since
		return nil
	}
	if req.Since == 0 && !req.Follow {
		resp.Events, resp.Next = hub.Tail(req.Limit)
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait)
		defer cancel()
	}
	events, next, err := hub.Fetch(ctx, req.Since, req.Limit, req.Follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Events = events
	resp.Next = next
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func convertAgentHealth(h agent.Health) AgentHealth {
	return AgentHealth{
		Connected:    h.Connected,
		LastPoll:     h.LastPoll,
		AgentVersion: h.AgentVersion,
		Pages:        append([]string(nil), h.Pages...),
	}
}
