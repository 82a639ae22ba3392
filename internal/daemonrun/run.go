package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"lectern/internal/agent"
	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/ipc"
	"lectern/internal/kvstore"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/platform"
	"lectern/internal/recorder"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// SocketPath overrides the configured IPC socket.
	SocketPath string
}

// Run starts the lectern daemon and blocks until SIGINT/SIGTERM or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := cfg.LogFilePath()
	logHub := logging.NewStreamHub(4096)
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		Stream:           logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := kvstore.Open(signalCtx, cfg)
	if err != nil {
		logger.Error("open transcript store", logging.Error(err))
		return err
	}
	defer store.Close()

	recorderOpts, err := recorderOptions(cfg)
	if err != nil {
		return err
	}
	bridge := agent.New(cfg, logger)
	mgr := recorder.NewManager(cfg, store, bridge, logger, recorderOpts...)

	d, err := daemon.New(cfg, store, logger, bridge, mgr, logHub)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.Paths.SocketPath
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check agent.bind and that no other lecternd is running"),
			logging.String(logging.FieldImpact, "the browser extension cannot reach the daemon"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("lectern daemon shutting down")
	return nil
}

// recorderOptions wires the notifier and, when platform fetching is enabled,
// the platform client as the recorder's content source.
func recorderOptions(cfg *config.Config) ([]recorder.Option, error) {
	opts := []recorder.Option{recorder.WithNotifier(notifications.NewService(cfg))}
	client, err := platform.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("platform client: %w", err)
	}
	if client != nil {
		opts = append(opts, recorder.WithContentSource(client))
	}
	return opts, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("database_path", cfg.DatabasePath()),
		logging.String("agent_bind", cfg.Agent.Bind),
		logging.Bool("agent_token_present", strings.TrimSpace(cfg.Agent.Token) != ""),
		logging.Bool("platform_enabled", cfg.Platform.Enabled),
		logging.Bool("platform_credentials_present",
			strings.TrimSpace(cfg.Platform.Cookie) != "" || strings.TrimSpace(cfg.Platform.AccessToken) != ""),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("max_errors", cfg.Recording.MaxErrors),
		logging.Int("watchdog_seconds", cfg.Recording.WatchdogSeconds),
	)
}
