package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"molequeue/internal/config"
	"molequeue/internal/daemon"
	"molequeue/internal/ipc"
	"molequeue/internal/jobs"
	"molequeue/internal/logging"
	"molequeue/internal/notifications"
	"molequeue/internal/queue"
	"molequeue/internal/server"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// AskPolicy answers bind conflicts when server.on_conflict is "ask".
	// Typically an interactive prompt; nil falls back to keeping the
	// existing instance.
	AskPolicy server.ConflictPolicy
}

// Run starts the molequeue daemon runtime loop. It returns once the process
// receives SIGINT/SIGTERM, or immediately when arbitration yields to an
// already running instance.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("molequeue-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update molequeue.log link: %v\n", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	manager, err := queue.NewManager(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("build queue directory: %w", err)
	}

	notifier := notifications.NewService(cfg)
	policy := resolvePolicy(cfg, opts.AskPolicy)

	d, err := daemon.New(cfg, store, manager, logger, notifier, policy)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			logger.Info("yielding to existing instance",
				logging.String("socket", cfg.SocketPath()))
			return nil
		}
		return err
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		// The daemon keeps running without its IPC surface; clients cannot
		// reach it until restart.
		logger.Error("start IPC server",
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_listen_failed"),
			logging.String(logging.FieldImpact, "daemon running but unreachable over IPC"),
			logging.String(logging.FieldErrorHint, "Check socket path permissions and restart the daemon"))
		d.MarkDegraded("ipc listener unavailable")
		if notifyErr := notifier.NotifyServerError(signalCtx, err, "ipc listen"); notifyErr != nil {
			logger.Debug("server error notification failed", logging.Error(notifyErr))
		}
	} else {
		defer ipcServer.Close()
		ipcServer.Serve()
	}

	<-signalCtx.Done()
	logger.Info("molequeue daemon shutting down")
	return nil
}

func resolvePolicy(cfg *config.Config, askPolicy server.ConflictPolicy) server.ConflictPolicy {
	timeout := time.Duration(cfg.Server.ConflictTimeoutSeconds) * time.Second
	switch cfg.Server.OnConflict {
	case config.OnConflictReplace:
		return server.StaticPolicy(server.ForceReplace)
	case config.OnConflictAsk:
		if askPolicy != nil {
			return server.TimeoutPolicy(askPolicy, timeout)
		}
		return server.StaticPolicy(server.KeepExistingAndExit)
	default:
		return server.StaticPolicy(server.KeepExistingAndExit)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "molequeue.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
