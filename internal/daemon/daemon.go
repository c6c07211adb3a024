package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"molequeue/internal/config"
	"molequeue/internal/jobs"
	"molequeue/internal/logging"
	"molequeue/internal/notifications"
	"molequeue/internal/queue"
	"molequeue/internal/server"
)

// ErrAlreadyRunning indicates another instance owns the endpoint and
// arbitration decided to keep it.
var ErrAlreadyRunning = errors.New("another molequeue daemon instance is already running")

// Daemon coordinates the dispatch core and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	manager  *queue.Manager
	router   *server.Router
	notifier notifications.Service
	policy   server.ConflictPolicy

	lockPath string
	lock     *flock.Flock

	running        atomic.Bool
	degraded       atomic.Bool
	degradedReason string

	ctx    context.Context
	cancel context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	SocketPath     string
	LockPath       string
	JobDBPath      string
	Queues         []string
	Degraded       bool
	DegradedReason string
}

// queueDirectory adapts the queue manager to the router's directory view.
type queueDirectory struct {
	manager *queue.Manager
}

func (d queueDirectory) Lookup(name string) (server.SubmittableQueue, bool) {
	q, ok := d.manager.Lookup(name)
	if !ok {
		return nil, false
	}
	return q, true
}

func (d queueDirectory) Names() []string {
	return d.manager.Names()
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, manager *queue.Manager, logger *slog.Logger, notifier notifications.Service, policy server.ConflictPolicy) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and queue manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockPath()
	router := server.NewRouter(queueDirectory{manager: manager}, store, notifier, cfg.Server.DispatchBuffer, logger)
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		manager:  manager,
		router:   router,
		notifier: notifier,
		policy:   policy,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, arbitrating any conflict with a running
// instance, and begins consuming the dispatch stream.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		decision, resolveErr := d.arbitrate(ctx)
		if resolveErr != nil {
			return resolveErr
		}
		if decision == server.KeepExistingAndExit {
			return ErrAlreadyRunning
		}
		if err := d.replaceExisting(ctx); err != nil {
			return fmt.Errorf("replace existing instance: %w", err)
		}
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.router.Start(d.ctx)
	d.running.Store(true)
	d.logger.Info("molequeue daemon started",
		logging.String("lock", d.lockPath),
		logging.String("socket", d.cfg.SocketPath()))
	return nil
}

func (d *Daemon) arbitrate(ctx context.Context) (server.Decision, error) {
	conflict := server.Conflict{
		SocketPath: d.cfg.SocketPath(),
		LockPath:   d.lockPath,
		PID:        readPIDFile(d.cfg.PIDPath()),
	}
	if err := d.notifier.NotifyBindConflict(ctx, conflict.SocketPath, conflict.PID); err != nil {
		d.logger.Debug("bind conflict notification failed", logging.Error(err))
	}
	arbiter := server.NewArbiter(d.policy, d.logger)
	return arbiter.Resolve(ctx, conflict)
}

// replaceExisting terminates the instance holding the lock and retakes its
// endpoint. The socket and pid files are only removed once the process is
// confirmed gone.
func (d *Daemon) replaceExisting(ctx context.Context) error {
	pid := readPIDFile(d.cfg.PIDPath())
	if pid > 0 && pid != os.Getpid() {
		proc, err := os.FindProcess(pid)
		if err == nil {
			if killErr := proc.Kill(); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
				d.logger.Warn("failed to kill existing instance",
					logging.Int("pid", pid), logging.Error(killErr))
			} else {
				d.logger.Info("terminated existing instance", logging.Int("pid", pid))
			}
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		ok, err := d.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return errors.New("lock still held after terminating existing instance")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	for _, stale := range []string{d.cfg.PIDPath(), d.cfg.SocketPath()} {
		if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove stale file",
				logging.String("path", stale), logging.Error(err))
		}
	}
	return nil
}

// Dispatch feeds a request into the dispatch stream.
func (d *Daemon) Dispatch(conn server.Connection, req server.Request) error {
	return d.router.Dispatch(conn, req)
}

// Stop stops the dispatch stream and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.router.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("molequeue daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// MarkDegraded records that the daemon is running without part of its
// surface, such as a failed IPC listener.
func (d *Daemon) MarkDegraded(reason string) {
	d.degradedReason = reason
	d.degraded.Store(true)
}

// Status reports daemon runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		SocketPath:     d.cfg.SocketPath(),
		LockPath:       d.lockPath,
		JobDBPath:      d.cfg.DatabasePath(),
		Queues:         d.manager.Names(),
		Degraded:       d.degraded.Load(),
		DegradedReason: d.degradedReason,
	}
}

// Notifier returns the daemon's notification service.
func (d *Daemon) Notifier() notifications.Service {
	return d.notifier
}

// ListJobs returns stored jobs filtered by status.
func (d *Daemon) ListJobs(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error) {
	return d.store.List(ctx, statuses...)
}

// JobStats returns job counts grouped by status.
func (d *Daemon) JobStats(ctx context.Context) (map[jobs.Status]int, error) {
	return d.store.Stats(ctx)
}

// ClearJobs removes all stored jobs.
func (d *Daemon) ClearJobs(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	value := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(value)
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}
