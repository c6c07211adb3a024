package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"molequeue/internal/daemon"
	"molequeue/internal/jobs"
	"molequeue/internal/logging"
	"molequeue/internal/server"
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

// NewServer configures the IPC server at the given socket path. The caller
// must already hold the daemon lock; the socket file is replaced
// unconditionally.
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
	if err := rpcServer.RegisterName("MoleQueue", srv); err != nil {
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
// Accepting never waits on dispatch; each connection gets its own goroutine.
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
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
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
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun molequeue stop"))
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
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

// replyTimeout bounds how long a blocked RPC handler waits for the dispatch
// stream to answer its request.
const replyTimeout = 30 * time.Second

// reply bridges the router's connection-oriented responses back into a
// blocked RPC handler. Each RPC request gets its own reply, so the response
// can only land on the connection the request arrived on.
type reply struct {
	id   string
	once sync.Once
	done chan struct{}

	kind    string
	names   []string
	jobID   int64
	code    server.ErrorCode
	message string
}

func newReply() *reply {
	return &reply{id: uuid.NewString(), done: make(chan struct{})}
}

func (r *reply) ID() string { return r.id }

func (r *reply) SendQueueList(names []string) error {
	r.once.Do(func() {
		r.kind = "queueList"
		r.names = names
		close(r.done)
	})
	return nil
}

func (r *reply) SendSubmissionAccepted(jobID int64) error {
	r.once.Do(func() {
		r.kind = "submissionAccepted"
		r.jobID = jobID
		close(r.done)
	})
	return nil
}

func (r *reply) SendSubmissionRejected(code server.ErrorCode, message string) error {
	r.once.Do(func() {
		r.kind = "submissionRejected"
		r.code = code
		r.message = message
		close(r.done)
	})
	return nil
}

func (r *reply) SendCancellationAccepted(jobID int64) error {
	r.once.Do(func() {
		r.kind = "cancellationAccepted"
		r.jobID = jobID
		close(r.done)
	})
	return nil
}

func (r *reply) SendCancellationRejected(code server.ErrorCode, message string) error {
	r.once.Do(func() {
		r.kind = "cancellationRejected"
		r.code = code
		r.message = message
		close(r.done)
	})
	return nil
}

func (r *reply) wait(ctx context.Context) error {
	timer := time.NewTimer(replyTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("timed out waiting for dispatch")
	}
}

// ListQueues returns the configured queue names.
func (s *service) ListQueues(req ListQueuesRequest, resp *ListQueuesResponse) error {
	r := newReply()
	if err := s.daemon.Dispatch(r, server.ListQueuesRequest{}); err != nil {
		return err
	}
	if err := r.wait(s.ctx); err != nil {
		return err
	}
	resp.Queues = r.names
	return nil
}

// Submit submits a job for dispatch.
func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	r := newReply()
	spec := jobs.Spec{
		Queue:       req.Queue,
		Program:     req.Program,
		Arguments:   req.Arguments,
		Description: req.Description,
	}
	if err := s.daemon.Dispatch(r, server.SubmitJobRequest{Spec: spec}); err != nil {
		return err
	}
	if err := r.wait(s.ctx); err != nil {
		return err
	}
	switch r.kind {
	case "submissionAccepted":
		resp.Accepted = true
		resp.JobID = r.jobID
	default:
		resp.Accepted = false
		resp.Code = r.code.String()
		resp.Message = r.message
	}
	return nil
}

// Cancel cancels a job by identifier.
func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	r := newReply()
	if err := s.daemon.Dispatch(r, server.CancelJobRequest{JobID: req.ID}); err != nil {
		return err
	}
	if err := r.wait(s.ctx); err != nil {
		return err
	}
	switch r.kind {
	case "cancellationAccepted":
		resp.Canceled = true
		resp.JobID = r.jobID
	default:
		resp.Canceled = false
		resp.JobID = req.ID
		resp.Code = r.code.String()
		resp.Message = r.message
	}
	return nil
}

// Status reports daemon runtime information.
func (s *service) Status(req StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	stats, err := s.daemon.JobStats(s.ctx)
	if err != nil {
		s.log().Warn("job stats unavailable", logging.Error(err))
	}
	jobStats := make(map[string]int, len(stats))
	for jobStatus, count := range stats {
		jobStats[string(jobStatus)] = count
	}
	*resp = StatusResponse{
		Running:     status.Running,
		PID:         os.Getpid(),
		SocketPath:  status.SocketPath,
		LockPath:    status.LockPath,
		JobDBPath:   status.JobDBPath,
		Queues:      status.Queues,
		JobStats:    jobStats,
		Degraded:    status.Degraded,
		DegradedFor: status.DegradedReason,
	}
	return nil
}

// JobList returns stored jobs, optionally filtered by status.
func (s *service) JobList(req JobListRequest, resp *JobListResponse) error {
	statuses := make([]jobs.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		status, ok := jobs.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, status)
	}

	list, err := s.daemon.ListJobs(s.ctx, statuses...)
	if err != nil {
		return err
	}
	resp.Jobs = make([]JobSummary, 0, len(list))
	for _, job := range list {
		resp.Jobs = append(resp.Jobs, convertJob(job))
	}
	return nil
}

// JobClear removes all stored jobs.
func (s *service) JobClear(req JobClearRequest, resp *JobClearResponse) error {
	removed, err := s.daemon.ClearJobs(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

// Stop requests daemon shutdown.
func (s *service) Stop(req StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

// TestNotification triggers a notification test via the daemon.
func (s *service) TestNotification(req TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.Notifier().TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "Notification sent"
	return nil
}

func convertJob(job *jobs.Job) JobSummary {
	if job == nil {
		return JobSummary{}
	}
	summary := JobSummary{
		ID:          job.ID,
		Queue:       job.QueueName,
		Program:     job.Program,
		Arguments:   append([]string(nil), job.Arguments...),
		Description: job.Description,
		Status:      string(job.Status),
		Error:       job.ErrorMessage,
	}
	if !job.CreatedAt.IsZero() {
		summary.CreatedAt = job.CreatedAt.Format(time.RFC3339)
	}
	if !job.UpdatedAt.IsZero() {
		summary.UpdatedAt = job.UpdatedAt.Format(time.RFC3339)
	}
	return summary
}
