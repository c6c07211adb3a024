package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"molequeue/internal/jobs"
	"molequeue/internal/logging"
)

// ErrRouterStopped is returned by Dispatch after the router shuts down.
var ErrRouterStopped = errors.New("router stopped")

type dispatchEvent struct {
	conn Connection
	req  Request
}

// Router serializes client requests into a single dispatch stream. All
// requests, from however many connections, are handled one at a time in
// arrival order, so handlers never race on queue or job state.
type Router struct {
	queues   QueueDirectory
	jobs     JobDirectory
	notifier SubmissionNotifier
	logger   *slog.Logger

	events  chan dispatchEvent
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	stopped atomic.Bool
}

// NewRouter constructs a router over the given directories. The buffer sets
// how many requests may be pending dispatch before Dispatch blocks the
// submitting connection; zero uses an unbuffered stream. A nil notifier
// disables submission notifications.
func NewRouter(queues QueueDirectory, jobDir JobDirectory, notifier SubmissionNotifier, buffer int, logger *slog.Logger) *Router {
	if buffer < 0 {
		buffer = 0
	}
	return &Router{
		queues:   queues,
		jobs:     jobDir,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "router"),
		events:   make(chan dispatchEvent, buffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins consuming the dispatch stream. It returns immediately; the
// stream drains on a dedicated goroutine until Stop is called or ctx ends.
func (r *Router) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.quit:
				return
			case ev := <-r.events:
				r.handle(ctx, ev)
			}
		}
	}()
}

// Stop shuts the router down and waits for the dispatch goroutine to exit.
// Requests still buffered when Stop is called are dropped; their connections
// are closing anyway.
func (r *Router) Stop() {
	r.once.Do(func() {
		r.stopped.Store(true)
		close(r.quit)
	})
	<-r.done
}

// Dispatch enqueues a request tagged with its originating connection. It
// blocks the caller, never the dispatch stream, when the buffer is full.
// Once Stop has run, Dispatch refuses the request instead of letting it
// land in a buffer nothing drains; a nil error always means the dispatch
// stream will answer.
func (r *Router) Dispatch(conn Connection, req Request) error {
	if conn == nil || req == nil {
		return errors.New("nil connection or request")
	}
	if r.stopped.Load() {
		return ErrRouterStopped
	}
	select {
	case <-r.quit:
		return ErrRouterStopped
	case r.events <- dispatchEvent{conn: conn, req: req}:
		return nil
	}
}

func (r *Router) handle(ctx context.Context, ev dispatchEvent) {
	switch req := ev.req.(type) {
	case ListQueuesRequest:
		r.handleListQueues(ev.conn)
	case SubmitJobRequest:
		r.handleSubmitJob(ctx, ev.conn, req)
	case CancelJobRequest:
		r.handleCancelJob(ctx, ev.conn, req)
	default:
		r.logger.Warn("unhandled request kind",
			logging.String(logging.FieldConnID, ev.conn.ID()),
			logging.String(logging.FieldEventType, ev.req.requestKind()))
	}
}

func (r *Router) handleListQueues(conn Connection) {
	names := r.queues.Names()
	if err := conn.SendQueueList(names); err != nil {
		r.logSendFailure(conn, "queue list", err)
	}
}

func (r *Router) handleSubmitJob(ctx context.Context, conn Connection, req SubmitJobRequest) {
	spec := req.Spec.Normalize()
	queue, ok := r.queues.Lookup(spec.Queue)
	if !ok {
		message := fmt.Sprintf("Unknown queue: %s", spec.Queue)
		if err := conn.SendSubmissionRejected(ErrInvalidQueue, message); err != nil {
			r.logSendFailure(conn, "submission rejection", err)
		}
		return
	}

	job, err := r.jobs.NewJob(ctx, spec)
	if err != nil {
		r.logger.Error("job creation failed",
			logging.String(logging.FieldConnID, conn.ID()),
			logging.String(logging.FieldQueue, spec.Queue),
			logging.Error(err))
		if sendErr := conn.SendSubmissionRejected(ErrInternal, "Failed to record submission"); sendErr != nil {
			r.logSendFailure(conn, "submission rejection", sendErr)
		}
		return
	}

	// Acknowledge before the queue sees the job. The client learns its job
	// identifier first; whatever the queue does next cannot reorder that.
	if err := conn.SendSubmissionAccepted(job.ID); err != nil {
		r.logSendFailure(conn, "submission acknowledgement", err)
	}

	if !queue.Submit(ctx, job) {
		job.Status = jobs.StatusFailed
		job.ErrorMessage = "queue refused submission"
		if err := r.jobs.Update(ctx, job); err != nil {
			r.logger.Error("failed to record refused submission",
				logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
		}
		return
	}

	r.logger.Info("job dispatched",
		logging.String(logging.FieldConnID, conn.ID()),
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldQueue, queue.Name()))

	if r.notifier != nil {
		if err := r.notifier.NotifyJobSubmitted(ctx, job.ID, queue.Name()); err != nil {
			r.logger.Debug("submission notification failed",
				logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
		}
	}
}

func (r *Router) handleCancelJob(ctx context.Context, conn Connection, req CancelJobRequest) {
	job, err := r.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		r.logger.Error("job lookup failed",
			logging.Int64(logging.FieldJobID, req.JobID), logging.Error(err))
		if sendErr := conn.SendCancellationRejected(ErrInternal, "Failed to look up job"); sendErr != nil {
			r.logSendFailure(conn, "cancellation rejection", sendErr)
		}
		return
	}
	if job == nil {
		message := fmt.Sprintf("Unknown job: %d", req.JobID)
		if sendErr := conn.SendCancellationRejected(ErrUnknownJob, message); sendErr != nil {
			r.logSendFailure(conn, "cancellation rejection", sendErr)
		}
		return
	}

	queue, ok := r.queues.Lookup(job.QueueName)
	if !ok || !queue.Cancel(ctx, job) {
		message := fmt.Sprintf("Job %d cannot be canceled", job.ID)
		if sendErr := conn.SendCancellationRejected(ErrInternal, message); sendErr != nil {
			r.logSendFailure(conn, "cancellation rejection", sendErr)
		}
		return
	}

	if err := conn.SendCancellationAccepted(job.ID); err != nil {
		r.logSendFailure(conn, "cancellation acknowledgement", err)
	}
}

func (r *Router) logSendFailure(conn Connection, what string, err error) {
	r.logger.Warn("failed to send "+what,
		logging.String(logging.FieldConnID, conn.ID()),
		logging.Error(err))
}
