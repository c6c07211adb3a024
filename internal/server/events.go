package server

import (
	"context"
	"fmt"

	"molequeue/internal/jobs"
)

// ErrorCode classifies a rejected request for clients.
type ErrorCode int

const (
	ErrNone ErrorCode = iota
	ErrInvalidQueue
	ErrUnknownJob
	ErrInternal
)

// String returns the wire name of the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNone:
		return "none"
	case ErrInvalidQueue:
		return "invalid_queue"
	case ErrUnknownJob:
		return "unknown_job"
	case ErrInternal:
		return "internal"
	default:
		return fmt.Sprintf("error(%d)", int(c))
	}
}

// Request is a client request tagged for dispatch. Each concrete request
// produces exactly one response on the connection it arrived on.
type Request interface {
	requestKind() string
}

// ListQueuesRequest asks for the names of the configured queues.
type ListQueuesRequest struct{}

func (ListQueuesRequest) requestKind() string { return "listQueues" }

// SubmitJobRequest asks to submit a job described by Spec.
type SubmitJobRequest struct {
	Spec jobs.Spec
}

func (SubmitJobRequest) requestKind() string { return "submitJob" }

// CancelJobRequest asks to cancel the job with the given identifier.
type CancelJobRequest struct {
	JobID int64
}

func (CancelJobRequest) requestKind() string { return "cancelJob" }

// Connection is the reply channel for a single request. The router never
// holds connections beyond the request being handled; replies always go to
// the connection the request arrived on.
type Connection interface {
	ID() string
	SendQueueList(names []string) error
	SendSubmissionAccepted(jobID int64) error
	SendSubmissionRejected(code ErrorCode, message string) error
	SendCancellationAccepted(jobID int64) error
	SendCancellationRejected(code ErrorCode, message string) error
}

// SubmittableQueue is the router's view of a single queue.
type SubmittableQueue interface {
	Name() string
	Submit(ctx context.Context, job *jobs.Job) bool
	Cancel(ctx context.Context, job *jobs.Job) bool
}

// QueueDirectory resolves queue names to queues.
type QueueDirectory interface {
	Lookup(name string) (SubmittableQueue, bool)
	Names() []string
}

// JobDirectory persists jobs and resolves job identifiers.
type JobDirectory interface {
	NewJob(ctx context.Context, spec jobs.Spec) (*jobs.Job, error)
	GetByID(ctx context.Context, id int64) (*jobs.Job, error)
	Update(ctx context.Context, job *jobs.Job) error
}

// SubmissionNotifier is told about jobs handed to a queue. Notification
// failures never affect dispatch.
type SubmissionNotifier interface {
	NotifyJobSubmitted(ctx context.Context, jobID int64, queueName string) error
}
