package queue

import (
	"context"
	"log/slog"
	"sync/atomic"

	"molequeue/internal/jobs"
	"molequeue/internal/logging"
)

// Queue is a named destination jobs can be submitted to. It tracks capacity
// against the job store and transitions jobs it accepts into StatusQueued.
type Queue struct {
	name        string
	description string
	maxPending  int
	paused      atomic.Bool
	store       *jobs.Store
	logger      *slog.Logger
}

// New constructs a queue backed by the given store. A maxPending of zero
// means unlimited capacity.
func New(name, description string, maxPending int, store *jobs.Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		name:        name,
		description: description,
		maxPending:  maxPending,
		store:       store,
		logger:      logger.With(logging.String(logging.FieldQueue, name)),
	}
}

// Name returns the queue's unique name.
func (q *Queue) Name() string {
	return q.name
}

// Description returns the human-readable queue description.
func (q *Queue) Description() string {
	return q.description
}

// Paused reports whether the queue currently refuses submissions.
func (q *Queue) Paused() bool {
	return q.paused.Load()
}

// Pause makes the queue refuse subsequent submissions.
func (q *Queue) Pause() {
	q.paused.Store(true)
}

// Resume re-enables submissions.
func (q *Queue) Resume() {
	q.paused.Store(false)
}

// Submit hands an already-acknowledged job to the queue. The job keeps its
// assigned identifier; acceptance here only moves it to StatusQueued. A false
// return means the queue refused the job (paused or at capacity) and the
// caller marks it failed.
func (q *Queue) Submit(ctx context.Context, job *jobs.Job) bool {
	if job == nil {
		return false
	}
	if q.paused.Load() {
		q.logger.Warn("submission refused, queue paused",
			logging.Int64(logging.FieldJobID, job.ID))
		return false
	}
	if q.maxPending > 0 {
		active, err := q.store.CountActive(ctx, q.name)
		if err != nil {
			q.logger.Error("capacity check failed",
				logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
			return false
		}
		// The submitted job is already counted as accepted.
		if active > q.maxPending {
			q.logger.Warn("submission refused, queue at capacity",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.Int("max_pending", q.maxPending))
			return false
		}
	}
	if err := q.store.SetStatus(ctx, job.ID, jobs.StatusQueued); err != nil {
		q.logger.Error("queue transition failed",
			logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
		return false
	}
	job.Status = jobs.StatusQueued
	q.logger.Info("job queued", logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldFingerprint, job.Fingerprint))
	return true
}

// Cancel removes a job from the queue. Jobs already in a terminal state
// cannot be canceled.
func (q *Queue) Cancel(ctx context.Context, job *jobs.Job) bool {
	if job == nil || job.IsTerminal() {
		return false
	}
	if err := q.store.SetStatus(ctx, job.ID, jobs.StatusCanceled); err != nil {
		q.logger.Error("cancel transition failed",
			logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
		return false
	}
	job.Status = jobs.StatusCanceled
	q.logger.Info("job canceled", logging.Int64(logging.FieldJobID, job.ID))
	return true
}
