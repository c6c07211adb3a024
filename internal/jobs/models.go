package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	// StatusAccepted means the job identifier was assigned and communicated
	// to the client but the queue has not taken the job yet.
	StatusAccepted  Status = "accepted"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCanceled  Status = "canceled"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusAccepted,
	StatusQueued,
	StatusRunning,
	StatusCanceled,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Job represents a submitted job persisted in SQLite.
type Job struct {
	ID           int64
	QueueName    string
	Program      string
	Arguments    []string
	Description  string
	Fingerprint  string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsTerminal reports whether the job can no longer change state.
func (j Job) IsTerminal() bool {
	switch j.Status {
	case StatusCanceled, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsActive reports whether the job currently occupies queue capacity.
func IsActiveStatus(status Status) bool {
	switch status {
	case StatusAccepted, StatusQueued, StatusRunning:
		return true
	default:
		return false
	}
}
