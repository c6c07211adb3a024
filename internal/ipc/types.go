package ipc

// ListQueuesRequest fetches the names of the configured queues.
type ListQueuesRequest struct{}

// ListQueuesResponse contains queue names in configuration order.
type ListQueuesResponse struct {
	Queues []string `json:"queues"`
}

// SubmitRequest submits a job to a named queue.
type SubmitRequest struct {
	Queue       string   `json:"queue"`
	Program     string   `json:"program"`
	Arguments   []string `json:"arguments"`
	Description string   `json:"description"`
}

// SubmitResponse reports the submission outcome. A rejected submission
// carries the error code and message instead of a job id.
type SubmitResponse struct {
	Accepted bool   `json:"accepted"`
	JobID    int64  `json:"job_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// CancelRequest cancels a job by identifier.
type CancelRequest struct {
	ID int64 `json:"id"`
}

// CancelResponse reports the cancellation outcome.
type CancelResponse struct {
	Canceled bool   `json:"canceled"`
	JobID    int64  `json:"job_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	SocketPath  string         `json:"socket_path"`
	LockPath    string         `json:"lock_path"`
	JobDBPath   string         `json:"job_db_path"`
	Queues      []string       `json:"queues"`
	JobStats    map[string]int `json:"job_stats"`
	Degraded    bool           `json:"degraded"`
	DegradedFor string         `json:"degraded_for"`
}

// JobSummary is the wire representation of a stored job.
type JobSummary struct {
	ID          int64    `json:"id"`
	Queue       string   `json:"queue"`
	Program     string   `json:"program"`
	Arguments   []string `json:"arguments"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Error       string   `json:"error"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// JobListRequest filters job listing by status.
type JobListRequest struct {
	Statuses []string `json:"statuses"`
}

// JobListResponse contains stored jobs.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// JobClearRequest removes all stored jobs.
type JobClearRequest struct{}

// JobClearResponse reports number of removed jobs.
type JobClearResponse struct {
	Removed int64 `json:"removed"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
