package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldConnID is the standardized structured logging key for connection identifiers.
	FieldConnID = "conn_id"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldQueue is the standardized structured logging key for queue names.
	FieldQueue = "queue"
	// FieldFingerprint is the standardized structured logging key for job fingerprints.
	FieldFingerprint = "fingerprint"
	// FieldEventType tags log lines with a machine-readable event class.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact carries the user-facing consequence of a warning.
	FieldImpact = "impact"
)
