// Package jobs persists submitted jobs in SQLite and exposes the job
// directory the request router dispatches against.
//
// The Store assigns process-wide job identifiers at insertion time, before
// the owning queue sees the job, so the submission acknowledgement can carry
// a committed identifier. Lookups are plain reads; all mutations are single
// statements so concurrent readers never observe partial state.
//
// Treat this package as the single source of truth for job semantics; when
// you add statuses or columns, update schema.sql and bump schemaVersion.
package jobs
