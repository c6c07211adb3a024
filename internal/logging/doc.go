// Package logging assembles structured slog loggers and formatting helpers
// used across MoleQueue services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes attribute aliases plus standardized field keys so the
// daemon, router, and IPC layers tag log lines the same way. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
