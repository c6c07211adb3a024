// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Queue
// and job operations do not run in the RPC handler: each handler feeds the
// daemon's dispatch stream with a per-request reply connection and blocks
// until the stream answers, so every request yields exactly one response on
// the connection it arrived on. Control operations (status, job listing,
// shutdown) are answered directly against the daemon.
//
// Reuse these types when adding new RPC endpoints to keep the protocol
// stable and compatible with existing command implementations.
package ipc
