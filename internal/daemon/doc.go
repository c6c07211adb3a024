// Package daemon coordinates the dispatch core behind the IPC surface.
//
// A Daemon owns the single-instance lock, the queue manager, the job store,
// and the request router. Start arbitrates lock conflicts with any already
// running instance before the router consumes its first request: the
// configured conflict policy either keeps the existing instance (Start
// returns ErrAlreadyRunning) or replaces it, in which case the prior process
// is terminated and its stale socket and pid files are cleared.
//
// The daemon deliberately knows nothing about the wire protocol; the ipc
// package feeds Dispatch and reads Status.
package daemon
