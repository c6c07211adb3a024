// Package server contains the request router and the startup arbiter.
//
// The Router is the daemon's dispatch core: every client request enters a
// single ordered stream tagged with its originating connection, and exactly
// one response leaves on that same connection. Connection readers block on
// Dispatch when the stream is saturated; accepting new connections never
// does.
//
// The Arbiter resolves the startup race where another daemon instance
// already owns the listening endpoint. A ConflictPolicy supplies the
// decision (keep the existing instance, or replace it); the arbiter records
// the transition and the daemon acts on the outcome.
package server
