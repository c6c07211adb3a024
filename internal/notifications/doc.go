// Package notifications delivers daemon events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The daemon uses it to surface conditions a detached process
// cannot report on a terminal: socket failures it survives in degraded mode
// and startup conflicts it resolves on its own.
//
// Extend this package if you need alternative transports; daemon code
// depends only on the Service interface.
package notifications
