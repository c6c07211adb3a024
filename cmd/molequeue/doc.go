// Command molequeue is the CLI and daemon entry point. Most subcommands talk
// to a running daemon over its Unix socket; `molequeue daemon` runs the
// daemon itself in the foreground.
package main
