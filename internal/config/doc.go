// Package config loads, validates, and normalizes the TOML configuration for
// the MoleQueue daemon and CLI. It owns default values, path expansion, and
// the derived filesystem locations (socket, lock, pid file, job database).
package config
