package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	Socket  string `toml:"socket"`
}

// Server contains configuration for the request router and startup arbitration.
type Server struct {
	// OnConflict selects the startup decision when another instance already
	// owns the listening endpoint: "exit", "replace", or "ask".
	OnConflict             string `toml:"on_conflict"`
	ConflictTimeoutSeconds int    `toml:"conflict_timeout_seconds"`
	DispatchBuffer         int    `toml:"dispatch_buffer"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// QueueDef declares a submittable queue hosted by the daemon.
type QueueDef struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	MaxPending  int    `toml:"max_pending"`
	Paused      bool   `toml:"paused"`
}

// Config encapsulates all configuration values for MoleQueue.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and the IPC socket path
//   - Server: dispatch buffering and startup conflict policy
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
//   - Queues: the queue directory served to clients
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Queues        []QueueDef    `toml:"queues"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/molequeue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("molequeue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the unix socket path the daemon listens on.
func (c *Config) SocketPath() string {
	if strings.TrimSpace(c.Paths.Socket) != "" {
		return c.Paths.Socket
	}
	return filepath.Join(c.Paths.DataDir, "molequeue.sock")
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "molequeued.lock")
}

// PIDPath returns the daemon pid file path.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "molequeue.pid")
}

// DatabasePath returns the job store database path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
