package testsupport

import (
	"path/filepath"
	"testing"

	"molequeue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.Socket = filepath.Join(base, "molequeue.sock")
	cfgVal.Server.OnConflict = config.OnConflictExit
	cfgVal.Server.ConflictTimeoutSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithQueues replaces the queue directory on the test config.
func WithQueues(queues ...config.QueueDef) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queues = queues
	}
}

// WithOnConflict overrides the startup conflict policy on the test config.
func WithOnConflict(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.OnConflict = policy
	}
}

// WithDispatchBuffer overrides the dispatch channel capacity.
func WithDispatchBuffer(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.DispatchBuffer = size
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
