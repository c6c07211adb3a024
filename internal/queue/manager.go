package queue

import (
	"fmt"
	"log/slog"
	"sync"

	"molequeue/internal/config"
	"molequeue/internal/jobs"
)

// Manager owns the queue directory built from configuration. Lookups are
// safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	order  []string
	queues map[string]*Queue
}

// NewManager builds the queue directory from the configured queue
// definitions. Queue names must already be validated as unique.
func NewManager(cfg *config.Config, store *jobs.Store, logger *slog.Logger) (*Manager, error) {
	manager := &Manager{queues: make(map[string]*Queue, len(cfg.Queues))}
	for _, def := range cfg.Queues {
		if _, exists := manager.queues[def.Name]; exists {
			return nil, fmt.Errorf("duplicate queue %q", def.Name)
		}
		q := New(def.Name, def.Description, def.MaxPending, store, logger)
		if def.Paused {
			q.Pause()
		}
		manager.queues[def.Name] = q
		manager.order = append(manager.order, def.Name)
	}
	return manager, nil
}

// Lookup returns the queue registered under name.
func (m *Manager) Lookup(name string) (*Queue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queues[name]
	return q, ok
}

// Names returns queue names in configuration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Queues returns the queues in configuration order.
func (m *Manager) Queues() []*Queue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Queue, 0, len(m.order))
	for _, name := range m.order {
		result = append(result, m.queues[name])
	}
	return result
}
