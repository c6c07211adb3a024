package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateQueues(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	switch c.Server.OnConflict {
	case OnConflictExit, OnConflictReplace, OnConflictAsk:
	default:
		return fmt.Errorf("server.on_conflict must be one of %q, %q, %q (got %q)",
			OnConflictExit, OnConflictReplace, OnConflictAsk, c.Server.OnConflict)
	}
	if c.Server.ConflictTimeoutSeconds < 0 {
		return errors.New("server.conflict_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateQueues() error {
	seen := make(map[string]struct{}, len(c.Queues))
	for _, q := range c.Queues {
		if q.Name == "" {
			return errors.New("queues: name must be set")
		}
		if _, ok := seen[q.Name]; ok {
			return fmt.Errorf("queues: duplicate queue name %q", q.Name)
		}
		seen[q.Name] = struct{}{}
		if q.MaxPending < 0 {
			return fmt.Errorf("queues: max_pending for %q must not be negative", q.Name)
		}
	}
	return nil
}
