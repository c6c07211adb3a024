package config

import "strings"

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir, &c.Paths.Socket} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Server.OnConflict = strings.ToLower(strings.TrimSpace(c.Server.OnConflict))
	if c.Server.OnConflict == "" {
		c.Server.OnConflict = defaultOnConflict
	}
	if c.Server.DispatchBuffer <= 0 {
		c.Server.DispatchBuffer = defaultDispatchBuffer
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}

	for i := range c.Queues {
		c.Queues[i].Name = strings.TrimSpace(c.Queues[i].Name)
	}
	if len(c.Queues) == 0 {
		c.Queues = Default().Queues
	}
	return nil
}
