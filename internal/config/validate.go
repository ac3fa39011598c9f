package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks field-level consistency. It is called by Parse so a bad
// file never reaches subscribers.
func (c *Config) Validate() error {
	if _, err := ParseDurationField("runner.timeout", c.Runner.Timeout); err != nil {
		return err
	}
	if c.Runner.MaxWorkers < 0 {
		return fmt.Errorf("runner.max_workers: must be >= 0")
	}
	if c.Runner.MaxRetries < 0 {
		return fmt.Errorf("runner.max_retries: must be >= 0")
	}

	if s := c.Storage; s != nil {
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			return err
		}
	}

	if n := c.Notify; n != nil && n.Enabled {
		if strings.TrimSpace(n.Token) == "" {
			return fmt.Errorf("notify.token: required when notify is enabled")
		}
		if n.ChatID == 0 {
			return fmt.Errorf("notify.chat_id: required when notify is enabled")
		}
	}

	if s := c.Schedule; s != nil && s.Enabled {
		if strings.TrimSpace(s.Spec) == "" {
			return fmt.Errorf("schedule.spec: required when schedule is enabled")
		}
		if tz := strings.TrimSpace(s.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("schedule.timezone: %w", err)
			}
		}
	}

	seen := make(map[string]bool, len(c.Tasks))
	for i, t := range c.Tasks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return fmt.Errorf("tasks[%d].name: required", i)
		}
		if seen[name] {
			return fmt.Errorf("tasks[%d].name: duplicate %q", i, name)
		}
		seen[name] = true
		if !t.Skip && strings.TrimSpace(t.Command) == "" {
			return fmt.Errorf("tasks[%d].command: required unless skip is set", i)
		}
	}
	return nil
}

// RunnerTimeout resolves the per-task timeout with its default.
func (c *Config) RunnerTimeout() time.Duration {
	d, err := ParseDurationOrDefault("runner.timeout", c.Runner.Timeout, 30*time.Second)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
