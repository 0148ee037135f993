package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.Secret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cardgraph/config.toml"
		}
		return fmt.Errorf("scheduler.secret is required. Set CARDGRAPH_SCHEDULER_SECRET env var or edit %s (create with 'cardgraph config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"scheduler.tick_interval_seconds":    c.Scheduler.TickIntervalSeconds,
		"scheduler.cleanup_interval_minutes": c.Scheduler.CleanupIntervalMins,
		"scheduler.delete_signal_wait_msec":  c.Scheduler.DeleteSignalWaitMsec,
	}); err != nil {
		return err
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
