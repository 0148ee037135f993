package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWorkers(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SignalDir) == "" {
		c.Paths.SignalDir = defaultSignalDir
	}
	if c.Paths.SignalDir, err = expandPath(c.Paths.SignalDir); err != nil {
		return fmt.Errorf("paths.signal_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CARDGRAPH_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeWorkers() error {
	var err error
	if strings.TrimSpace(c.Workers.ToolsDir) == "" {
		c.Workers.ToolsDir = defaultToolsDir
	}
	if c.Workers.ToolsDir, err = expandPath(c.Workers.ToolsDir); err != nil {
		return fmt.Errorf("workers.tools_dir: %w", err)
	}
	c.Workers.ManagerScript = strings.TrimSpace(c.Workers.ManagerScript)
	if c.Workers.ManagerScript == "" {
		c.Workers.ManagerScript = defaultManagerScript
	}
	c.Workers.PythonBinary = strings.TrimSpace(c.Workers.PythonBinary)
	if c.Workers.PythonBinary == "" {
		c.Workers.PythonBinary = defaultPythonBinary
	}
	return nil
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.Secret = strings.TrimSpace(c.Scheduler.Secret)
	if c.Scheduler.Secret == "" {
		if value, ok := os.LookupEnv("CARDGRAPH_SCHEDULER_SECRET"); ok {
			c.Scheduler.Secret = strings.TrimSpace(value)
		}
	}
	if c.Scheduler.TickIntervalSeconds <= 0 {
		c.Scheduler.TickIntervalSeconds = defaultTickIntervalSeconds
	}
	if c.Scheduler.CleanupIntervalMins <= 0 {
		c.Scheduler.CleanupIntervalMins = defaultCleanupIntervalMins
	}
	if c.Scheduler.DeleteSignalWaitMsec <= 0 {
		c.Scheduler.DeleteSignalWaitMsec = defaultDeleteSignalWaitMsec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
