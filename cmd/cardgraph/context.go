package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cardgraph/internal/config"
	"cardgraph/internal/lifecycle"
	"cardgraph/internal/logging"
	"cardgraph/internal/sessions"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withStore opens the session database for the duration of fn. CLI
// commands operate on the same database and signal directory the daemon
// does, so state changes made here are visible to a running daemon.
func (c *commandContext) withStore(fn func(*config.Config, *sessions.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := sessions.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// withManager layers a lifecycle manager over withStore for commands
// that change session state.
func (c *commandContext) withManager(fn func(*config.Config, *sessions.Store, *lifecycle.Manager) error) error {
	return c.withStore(func(cfg *config.Config, store *sessions.Store) error {
		manager, err := lifecycle.NewManager(cfg, store, logging.NewNop())
		if err != nil {
			return err
		}
		return fn(cfg, store, manager)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
