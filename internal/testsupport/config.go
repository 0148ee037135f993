// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cardgraph/internal/config"
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
	cfgVal.Paths.SignalDir = filepath.Join(base, "signals")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Workers.ToolsDir = filepath.Join(base, "tools")
	cfgVal.Scheduler.Secret = "test-secret"
	cfgVal.Scheduler.DeleteSignalWaitMsec = 10

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

// WithSchedulerSecret overrides the shared scheduler secret.
func WithSchedulerSecret(secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.Secret = secret
	}
}

// WithAPIToken sets the bearer token required by operator API routes.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithManagerStub writes a stub worker script into the tools directory so
// launch paths have a real file to exec.
func WithManagerStub() ConfigOption {
	return func(b *configBuilder) {
		if err := os.MkdirAll(b.cfg.Workers.ToolsDir, 0o755); err != nil {
			b.t.Fatalf("mkdir tools dir: %v", err)
		}
		target := filepath.Join(b.cfg.Workers.ToolsDir, b.cfg.Workers.ManagerScript)
		script := []byte("#!/bin/sh\nexit 0\n")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write manager stub: %v", err)
		}
	}
}
