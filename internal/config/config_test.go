package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardgraph/internal/config"
)

func TestLoadDefaultsUseEnvSecretAndExpandPaths(t *testing.T) {
	t.Setenv("CARDGRAPH_SCHEDULER_SECRET", "test-secret")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "cardgraph")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.SignalDir != filepath.Join(wantData, "signals") {
		t.Fatalf("unexpected signal dir: %q", cfg.Paths.SignalDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7519" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Scheduler.Secret != "test-secret" {
		t.Fatalf("expected secret from env, got %q", cfg.Scheduler.Secret)
	}
	if cfg.Scheduler.TickIntervalSeconds != 60 {
		t.Fatalf("unexpected tick interval: %d", cfg.Scheduler.TickIntervalSeconds)
	}
	if cfg.Workers.ManagerScript != "transcription_manager.py" {
		t.Fatalf("unexpected manager script: %q", cfg.Workers.ManagerScript)
	}
	if cfg.ManagerScriptPath() != filepath.Join(cfg.Workers.ToolsDir, "transcription_manager.py") {
		t.Fatalf("unexpected manager script path: %q", cfg.ManagerScriptPath())
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadRequiresSchedulerSecret(t *testing.T) {
	t.Setenv("CARDGRAPH_SCHEDULER_SECRET", "")
	t.Setenv("HOME", t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when scheduler secret missing")
	}
	if !strings.Contains(err.Error(), "scheduler.secret") {
		t.Fatalf("expected error to name scheduler.secret, got %v", err)
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		`api_token = "abc"`,
		"",
		"[scheduler]",
		`secret = "s3cret"`,
		"tick_interval_seconds = 30",
		"",
		"[logging]",
		`format = "json"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q to exist, got resolved=%q exists=%v", path, resolved, exists)
	}
	if cfg.Scheduler.Secret != "s3cret" {
		t.Fatalf("unexpected secret: %q", cfg.Scheduler.Secret)
	}
	if cfg.Scheduler.TickIntervalSeconds != 30 {
		t.Fatalf("unexpected tick interval: %d", cfg.Scheduler.TickIntervalSeconds)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected format: %q", cfg.Logging.Format)
	}
	if cfg.Paths.APIToken != "abc" {
		t.Fatalf("unexpected api token: %q", cfg.Paths.APIToken)
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[scheduler]") {
		t.Fatal("expected sample to contain a [scheduler] section")
	}
}

func TestEnsureDirectoriesCreatesAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.SignalDir = filepath.Join(base, "signals")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.SignalDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q, err=%v", dir, err)
		}
	}
}
