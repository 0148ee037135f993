package envcheck_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"cardgraph/internal/envcheck"
	"cardgraph/internal/sessions"
	"cardgraph/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	results := envcheck.CheckBinaries([]envcheck.Requirement{
		{Name: "Shell", Command: "sh", Description: "always present"},
		{Name: "Ghost", Command: "definitely-not-a-real-binary-xyz", Optional: true},
		{Name: "Blank", Command: "  "},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected sh to resolve: %#v", results[0])
	}
	if results[1].Available || !strings.Contains(results[1].Detail, "not found") {
		t.Fatalf("expected ghost binary missing: %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected blank command rejected: %#v", results[2])
	}
}

func TestCheckWorkerScript(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithManagerStub())

	result := envcheck.CheckWorkerScript(cfg)
	if !result.Passed {
		t.Fatalf("expected stub script to pass: %#v", result)
	}

	missing := testsupport.NewConfig(t)
	result = envcheck.CheckWorkerScript(missing)
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing script to fail: %#v", result)
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := envcheck.CheckDirectoryAccess("Archive directory", dir)
	if !result.Passed {
		t.Fatalf("expected temp dir to pass: %#v", result)
	}

	result = envcheck.CheckDirectoryAccess("Archive directory", filepath.Join(dir, "missing"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing dir to fail: %#v", result)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result = envcheck.CheckDirectoryAccess("Archive directory", file)
	if result.Passed || !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("expected plain file to fail: %#v", result)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := envcheck.CheckDiskSpace(t.TempDir(), 1)
	if result.Detail == "" {
		t.Fatal("expected free/required detail")
	}

	result = envcheck.CheckDiskSpace(filepath.Join(t.TempDir(), "missing"), 1)
	if result.Passed {
		t.Fatalf("expected statfs failure for missing path: %#v", result)
	}
}

func TestCheckCPUHeadroom(t *testing.T) {
	result := envcheck.CheckCPUHeadroom(runtime.NumCPU())
	if result.Passed {
		t.Fatalf("ceiling at all cores leaves no headroom: %#v", result)
	}
	if runtime.NumCPU() > 1 {
		result = envcheck.CheckCPUHeadroom(1)
		if !result.Passed {
			t.Fatalf("expected headroom with single-core ceiling: %#v", result)
		}
	}
}

func TestRunAllAndHealthy(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithManagerStub())
	cfg.Workers.PythonBinary = "sh"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	settings := &sessions.Settings{
		BaseArchiveDir: t.TempDir(),
		MinFreeDiskGB:  1,
		MaxCPUCores:    1,
	}

	report := envcheck.RunAll(cfg, settings)
	if len(report.Binaries) == 0 || len(report.Checks) == 0 {
		t.Fatalf("expected populated report: %#v", report)
	}

	for _, check := range report.Checks {
		if check.Name == "Worker script" && !check.Passed {
			t.Fatalf("expected worker script check to pass: %#v", check)
		}
	}
}
