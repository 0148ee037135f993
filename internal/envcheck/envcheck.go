// Package envcheck verifies the runtime environment before recordings are
// scheduled: worker tooling, capture binaries, directory access, CPU
// headroom, and free disk under the archive root.
package envcheck

import (
	"fmt"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"cardgraph/internal/config"
	"cardgraph/internal/sessions"
)

// Result reports the outcome of a single environment check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Report bundles the full environment evaluation.
type Report struct {
	Binaries []BinaryStatus `json:"binaries"`
	Checks   []Result       `json:"checks"`
}

// Healthy reports whether every non-optional probe passed.
func (r *Report) Healthy() bool {
	for _, binary := range r.Binaries {
		if !binary.Optional && !binary.Available {
			return false
		}
	}
	for _, check := range r.Checks {
		if !check.Passed {
			return false
		}
	}
	return true
}

// RunAll executes every applicable environment check for the given config
// and settings.
func RunAll(cfg *config.Config, settings *sessions.Settings) *Report {
	if cfg == nil {
		return &Report{}
	}

	report := &Report{Binaries: CheckBinaries(systemRequirements(cfg))}

	report.Checks = append(report.Checks, CheckWorkerScript(cfg))
	report.Checks = append(report.Checks, CheckDirectoryAccess("Signal directory", cfg.Paths.SignalDir))
	report.Checks = append(report.Checks, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))

	if settings != nil {
		report.Checks = append(report.Checks, CheckDirectoryAccess("Archive directory", settings.BaseArchiveDir))
		report.Checks = append(report.Checks, CheckDiskSpace(settings.BaseArchiveDir, settings.MinFreeDiskGB))
		report.Checks = append(report.Checks, CheckCPUHeadroom(settings.MaxCPUCores))
	}

	return report
}

func systemRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Python",
			Command:     cfg.Workers.PythonBinary,
			Description: "Runs the recording and transcription worker",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Captures and segments the audio stream",
		},
		{
			Name:        "Whisper",
			Command:     "whisper",
			Description: "Transcribes finished segments",
			Optional:    true,
		},
	}
}

// CheckWorkerScript verifies the session manager script is present and
// readable.
func CheckWorkerScript(cfg *config.Config) Result {
	const name = "Worker script"
	path := cfg.ManagerScriptPath()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies the directory exists and is fully
// accessible.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies free space under the archive root meets the
// configured floor.
func CheckDiskSpace(path string, minFreeGB int) Result {
	const name = "Disk space"

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}

	free := stat.Bavail * uint64(stat.Bsize)
	floor := uint64(minFreeGB) * humanize.GiByte
	detail := fmt.Sprintf("%s free, %s required", humanize.IBytes(free), humanize.IBytes(floor))
	if free < floor {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCPUHeadroom verifies the host has at least one core beyond the
// worker's configured ceiling, so the NAS stays responsive mid-recording.
func CheckCPUHeadroom(maxWorkerCores int) Result {
	const name = "CPU headroom"

	available := runtime.NumCPU()
	detail := fmt.Sprintf("%d cores available, worker limited to %d", available, maxWorkerCores)
	if available <= maxWorkerCores {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
