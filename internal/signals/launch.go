package signals

import (
	"fmt"
	"os/exec"
	"strings"
)

// LaunchSpec describes the worker process to detach for a session.
type LaunchSpec struct {
	SessionID int64
	// Argv is the worker command line, binary first.
	Argv []string
}

// AcquireAndLaunch atomically claims the session lock and spawns the worker
// detached from the daemon. The worker's stdout and stderr are captured to
// the session output file, and the lock is removed by the wrapping shell
// when the worker exits, whether or not the daemon is still running.
//
// It reports false without error when the lock is already held. On spawn
// failure the lock is released so the session is not wedged.
func (d *Dir) AcquireAndLaunch(spec LaunchSpec) (bool, error) {
	if len(spec.Argv) == 0 {
		return false, fmt.Errorf("launch session %d: empty command", spec.SessionID)
	}

	acquired, err := d.AcquireLock(spec.SessionID)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}

	script := fmt.Sprintf(
		"%s > %s 2>&1; rm -f %s",
		shellJoin(spec.Argv),
		shellQuote(d.OutputPath(spec.SessionID)),
		shellQuote(d.LockPath(spec.SessionID)),
	)

	cmd := exec.Command("sh", "-c", script)
	cmd.SysProcAttr = sysProcAttrDetached()
	if err := cmd.Start(); err != nil {
		_ = d.ReleaseLock(spec.SessionID)
		return false, fmt.Errorf("launch session %d: %w", spec.SessionID, err)
	}

	// The shell owns the worker's lifetime now; reap it in the background
	// so the daemon never accumulates zombies.
	go func() { _ = cmd.Wait() }()

	return true, nil
}

func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " \t\n'\"\\$&|;<>()*?[]#~%!{}") {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
