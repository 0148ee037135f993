package signals

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Dir is a handle on the shared signal directory.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at path, creating it when absent.
func NewDir(path string) (*Dir, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("signal directory path is empty")
	}
	if err := os.MkdirAll(path, 0o777); err != nil {
		return nil, fmt.Errorf("create signal directory: %w", err)
	}
	return &Dir{root: path}, nil
}

// Root returns the signal directory path.
func (d *Dir) Root() string {
	return d.root
}

// LockPath returns the worker lock marker for a session.
func (d *Dir) LockPath(sessionID int64) string {
	return filepath.Join(d.root, fmt.Sprintf("session_%d.lock", sessionID))
}

// StopPath returns the graceful-stop signal marker for a session.
func (d *Dir) StopPath(sessionID int64) string {
	return filepath.Join(d.root, fmt.Sprintf("stop_%d.signal", sessionID))
}

// CancelPath returns the hard-cancel signal marker for a session.
func (d *Dir) CancelPath(sessionID int64) string {
	return filepath.Join(d.root, fmt.Sprintf("cancel_%d.signal", sessionID))
}

// StartRequestPath returns the privileged-launch request marker for a
// session.
func (d *Dir) StartRequestPath(sessionID int64) string {
	return filepath.Join(d.root, fmt.Sprintf("start_%d.request", sessionID))
}

// OutputPath returns the captured stdout+stderr file for a session's
// worker.
func (d *Dir) OutputPath(sessionID int64) string {
	return filepath.Join(d.root, fmt.Sprintf("session_%d.out", sessionID))
}

// HasLock reports whether a worker lock exists for the session.
func (d *Dir) HasLock(sessionID int64) bool {
	_, err := os.Stat(d.LockPath(sessionID))
	return err == nil
}

// LockAge returns how long ago the session lock was created, or false when
// no lock exists.
func (d *Dir) LockAge(sessionID int64) (time.Duration, bool) {
	info, err := os.Stat(d.LockPath(sessionID))
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// DropStop writes the stop signal the worker polls for. Writing is
// idempotent.
func (d *Dir) DropStop(sessionID int64) error {
	return d.touch(d.StopPath(sessionID))
}

// DropCancel writes the cancel signal the worker polls for.
func (d *Dir) DropCancel(sessionID int64) error {
	return d.touch(d.CancelPath(sessionID))
}

// DropStartRequest writes the launch request the privileged wrapper polls
// for. The wrapper reads the session id from the filename; the body is a
// timestamp kept for audit.
func (d *Dir) DropStartRequest(sessionID int64) error {
	path := d.StartRequestPath(sessionID)
	payload := time.Now().Format("2006-01-02 15:04:05") + "\n"
	if err := os.WriteFile(path, []byte(payload), 0o666); err != nil {
		return fmt.Errorf("write start request %s: %w", path, err)
	}
	return nil
}

// ClearAll removes every marker and the output capture for a session.
// Missing files are not an error.
func (d *Dir) ClearAll(sessionID int64) error {
	paths := []string{
		d.LockPath(sessionID),
		d.StopPath(sessionID),
		d.CancelPath(sessionID),
		d.StartRequestPath(sessionID),
		d.OutputPath(sessionID),
	}
	var firstErr error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", path, err)
			}
		}
	}
	return firstErr
}

// AcquireLock atomically creates the session lock. It reports false when
// another holder already owns it.
func (d *Dir) AcquireLock(sessionID int64) (bool, error) {
	file, err := os.OpenFile(d.LockPath(sessionID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o666)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create lock: %w", err)
	}
	fmt.Fprintf(file, "pid=%d\ncreated=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := file.Close(); err != nil {
		return false, fmt.Errorf("close lock: %w", err)
	}
	return true, nil
}

// ReleaseLock removes the session lock. Missing lock is not an error; the
// detached worker shell normally removes it on exit.
func (d *Dir) ReleaseLock(sessionID int64) error {
	if err := os.Remove(d.LockPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock: %w", err)
	}
	return nil
}

func (d *Dir) touch(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	now := time.Now()
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("chtimes %s: %w", path, err)
	}
	return nil
}

// sysProcAttrDetached configures a spawned worker to survive daemon
// restarts by detaching it into its own session.
func sysProcAttrDetached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
