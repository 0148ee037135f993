package signals_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cardgraph/internal/signals"
)

func newDir(t *testing.T) *signals.Dir {
	t.Helper()
	dir, err := signals.NewDir(filepath.Join(t.TempDir(), "signals"))
	if err != nil {
		t.Fatalf("NewDir failed: %v", err)
	}
	return dir
}

func TestMarkerNaming(t *testing.T) {
	dir := newDir(t)

	cases := []struct {
		got  string
		want string
	}{
		{dir.LockPath(7), "session_7.lock"},
		{dir.StopPath(7), "stop_7.signal"},
		{dir.CancelPath(7), "cancel_7.signal"},
		{dir.StartRequestPath(7), "start_7.request"},
		{dir.OutputPath(7), "session_7.out"},
	}
	for _, tc := range cases {
		if filepath.Base(tc.got) != tc.want {
			t.Fatalf("expected marker %s, got %s", tc.want, tc.got)
		}
		if filepath.Dir(tc.got) != dir.Root() {
			t.Fatalf("marker %s outside signal dir", tc.got)
		}
	}
}

func TestDropAndClearMarkers(t *testing.T) {
	dir := newDir(t)

	if dir.HasLock(3) {
		t.Fatal("expected no lock initially")
	}
	if err := dir.DropStop(3); err != nil {
		t.Fatalf("DropStop failed: %v", err)
	}
	if err := dir.DropStop(3); err != nil {
		t.Fatalf("DropStop must be idempotent: %v", err)
	}
	if err := dir.DropCancel(3); err != nil {
		t.Fatalf("DropCancel failed: %v", err)
	}
	if err := dir.DropStartRequest(3); err != nil {
		t.Fatalf("DropStartRequest failed: %v", err)
	}

	payload, err := os.ReadFile(dir.StartRequestPath(3))
	if err != nil {
		t.Fatalf("read start request: %v", err)
	}
	if _, err := time.Parse("2006-01-02 15:04:05", strings.TrimSpace(string(payload))); err != nil {
		t.Fatalf("expected timestamp payload, got %q: %v", payload, err)
	}

	if err := dir.ClearAll(3); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	for _, path := range []string{dir.StopPath(3), dir.CancelPath(3), dir.StartRequestPath(3)} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed", path)
		}
	}
	if err := dir.ClearAll(3); err != nil {
		t.Fatalf("ClearAll must tolerate missing markers: %v", err)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	dir := newDir(t)

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired, err := dir.AcquireLock(11)
			if err != nil {
				t.Errorf("AcquireLock failed: %v", err)
				return
			}
			if acquired {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one lock winner, got %d", wins)
	}
	if !dir.HasLock(11) {
		t.Fatal("expected lock to exist after acquisition")
	}

	if err := dir.ReleaseLock(11); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if dir.HasLock(11) {
		t.Fatal("expected lock removed")
	}
	if err := dir.ReleaseLock(11); err != nil {
		t.Fatalf("ReleaseLock must tolerate missing lock: %v", err)
	}
}

func TestAcquireAndLaunchCapturesOutputAndClearsLock(t *testing.T) {
	dir := newDir(t)

	started, err := dir.AcquireAndLaunch(signals.LaunchSpec{
		SessionID: 21,
		Argv:      []string{"sh", "-c", "echo worker says hi"},
	})
	if err != nil {
		t.Fatalf("AcquireAndLaunch failed: %v", err)
	}
	if !started {
		t.Fatal("expected launch to start")
	}

	deadline := time.Now().Add(5 * time.Second)
	for dir.HasLock(21) {
		if time.Now().After(deadline) {
			t.Fatal("lock not released after worker exit")
		}
		time.Sleep(20 * time.Millisecond)
	}

	output, err := os.ReadFile(dir.OutputPath(21))
	if err != nil {
		t.Fatalf("read output capture: %v", err)
	}
	if string(output) != "worker says hi\n" {
		t.Fatalf("unexpected output capture %q", output)
	}
}

func TestAcquireAndLaunchRefusesHeldLock(t *testing.T) {
	dir := newDir(t)

	if acquired, err := dir.AcquireLock(5); err != nil || !acquired {
		t.Fatalf("seed lock: acquired=%v err=%v", acquired, err)
	}

	started, err := dir.AcquireAndLaunch(signals.LaunchSpec{
		SessionID: 5,
		Argv:      []string{"true"},
	})
	if err != nil {
		t.Fatalf("AcquireAndLaunch failed: %v", err)
	}
	if started {
		t.Fatal("expected launch to refuse a held lock")
	}
}

func TestAcquireAndLaunchReleasesLockOnSpawnFailure(t *testing.T) {
	dir := newDir(t)

	if _, err := dir.AcquireAndLaunch(signals.LaunchSpec{SessionID: 8}); err == nil {
		t.Fatal("expected error for empty command")
	}
	if dir.HasLock(8) {
		t.Fatal("expected no lock after rejected command")
	}
}

func TestLockAge(t *testing.T) {
	dir := newDir(t)

	if _, ok := dir.LockAge(2); ok {
		t.Fatal("expected no age without a lock")
	}
	if acquired, err := dir.AcquireLock(2); err != nil || !acquired {
		t.Fatalf("AcquireLock failed: acquired=%v err=%v", acquired, err)
	}
	age, ok := dir.LockAge(2)
	if !ok {
		t.Fatal("expected age for held lock")
	}
	if age < 0 || age > time.Minute {
		t.Fatalf("implausible lock age %v", age)
	}
}
