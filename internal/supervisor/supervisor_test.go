package supervisor

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/loykin/workerctl/internal/liveness"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix-only test")
	}
}

// makeRunner creates a worker directory with a run.sh executing the given
// shell body.
func makeRunner(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0o755); err != nil {
		t.Fatalf("write run.sh: %v", err)
	}
	return dir
}

func waitUntil(d, step time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(step)
	}
	return cond()
}

// reapPID makes sure no worker outlives the test.
func reapPID(t *testing.T, pid int) {
	t.Cleanup(func() {
		if pid > 0 {
			_ = kill(pid)
		}
	})
}

func newTestSupervisor(t *testing.T, runner string) *Supervisor {
	t.Helper()
	return New(Options{RunnerPath: runner, Settle: 50 * time.Millisecond}, nil)
}

func startedPID(t *testing.T, s *Supervisor) int {
	t.Helper()
	st, err := s.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Running || st.PID <= 0 {
		t.Fatalf("expected running worker, got %+v", st)
	}
	reapPID(t, st.PID)
	return st.PID
}

func TestStartIsIdempotent(t *testing.T) {
	requireUnix(t)
	runner := makeRunner(t, "sleep 30")
	s := newTestSupervisor(t, runner)
	ctx := context.Background()

	out, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out != OutcomeStarted {
		t.Fatalf("first Start outcome = %v", out)
	}
	pid := startedPID(t, s)

	out, err = s.Start(ctx)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if out != OutcomeAlreadyRunning {
		t.Fatalf("second Start outcome = %v, want already running", out)
	}
	rec, err := liveness.ReadRecord(filepath.Join(runner, DefaultStateDirName, PIDFileName))
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if rec.PID != pid {
		t.Fatalf("second Start replaced pid record: got %d want %d", rec.PID, pid)
	}

	if _, err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	requireUnix(t)
	runner := makeRunner(t, "sleep 30")
	s := newTestSupervisor(t, runner)
	ctx := context.Background()

	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := startedPID(t, s)

	out, err := s.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if out != OutcomeStopped {
		t.Fatalf("first Stop outcome = %v", out)
	}
	pidfile := filepath.Join(runner, DefaultStateDirName, PIDFileName)
	if _, err := os.Stat(pidfile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid record must be removed after Stop, stat err = %v", err)
	}
	if !waitUntil(2*time.Second, 20*time.Millisecond, func() bool { return !liveness.PIDAlive(pid) }) {
		t.Fatalf("worker %d still alive after SIGTERM", pid)
	}

	out, err = s.Stop(ctx)
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if out != OutcomeAlreadyStopped {
		t.Fatalf("second Stop outcome = %v, want already stopped", out)
	}
	if _, err := os.Stat(pidfile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid record reappeared: stat err = %v", err)
	}
}

func TestStatusReflectsLivenessNotRecordPresence(t *testing.T) {
	requireUnix(t)
	runner := makeRunner(t, "sleep 30")
	s := newTestSupervisor(t, runner)

	// Fabricate a stale record pointing at an exited process.
	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start helper: %v", err)
	}
	deadPID := cmd.Process.Pid
	_ = cmd.Wait()

	stateDir := filepath.Join(runner, DefaultStateDirName)
	if err := os.MkdirAll(stateDir, 0o750); err != nil {
		t.Fatalf("mkdir state: %v", err)
	}
	if err := (liveness.Record{PID: deadPID}).WriteFile(filepath.Join(stateDir, PIDFileName)); err != nil {
		t.Fatalf("write record: %v", err)
	}

	st, err := s.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Fatalf("stale record must report stopped, got %+v", st)
	}
}

func TestRestartRoundTrip(t *testing.T) {
	requireUnix(t)
	runner := makeRunner(t, "sleep 30")
	s := newTestSupervisor(t, runner)
	ctx := context.Background()

	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	firstPID := startedPID(t, s)

	out, err := s.Restart(ctx)
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if out != OutcomeStarted {
		t.Fatalf("Restart outcome = %v", out)
	}
	secondPID := startedPID(t, s)
	if secondPID == firstPID {
		t.Fatalf("Restart must spawn a new worker, pid %d unchanged", firstPID)
	}

	if _, err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStartMissingRunnerPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	stateDir := filepath.Join(t.TempDir(), "state")
	s := New(Options{RunnerPath: missing, StatePath: stateDir}, nil)

	_, err := s.Start(context.Background())
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("err = %v, want ErrPathNotFound", err)
	}
	if _, serr := os.Stat(stateDir); !errors.Is(serr, os.ErrNotExist) {
		t.Fatalf("state dir must be untouched on path failure, stat err = %v", serr)
	}
}

func TestForceBypassesGuard(t *testing.T) {
	requireUnix(t)
	runner := makeRunner(t, "sleep 30")
	ctx := context.Background()

	s := newTestSupervisor(t, runner)
	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	firstPID := startedPID(t, s)

	forced := New(Options{RunnerPath: runner, Force: true}, nil)
	out, err := forced.Start(ctx)
	if err != nil {
		t.Fatalf("forced Start: %v", err)
	}
	if out != OutcomeStarted {
		t.Fatalf("forced Start outcome = %v, want started", out)
	}
	secondPID := startedPID(t, forced)
	if secondPID == firstPID {
		t.Fatalf("forced Start must spawn a second worker")
	}
	// The first worker is orphaned by design; reapPID cleans it up.
	if !liveness.PIDAlive(firstPID) {
		t.Fatalf("orphaned worker %d should still be alive", firstPID)
	}

	if _, err := forced.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStartOverrideCommandValidation(t *testing.T) {
	requireUnix(t)
	runner := makeRunner(t, "sleep 30")
	ctx := context.Background()

	s := New(Options{RunnerPath: runner, Command: "definitely-not-a-real-command-zz"}, nil)
	if _, err := s.Start(ctx); !errors.Is(err, ErrCommandNotFound) {
		t.Fatalf("err = %v, want ErrCommandNotFound", err)
	}

	plain := filepath.Join(runner, "data.txt")
	if err := os.WriteFile(plain, []byte("not a program"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s = New(Options{RunnerPath: runner, Command: "./data.txt"}, nil)
	if _, err := s.Start(ctx); !errors.Is(err, ErrCommandNotExecutable) {
		t.Fatalf("err = %v, want ErrCommandNotExecutable", err)
	}

	// Nothing was spawned and no record was created.
	if _, err := os.Stat(filepath.Join(runner, DefaultStateDirName, PIDFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid record must not exist after failed validation, stat err = %v", err)
	}

	s = New(Options{RunnerPath: runner, Command: "sleep 30"}, nil)
	out, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start with PATH command: %v", err)
	}
	if out != OutcomeStarted {
		t.Fatalf("outcome = %v", out)
	}
	startedPID(t, s)
	if _, err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestEventLogAccumulates(t *testing.T) {
	requireUnix(t)
	runner := makeRunner(t, "echo worker-output; sleep 30")
	s := newTestSupervisor(t, runner)
	ctx := context.Background()

	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	startedPID(t, s)
	if _, err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	logPath := filepath.Join(runner, DefaultStateDirName, LogFileName)
	ok := waitUntil(2*time.Second, 20*time.Millisecond, func() bool {
		b, err := os.ReadFile(logPath)
		return err == nil && strings.Contains(string(b), "worker-output")
	})
	if !ok {
		t.Fatalf("worker stdout not appended to event log")
	}
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(b)
	host, _ := os.Hostname()
	for _, want := range []string{"starting worker", "stopping worker", "worker already stopped", host} {
		if !strings.Contains(content, want) {
			t.Errorf("event log missing %q:\n%s", want, content)
		}
	}
}

func TestStopWaitEscalatesToKill(t *testing.T) {
	requireUnix(t)
	// Worker ignores SIGTERM; only SIGKILL can end it.
	runner := makeRunner(t, "trap '' TERM\nsleep 30")
	s := New(Options{RunnerPath: runner, StopWait: 300 * time.Millisecond}, nil)
	ctx := context.Background()

	if _, err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pid := startedPID(t, s)

	out, err := s.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if out != OutcomeStopped {
		t.Fatalf("Stop outcome = %v", out)
	}
	if !waitUntil(2*time.Second, 20*time.Millisecond, func() bool { return !liveness.PIDAlive(pid) }) {
		t.Fatalf("worker %d survived stop-wait escalation", pid)
	}
}

func TestStatusDoesNotCreateStateDir(t *testing.T) {
	runner := t.TempDir()
	s := New(Options{RunnerPath: runner}, nil)

	st, err := s.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Running {
		t.Fatalf("no record must mean stopped, got %+v", st)
	}
	if _, serr := os.Stat(filepath.Join(runner, DefaultStateDirName)); !errors.Is(serr, os.ErrNotExist) {
		t.Fatalf("status must not create the state dir, stat err = %v", serr)
	}
}
