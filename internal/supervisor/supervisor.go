// Package supervisor implements SysV-init-style lifecycle control for a
// single long-running worker process. Nothing is held in memory between
// invocations: every operation re-derives state from the pid record under the
// state directory and performs at most one spawn or one signal delivery.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/workerctl/internal/history"
	"github.com/loykin/workerctl/internal/liveness"
)

const (
	// DefaultStateDirName is the subdirectory of the runner path that holds
	// the pid record and the event log when no explicit state dir is given.
	DefaultStateDirName = ".workerctl"
	// DefaultSettle is the grace period between the stop and start phases of
	// a restart, giving the OS time to release the worker's resources.
	DefaultSettle = time.Second

	// PIDFileName and LogFileName are fixed names within the state dir.
	PIDFileName = "worker.pid"
	LogFileName = "worker.log"
)

// Options configures one supervisor invocation. RunnerPath is required;
// everything else has a default.
type Options struct {
	RunnerPath string        // worker working directory (must exist)
	StatePath  string        // state dir; default <RunnerPath>/.workerctl
	Command    string        // override launch command; default DefaultCommand
	Force      bool          // skip the already-running guard on Start
	Settle     time.Duration // restart grace period; default DefaultSettle
	StopWait   time.Duration // >0 enables wait-and-escalate after SIGTERM
	VerifyPID  bool          // persist and verify process start time
	Env        []string      // worker environment; inherits ours when empty
}

func (o *Options) normalize() {
	if o.StatePath == "" {
		o.StatePath = filepath.Join(o.RunnerPath, DefaultStateDirName)
	}
	if o.Settle <= 0 {
		o.Settle = DefaultSettle
	}
}

// Outcome distinguishes the successful results of a lifecycle operation.
// "Already running" and "already stopped" are informational successes, not
// errors.
type Outcome int

const (
	OutcomeStarted Outcome = iota
	OutcomeAlreadyRunning
	OutcomeStopped
	OutcomeAlreadyStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeAlreadyRunning:
		return "already running"
	case OutcomeStopped:
		return "stopped"
	case OutcomeAlreadyStopped:
		return "already stopped"
	default:
		return "unknown"
	}
}

// Status is the read-only answer of the status operation.
type Status struct {
	Running bool `json:"running"`
	PID     int  `json:"pid,omitempty"`
}

// Supervisor owns the persisted worker state for one runner directory.
type Supervisor struct {
	opts    Options
	log     *slog.Logger
	events  eventLog
	history history.Sink
}

// New builds a supervisor for the given options. A nil logger falls back to
// slog.Default().
func New(opts Options, logger *slog.Logger) *Supervisor {
	opts.normalize()
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		opts:   opts,
		log:    logger,
		events: newEventLog(filepath.Join(opts.StatePath, LogFileName)),
	}
}

// SetHistory attaches a best-effort lifecycle event sink. Sink failures are
// logged and never fail the operation.
func (s *Supervisor) SetHistory(sink history.Sink) { s.history = sink }

func (s *Supervisor) pidFile() string { return filepath.Join(s.opts.StatePath, PIDFileName) }

func (s *Supervisor) probe() liveness.Probe {
	return liveness.Probe{PIDFile: s.pidFile(), VerifyStartTime: s.opts.VerifyPID}
}

// Status reports whether the worker is running based purely on the liveness
// check. It mutates nothing, not even a missing state directory.
func (s *Supervisor) Status() (Status, error) {
	alive, err := s.probe().Alive()
	if err != nil {
		return Status{}, err
	}
	if !alive {
		return Status{}, nil
	}
	rec, err := liveness.ReadRecord(s.pidFile())
	if err != nil {
		// Record disappeared between the probe and this read.
		return Status{}, nil
	}
	return Status{Running: true, PID: rec.PID}, nil
}

// Start launches the worker detached in the background and persists its PID,
// overwriting any prior record. When the worker is already running and Force
// is off, Start is a successful no-op.
func (s *Supervisor) Start(ctx context.Context) (Outcome, error) {
	fi, err := os.Stat(s.opts.RunnerPath)
	if err != nil || !fi.IsDir() {
		return 0, fmt.Errorf("%w: %s", ErrPathNotFound, s.opts.RunnerPath)
	}
	argv, err := resolveCommand(s.opts.RunnerPath, s.opts.Command)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(s.opts.StatePath, 0o750); err != nil {
		return 0, fmt.Errorf("create state dir: %w", err)
	}

	if !s.opts.Force {
		alive, aerr := s.probe().Alive()
		if aerr != nil {
			s.log.Warn("unreadable pid record, assuming worker stopped", "error", aerr)
		}
		if alive {
			rec, _ := liveness.ReadRecord(s.pidFile())
			s.log.Info("worker already running", "pid", rec.PID)
			return OutcomeAlreadyRunning, nil
		}
	}

	if err := s.events.append("starting worker"); err != nil {
		return 0, fmt.Errorf("append event log: %w", err)
	}
	out, err := s.events.open()
	if err != nil {
		return 0, fmt.Errorf("open event log: %w", err)
	}
	defer func() { _ = out.Close() }()

	// #nosec G204 -- argv was validated by resolveCommand
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.opts.RunnerPath
	cmd.Stdout = out
	cmd.Stderr = out
	if len(s.opts.Env) > 0 {
		cmd.Env = s.opts.Env
	}
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("launch worker: %w", err)
	}
	pid := cmd.Process.Pid

	rec := liveness.Record{PID: pid}
	if s.opts.VerifyPID {
		rec.StartUnix = liveness.ProcStartUnix(pid)
	}
	if err := rec.WriteFile(s.pidFile()); err != nil {
		return 0, fmt.Errorf("persist pid record: %w", err)
	}
	// The worker reparents to init; we never wait on it.
	_ = cmd.Process.Release()

	s.log.Info("worker started", "pid", pid, "command", strings.Join(argv, " "))
	s.recordHistory(ctx, history.EventStart, pid)
	return OutcomeStarted, nil
}

// Stop signals the worker with a catchable termination signal if it is
// running and removes the pid record unconditionally. Stopping an already
// stopped worker is a successful no-op.
func (s *Supervisor) Stop(ctx context.Context) (Outcome, error) {
	if err := os.MkdirAll(s.opts.StatePath, 0o750); err != nil {
		return 0, fmt.Errorf("create state dir: %w", err)
	}
	alive, err := s.probe().Alive()
	if err != nil {
		// A corrupt record cannot be signaled; removal below self-heals it.
		s.log.Warn("unreadable pid record, treating worker as stopped", "error", err)
	}

	outcome := OutcomeAlreadyStopped
	if !alive {
		s.log.Info("worker already stopped")
		_ = s.events.append("worker already stopped")
	} else {
		rec, rerr := liveness.ReadRecord(s.pidFile())
		if rerr != nil {
			return 0, rerr
		}
		if err := s.events.append("stopping worker"); err != nil {
			return 0, fmt.Errorf("append event log: %w", err)
		}
		if terr := terminate(rec.PID); terr != nil {
			s.log.Warn("signal delivery failed", "pid", rec.PID, "error", terr)
		} else if s.opts.StopWait > 0 {
			s.awaitExit(rec.PID)
		}
		s.log.Info("worker signaled", "pid", rec.PID)
		s.recordHistory(ctx, history.EventStop, rec.PID)
		outcome = OutcomeStopped
	}

	if err := os.Remove(s.pidFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return outcome, fmt.Errorf("remove pid record: %w", err)
	}
	return outcome, nil
}

// awaitExit polls for the worker's exit until StopWait elapses, then
// escalates to a forced kill. This is an opt-in strengthening of the
// fire-and-forget default.
func (s *Supervisor) awaitExit(pid int) {
	deadline := time.Now().Add(s.opts.StopWait)
	for time.Now().Before(deadline) {
		if !liveness.PIDAlive(pid) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	if liveness.PIDAlive(pid) {
		s.log.Warn("worker did not exit within stop wait, killing", "pid", pid)
		_ = kill(pid)
	}
}

// Restart is Stop, a settle delay, then Start. It is not atomic: an
// interruption between the phases leaves the worker stopped.
func (s *Supervisor) Restart(ctx context.Context) (Outcome, error) {
	if _, err := s.Stop(ctx); err != nil {
		return 0, err
	}
	t := time.NewTimer(s.opts.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.C:
	}
	return s.Start(ctx)
}

func (s *Supervisor) recordHistory(ctx context.Context, typ history.EventType, pid int) {
	if s.history == nil {
		return
	}
	e := history.Event{
		Type:       typ,
		Runner:     s.opts.RunnerPath,
		PID:        pid,
		Hostname:   s.events.hostname,
		OccurredAt: time.Now().UTC(),
	}
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.history.Send(cctx, e); err != nil {
		s.log.Warn("history sink send failed", "type", string(typ), "error", err)
	}
}
