// Package workerctl supervises a single long-running worker process in the
// style of a SysV init script: start it detached, stop it with a catchable
// signal, ask whether it is alive, restart it. State lives entirely on the
// filesystem; every operation re-derives it from the pid record.
package workerctl

import (
	"log/slog"

	"github.com/loykin/workerctl/internal/history"
	"github.com/loykin/workerctl/internal/supervisor"
)

// Re-export core types for embedding. These are aliases, so conversions are
// zero-cost.

type Options = supervisor.Options

type Status = supervisor.Status

type Outcome = supervisor.Outcome

const (
	OutcomeStarted        = supervisor.OutcomeStarted
	OutcomeAlreadyRunning = supervisor.OutcomeAlreadyRunning
	OutcomeStopped        = supervisor.OutcomeStopped
	OutcomeAlreadyStopped = supervisor.OutcomeAlreadyStopped
)

var (
	ErrPathNotFound         = supervisor.ErrPathNotFound
	ErrCommandNotFound      = supervisor.ErrCommandNotFound
	ErrCommandNotExecutable = supervisor.ErrCommandNotExecutable
)

// HistorySink receives lifecycle events; see internal/history for the
// bundled sinks.
type HistorySink = history.Sink

// Supervisor is a thin facade over internal/supervisor.
type Supervisor = supervisor.Supervisor

// New builds a supervisor for one worker. A nil logger falls back to
// slog.Default().
func New(opts Options, logger *slog.Logger) *Supervisor {
	return supervisor.New(opts, logger)
}
