// Package liveness decides whether the supervised worker is currently running.
// The pid record is the sole source of truth for "a start was attempted": when
// it is absent the worker is reported as stopped without consulting the
// process table. A record that points at a dead PID is stale, not an error.
package liveness

import (
	"errors"
	"fmt"
	"os"
)

// Probe checks a single pid record against the OS process table.
type Probe struct {
	// PIDFile is the path of the pid record.
	PIDFile string
	// VerifyStartTime guards against PID reuse by comparing the persisted
	// process start time with the live one. Records without meta are accepted
	// as-is even when verification is on.
	VerifyStartTime bool
}

// Alive reports whether the worker is running. A missing record means not
// running; an unreadable or corrupt record is surfaced as an error.
func (p Probe) Alive() (bool, error) {
	rec, err := ReadRecord(p.PIDFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if p.VerifyStartTime && rec.StartUnix > 0 {
		if cur := ProcStartUnix(rec.PID); cur > 0 && cur != rec.StartUnix {
			// PID reused by an unrelated process after the worker died.
			return false, nil
		}
	}
	return PIDAlive(rec.PID), nil
}

// Describe returns a human-readable description of the probe for diagnostics.
func (p Probe) Describe() string { return fmt.Sprintf("pidfile:%s", p.PIDFile) }
