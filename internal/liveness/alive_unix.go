//go:build !windows

package liveness

import (
	"errors"
	"syscall"
)

// PIDAlive returns true if a process with the given pid exists. EPERM means
// the process exists but belongs to another user, which still counts as alive.
func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
