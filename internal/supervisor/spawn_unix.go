//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// detach runs the worker in its own session so it survives the supervisor
// exiting and is not tied to the caller's terminal.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// terminate asks the worker to shut down with a catchable signal.
func terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

// kill forcibly ends the worker. Used only by the opt-in stop escalation.
func kill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}
