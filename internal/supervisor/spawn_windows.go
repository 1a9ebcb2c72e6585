//go:build windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// detach runs the worker detached from the supervisor's console.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminate ends the worker. Windows has no catchable SIGTERM equivalent for
// arbitrary processes, so this is the same as kill.
func terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func kill(pid int) error { return terminate(pid) }
