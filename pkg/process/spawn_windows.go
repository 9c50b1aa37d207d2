//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setupProcessAttributes isolates the child in a new process group so console
// signals aimed at the supervisor do not reach it.
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessTree terminates p. Windows has no process-group kill without a
// job object, so only the child itself is terminated.
func killProcessTree(p *os.Process) error {
	if p == nil {
		return nil
	}
	err := p.Kill()
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
