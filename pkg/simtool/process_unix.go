//go:build unix

package simtool

import (
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup runs the command in its own process group so the
// simulator children of make are reached on cancellation.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends sig to the command's whole process group.
func killProcessGroup(cmd *exec.Cmd, sig os.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return cmd.Process.Signal(sig)
	}
	sigVal, ok := sig.(syscall.Signal)
	if !ok {
		return cmd.Process.Signal(sig)
	}
	return syscall.Kill(-pgid, sigVal)
}

// terminateSignal is sent to process groups when a run is cancelled.
var terminateSignal os.Signal = syscall.SIGTERM

// InterruptSignals returns the signals that cancel a run.
func InterruptSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}
