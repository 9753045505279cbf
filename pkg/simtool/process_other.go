//go:build !unix

package simtool

import (
	"os"
	"os/exec"
)

// setProcessGroup is a no-op on non-Unix platforms.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup signals the process directly on non-Unix platforms.
func killProcessGroup(cmd *exec.Cmd, sig os.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	if sig == os.Kill {
		return cmd.Process.Kill()
	}
	return cmd.Process.Signal(sig)
}

var terminateSignal os.Signal = os.Kill

// InterruptSignals returns the signals that cancel a run.
func InterruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
