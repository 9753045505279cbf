package simtool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// waitDelay bounds how long Exec waits for output pipes after a cancelled
// process group has been signalled.
const waitDelay = 5 * time.Second

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Argv     []string
	ExitCode int
	LogPath  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d (log: %s)", e.Argv[0], e.ExitCode, e.LogPath)
}

// Exec runs argv in dir and writes its combined stdout and stderr verbatim to
// logPath, which is created or truncated. The log is written whatever the
// outcome. A non-zero exit is returned as *ExitError; cancelling ctx
// terminates the command's process group and returns ctx.Err().
func Exec(ctx context.Context, dir string, argv []string, logPath string) error {
	if len(argv) == 0 || argv[0] == "" {
		return errors.New("empty command")
	}

	logFile, err := os.Create(logPath) // #nosec G304 -- path built by the orchestrator
	if err != nil {
		return fmt.Errorf("creating log: %w", err)
	}
	defer logFile.Close()

	// #nosec G204 -- argv comes from the tool configuration
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd, terminateSignal) }
	cmd.WaitDelay = waitDelay

	if err := outcome(ctx, cmd.Run(), argv, logPath); err != nil {
		return err
	}
	if err := logFile.Sync(); err != nil {
		return fmt.Errorf("flushing log: %w", err)
	}
	return nil
}

// outcome maps the result of cmd.Run to Exec's error. A command that exited
// zero succeeded even if ctx was cancelled after it finished.
func outcome(ctx context.Context, runErr error, argv []string, logPath string) error {
	if runErr == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return &ExitError{Argv: argv, ExitCode: exitErr.ExitCode(), LogPath: logPath}
	}
	return fmt.Errorf("running %s: %w", argv[0], runErr)
}
