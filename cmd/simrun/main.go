// simrun runs a suite of hardware simulation tests in parallel.
//
// Usage:
//
//	simrun -t isa/add.S
//	simrun --testlist testlist.json -f smoke,~slow -j 8
//	simrun --testlist testlist.json -r nightly -k -p
//
// The testbench is elaborated once into <rundir>/build. Every test runs in a
// private copy of that build and leaves test.log, test.status and run.sh in
// <rundir>/<test>. A suite summary is printed when all tests are done.
//
// Output modes (auto-detected):
//
//	terminal  styled summary (default when TTY)
//	llm       terse plain text (default when piped)
//	json      structured JSON for automation
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/dkoosis/simrun/internal/exitcodes"
	"github.com/dkoosis/simrun/internal/flags"
	"github.com/dkoosis/simrun/internal/version"
	"github.com/dkoosis/simrun/pkg/orchestrator"
	"github.com/dkoosis/simrun/pkg/simtool"
)

// errSuiteFailed signals a failing suite under --strict.
var errSuiteFailed = errors.New("test suite failed")

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the command line and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), simtool.InterruptSignals()...)
	defer stop()

	slog.SetDefault(newLogger(stderr, false))
	app := newApp(stdout, stderr)
	err := app.RunContext(ctx, args)
	code := exitCode(err)
	switch {
	case err == nil, errors.Is(err, errSuiteFailed):
	case code == exitcodes.Interrupted:
		fmt.Fprintln(stderr, "simrun: interrupted")
	default:
		fmt.Fprintf(stderr, "simrun: %v\n", err)
	}
	return code
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := &cli.App{
		Name:      "simrun",
		Usage:     "Run hardware simulation tests in parallel",
		Version:   version.String(),
		Flags:     flags.Flags(),
		Writer:    stdout,
		ErrWriter: stderr,
		Action: func(c *cli.Context) error {
			return runSuite(c, stdout, stderr)
		},
		HideHelpCommand: true,
	}
	// Exit codes are decided by run, never by the cli package.
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

// exitCode maps the error returned by the app to a process exit code.
// Validation, discovery and build errors all land on RuntimeErr.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.Is(err, errSuiteFailed):
		return exitcodes.SuiteFailure
	case errors.Is(err, orchestrator.ErrInterrupted), errors.Is(err, context.Canceled):
		return exitcodes.Interrupted
	default:
		return exitcodes.RuntimeErr
	}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
