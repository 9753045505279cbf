package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/otiai10/copy"
	"github.com/sourcegraph/conc/pool"

	"github.com/dkoosis/simrun/pkg/simtool"
	"github.com/dkoosis/simrun/pkg/status"
	"github.com/dkoosis/simrun/pkg/testlist"
)

// Run executes tests on a pool of workers and returns the collected summary.
// A failing test never cancels its siblings. If ctx is cancelled the running
// simulations are terminated and ErrInterrupted is returned together with
// the statuses collected so far.
func (o *Orchestrator) Run(ctx context.Context, tests []testlist.Test) (*Summary, error) {
	workers, err := Workers(o.cfg.Jobs, o.opts.cpus, func(msg string) { slog.Warn(msg) })
	if err != nil {
		return nil, err
	}
	if !o.tool.BuildComplete(o.layout.BuildDir()) {
		return nil, fmt.Errorf("no complete build in %s", o.layout.BuildDir())
	}

	o.opts.progress.Start(len(tests))
	slog.Debug("running tests", "tests", len(tests), "workers", workers)

	start := time.Now()
	p := pool.New().
		WithErrors().
		WithMaxGoroutines(workers).
		WithContext(ctx)
	for _, t := range tests {
		p.Go(func(ctx context.Context) error {
			return o.runTest(ctx, t, len(tests))
		})
	}
	if err := p.Wait(); err != nil {
		slog.Debug("some tests did not complete", "error", err)
	}
	o.simTime = time.Since(start)

	summary := o.Collect(tests)
	if ctx.Err() != nil {
		started, total := o.opts.progress.Count()
		o.opts.progress.Printf("Interrupted after starting %d/%d tests.\n", started, total)
		return summary, ErrInterrupted
	}
	return summary, nil
}

func (o *Orchestrator) runTest(ctx context.Context, t testlist.Test, total int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := t.Name()
	o.mu.Lock()
	o.dispatched[name] = true
	o.mu.Unlock()
	idx := o.opts.progress.Next(name)
	o.emit(Event{Type: EventTestStarted, Test: name, Index: idx, Total: total})

	dir := o.layout.TestDir(name)
	if _, err := os.Stat(dir); err == nil {
		if o.cfg.KeepPass {
			if r, err := status.Read(o.layout.StatusPath(name)); err == nil && r.Status == status.Passed {
				o.opts.progress.Printf("Test <%s> already PASSED. Skipping.\n", name)
				o.mu.Lock()
				o.skipped[name] = true
				o.mu.Unlock()
				o.emit(Event{Type: EventTestSkipped, Test: name, Index: idx, Total: total, Status: status.Passed})
				return nil
			}
		}
		if err := os.RemoveAll(dir); err != nil {
			return o.fail(name, idx, total, fmt.Errorf("removing stale test directory: %w", err))
		}
	}

	// Symlinks stay links and mtimes are kept so make sees an up-to-date build.
	err := copy.Copy(o.layout.BuildDir(), dir, copy.Options{
		OnSymlink:     func(string) copy.SymlinkAction { return copy.Shallow },
		PreserveTimes: true,
	})
	if err != nil {
		return o.fail(name, idx, total, fmt.Errorf("copying build directory: %w", err))
	}

	argv := o.tool.SimCommand(t.MakePath(), o.layout.RunConfig(), o.cfg.Sim)
	if err := simtool.WriteRerunScript(o.layout.RerunScript(name), argv); err != nil {
		return o.fail(name, idx, total, err)
	}

	logPath := o.layout.LogPath(name)
	start := time.Now()
	runErr := simtool.Exec(ctx, dir, argv, logPath)
	o.mu.Lock()
	o.durations[name] = time.Since(start)
	o.mu.Unlock()

	if runErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.opts.progress.Printf("Test <%s> DONE. Run failed.\n", name)
		return o.fail(name, idx, total, &TestError{Test: name, LogPath: logPath, Err: runErr})
	}

	r := status.Classify(logPath, name)
	if err := status.Write(o.layout.StatusPath(name), r); err != nil {
		return o.fail(name, idx, total, err)
	}
	o.opts.progress.Printf("Test <%s> DONE. %s", name, shortStatus(r, name))
	o.emit(Event{Type: EventTestCompleted, Test: name, Index: idx, Total: total, Status: r.Status})
	return nil
}

func (o *Orchestrator) fail(name string, idx, total int, err error) error {
	var tErr *TestError
	if !errors.As(err, &tErr) {
		err = &TestError{Test: name, LogPath: o.layout.LogPath(name), Err: err}
	}
	o.mu.Lock()
	o.errs[name] = err
	o.mu.Unlock()
	slog.Error("test execution failed", "test", name, "error", err)
	o.emit(Event{Type: EventTestErrored, Test: name, Index: idx, Total: total, Err: err})
	return err
}

// shortStatus renders a result without the leading test name, as printed
// after "Test <name> DONE.".
func shortStatus(r status.Result, name string) string {
	msg := strings.TrimSpace(strings.Replace(r.Message, "Test <"+name+">", "", 1))
	var sb strings.Builder
	sb.WriteString(msg)
	sb.WriteString("\n")
	for _, d := range r.Diagnostics {
		sb.WriteString("    ")
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	return sb.String()
}
