package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dkoosis/simrun/pkg/simtool"
)

// Prepare makes the build artifact available. An existing complete build is
// reused when KeepBuild is set and RebuildAll is not; otherwise the run
// directory is recreated and the testbench is built. A build failure is
// returned as *simtool.BuildError and no test may run.
func (o *Orchestrator) Prepare(ctx context.Context) (reused bool, err error) {
	buildDir := o.layout.BuildDir()
	if o.cfg.KeepBuild && !o.cfg.RebuildAll && o.tool.BuildComplete(buildDir) {
		o.opts.progress.Printf("Reusing existing build directory at <%s>\n", buildDir)
		reused = true
	} else {
		if err := os.RemoveAll(o.layout.Root); err != nil {
			return false, fmt.Errorf("removing previous run directory: %w", err)
		}
		if err := os.MkdirAll(o.layout.Root, 0o755); err != nil {
			return false, fmt.Errorf("creating run directory: %w", err)
		}

		jobs := min(o.cfg.Jobs, o.opts.cpus)
		if jobs < 1 {
			jobs = 1
		}
		o.opts.progress.Printf("Building in %s...\n", buildDir)
		start := time.Now()
		if err := o.tool.Build(ctx, buildDir, jobs, o.cfg.RebuildAll); err != nil {
			return false, err
		}
		o.buildTime = time.Since(start)
		o.opts.progress.Printf("Build done, runtime: %s\n", FormatRuntime(o.buildTime))
	}

	if err := simtool.WriteRunConfig(o.layout.RunConfig(), o.cfg.Waves); err != nil {
		return reused, err
	}
	return reused, nil
}

// Workers validates the requested parallelism against the available cores.
// Requests above the core count are capped with a warning.
func Workers(requested, available int, warn func(string)) (int, error) {
	if requested < 1 {
		return 0, fmt.Errorf("the number of parallel jobs must be at least 1, got %d", requested)
	}
	if available < 1 {
		available = 1
	}
	if requested > available {
		if warn != nil {
			warn(fmt.Sprintf("The specified number of jobs (%d) exceeds the number of available CPU cores (%d).",
				requested, available))
		}
		return available, nil
	}
	return requested, nil
}
