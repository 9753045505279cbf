package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dkoosis/simrun/internal/config"
	"github.com/dkoosis/simrun/internal/flags"
	"github.com/dkoosis/simrun/internal/history"
	"github.com/dkoosis/simrun/internal/metrics"
	"github.com/dkoosis/simrun/pkg/mapper"
	"github.com/dkoosis/simrun/pkg/orchestrator"
	"github.com/dkoosis/simrun/pkg/pattern"
	"github.com/dkoosis/simrun/pkg/render"
	"github.com/dkoosis/simrun/pkg/report"
	"github.com/dkoosis/simrun/pkg/simtool"
	"github.com/dkoosis/simrun/pkg/testlist"
	"github.com/dkoosis/simrun/pkg/tui"
)

// historyWindow bounds the runs compared against and scanned for flaky tests.
const historyWindow = 10

func runSuite(c *cli.Context, stdout, stderr io.Writer) error {
	ctx := c.Context
	start := time.Now()

	file, path, err := config.LoadFile(c.String(flags.ConfigFile))
	if err != nil {
		return err
	}
	cfg := config.Resolve(c, file, start)
	cfg.ConfigPath = path
	if err := cfg.Validate(); err != nil {
		return err
	}
	slog.SetDefault(newLogger(stderr, cfg.Debug))
	slog.Debug("resolved configuration",
		"config_file", cfg.ConfigPath, "jobs", cfg.Jobs, "jobs_source", cfg.JobsSource,
		"theme", cfg.Theme, "theme_source", cfg.ThemeSource, "rundir", cfg.RunDir)
	for _, w := range cfg.Warnings() {
		slog.Warn(w)
	}

	// Progress goes to stderr when stdout carries JSON.
	format := resolveFormat(cfg.Format, stdout)
	msgOut := stdout
	if format == formatJSON {
		msgOut = stderr
	}

	tests, err := discover(ctx, cfg, msgOut)
	if err != nil {
		if ctx.Err() != nil {
			return orchestrator.ErrInterrupted
		}
		return err
	}

	progress := orchestrator.NewProgress(msgOut)
	var live *tui.Program
	o, err := orchestrator.New(orchestrator.Config{
		RunDir:     cfg.RunDir,
		Jobs:       cfg.Jobs,
		KeepBuild:  cfg.KeepBuild,
		RebuildAll: cfg.RebuildAll,
		KeepPass:   cfg.KeepPass,
		Waves:      simtool.Waves{WDB: cfg.LogWave, VCD: cfg.LogVCD},
		Sim:        simtool.SimArgs{TimeoutClocks: cfg.TimeoutClocks, LogLevel: cfg.LogLevel},
	}, simtool.New(cfg.Tool),
		orchestrator.WithStdout(msgOut),
		orchestrator.WithProgress(progress),
		orchestrator.WithOnEvent(func(e orchestrator.Event) {
			if live != nil {
				live.Send(e)
			}
		}),
	)
	if err != nil {
		return err
	}

	if _, err := o.Prepare(ctx); err != nil {
		if ctx.Err() != nil {
			return orchestrator.ErrInterrupted
		}
		return err
	}
	if cfg.BuildOnly {
		fmt.Fprintf(msgOut, "Building done at <%s>. Exiting\n", o.Layout().BuildDir())
		return nil
	}

	theme := render.ThemeByName(cfg.Theme)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.TUI && format == formatTerminal && isTTYWriter(stdout) {
		names := make([]string, len(tests))
		for i, t := range tests {
			names[i] = t.Name()
		}
		progress.SetOutput(io.Discard)
		live = tui.Start(tui.New(names, o.Layout(), theme, cancel))
	}

	sum, runErr := o.Run(runCtx, tests)
	if live != nil {
		if _, err := live.Finish(); err != nil {
			slog.Warn("live view failed", "error", err)
		}
		progress.SetOutput(msgOut)
	}
	if sum == nil {
		return runErr
	}
	interrupted := errors.Is(runErr, orchestrator.ErrInterrupted)
	if runErr != nil && !interrupted {
		return runErr
	}

	patterns := mapper.FromSuite(sum, time.Since(start))
	runID := history.NewRunID()
	writeArtifacts(o.Layout().Root, runID, sum, time.Since(start))
	if cfg.History != "" && !interrupted {
		patterns = withHistory(ctx, cfg.History, runID, start, sum, patterns)
	}

	width, _ := termSize(stdout)
	if format != formatJSON {
		fmt.Fprintln(stdout)
	}
	fmt.Fprint(stdout, selectRenderer(format, theme, width).Render(patterns))

	switch {
	case interrupted:
		return orchestrator.ErrInterrupted
	case cfg.Strict && !sum.Passed():
		return errSuiteFailed
	default:
		return nil
	}
}

// discover resolves the selected tests and announces them.
func discover(ctx context.Context, cfg *config.Config, stdout io.Writer) ([]testlist.Test, error) {
	root := cfg.RepoRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining repository root: %w", err)
		}
		root = wd
	}

	var specs []testlist.Spec
	if cfg.Test != "" {
		specs = []testlist.Spec{testlist.Single(cfg.Test)}
	} else {
		list, err := testlist.Load(cfg.Testlist)
		if err != nil {
			return nil, err
		}
		if len(cfg.Filters) > 0 {
			fmt.Fprintf(stdout, "Applying filter(s): %s\n", strings.Join(cfg.Filters, ", "))
		}
		specs, err = list.Select(cfg.Filters)
		if err != nil {
			return nil, err
		}
	}

	r := &testlist.Resolver{
		Root:  root,
		Delay: cfg.WarningDelay,
		Warn:  func(msg string) { slog.Warn(msg) },
	}
	tests, err := r.Resolve(ctx, specs)
	if err != nil {
		return nil, err
	}

	if cfg.Test != "" {
		fmt.Fprintf(stdout, "\nRunning %s\n", tests[0].Path)
		return tests, nil
	}
	fmt.Fprintln(stdout, "\nTestlist:")
	for _, t := range tests {
		fmt.Fprintf(stdout, "   %s\n", t.Path)
	}
	fmt.Fprintf(stdout, "Running %d test(s) total\n", len(tests))
	return tests, nil
}

// writeArtifacts leaves the summary and metrics files in the run directory.
// Failures are logged; they never change the suite outcome.
func writeArtifacts(root, runID string, sum *orchestrator.Summary, suite time.Duration) {
	if err := report.WriteText(filepath.Join(root, report.TextFile), sum); err != nil {
		slog.Warn("writing text summary", "error", err)
	}
	if err := report.WriteJSON(filepath.Join(root, report.JSONFile), sum); err != nil {
		slog.Warn("writing JSON summary", "error", err)
	}
	rec := metrics.New(runID)
	rec.Observe(sum, suite)
	if err := rec.WriteTextfile(filepath.Join(root, metrics.FileName)); err != nil {
		slog.Warn("writing metrics", "error", err)
	}
}

// withHistory records the run and inserts trend patterns before the verdict.
func withHistory(ctx context.Context, path, runID string, start time.Time, sum *orchestrator.Summary, patterns []pattern.Pattern) []pattern.Pattern {
	store, err := history.Open(ctx, path)
	if err != nil {
		slog.Warn("opening run history", "path", path, "error", err)
		return patterns
	}
	defer store.Close()

	previous, err := store.Recent(ctx, historyWindow)
	if err != nil {
		slog.Warn("reading run history", "error", err)
		return patterns
	}
	current := historyRun(runID, start, sum)
	last := make(map[string]string, len(current.Tests))
	for _, tr := range current.Tests {
		st, ok, err := store.LastStatus(ctx, tr.Name)
		if err != nil {
			slog.Warn("reading last test status", "test", tr.Name, "error", err)
			continue
		}
		if ok {
			last[tr.Name] = st
		}
	}
	if err := store.Record(ctx, current); err != nil {
		slog.Warn("recording run", "error", err)
		return patterns
	}
	flaky, err := store.Flaky(ctx, historyWindow)
	if err != nil {
		slog.Warn("querying flaky tests", "error", err)
	}

	trend := mapper.FromHistory(current, previous, last, flaky)
	if len(trend) == 0 {
		return patterns
	}
	verdict := len(patterns) - 1
	out := make([]pattern.Pattern, 0, len(patterns)+len(trend))
	out = append(out, patterns[:verdict]...)
	out = append(out, trend...)
	return append(out, patterns[verdict])
}

func historyRun(runID string, start time.Time, sum *orchestrator.Summary) history.Run {
	run := history.Run{
		ID:          runID,
		StartedAt:   start,
		RunDir:      sum.RunDir,
		Total:       sum.Total(),
		Passed:      sum.PassCount(),
		SuitePassed: sum.Passed(),
		Duration:    time.Since(start),
	}
	for _, e := range sum.Entries {
		st := "MISSING"
		if e.Found {
			st = e.Result.Status.String()
		}
		run.Tests = append(run.Tests, history.TestResult{Name: e.Name, Status: st, Duration: e.Duration})
	}
	return run
}
