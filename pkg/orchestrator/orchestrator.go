// Package orchestrator builds the testbench once and runs every test in its
// own copy of the build, on a bounded pool of workers.
//
// A run directory looks like:
//
//	<rundir>/
//	  run_cfg_suite.tcl   simulator control script shared by all tests
//	  build/              elaborated testbench, copied per test
//	  <TestName>/         test.log, test.status, run.sh
//
// Test outcomes are persisted in test.status files and re-read from disk after
// the pool drains. Only tests dispatched by the current run are read, so an
// interrupted run never reports statuses left behind by an earlier one.
package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/dkoosis/simrun/pkg/simtool"
	"github.com/dkoosis/simrun/pkg/status"
)

// ErrInterrupted is returned when the run context is cancelled mid-run.
var ErrInterrupted = errors.New("test run interrupted")

// BuildDirName is the build artifact directory inside the run directory.
const BuildDirName = "build"

// Per-test files.
const (
	LogName = "test.log"
)

// Layout names the paths of a run directory.
type Layout struct {
	Root string
}

func (l Layout) BuildDir() string  { return filepath.Join(l.Root, BuildDirName) }
func (l Layout) RunConfig() string { return filepath.Join(l.Root, simtool.RunConfigName) }

func (l Layout) TestDir(name string) string { return filepath.Join(l.Root, name) }

func (l Layout) LogPath(name string) string {
	return filepath.Join(l.TestDir(name), LogName)
}

func (l Layout) StatusPath(name string) string {
	return filepath.Join(l.TestDir(name), status.FileName)
}

func (l Layout) RerunScript(name string) string {
	return filepath.Join(l.TestDir(name), simtool.RerunScriptName)
}

// Config holds the run parameters.
type Config struct {
	RunDir     string
	Jobs       int
	KeepBuild  bool
	RebuildAll bool
	KeepPass   bool
	Waves      simtool.Waves
	Sim        simtool.SimArgs
}

// EventType distinguishes emitted run events.
type EventType int

const (
	EventTestStarted EventType = iota
	EventTestSkipped
	EventTestCompleted
	EventTestErrored
)

// Event captures test lifecycle milestones.
type Event struct {
	Type   EventType
	Test   string
	Index  int // 1-based start order
	Total  int
	Status status.Status // set on EventTestCompleted and EventTestSkipped
	Err    error         // set on EventTestErrored
	When   time.Time
}

// Option configures an Orchestrator.
type Option func(*options)

// WithStdout overrides the writer for build and progress messages.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithProgress injects the shared progress counter.
func WithProgress(p *Progress) Option {
	return func(o *options) { o.progress = p }
}

// WithOnEvent registers a callback for emitted events. It is called from
// worker goroutines and must be safe for concurrent use.
func WithOnEvent(fn func(Event)) Option {
	return func(o *options) { o.onEvent = fn }
}

// WithCPUs overrides the number of available CPU cores.
func WithCPUs(n int) Option {
	return func(o *options) { o.cpus = n }
}

type options struct {
	stdout   io.Writer
	progress *Progress
	onEvent  func(Event)
	cpus     int
}

// Orchestrator runs a test suite in one run directory.
type Orchestrator struct {
	cfg    Config
	tool   *simtool.Tool
	layout Layout
	opts   options

	buildTime time.Duration
	simTime   time.Duration

	mu         sync.Mutex
	dispatched map[string]bool
	durations  map[string]time.Duration
	skipped    map[string]bool
	errs       map[string]error
}

// New constructs an orchestrator. The run directory is made absolute so
// paths handed to the tool survive its change of working directory.
func New(cfg Config, tool *simtool.Tool, opts ...Option) (*Orchestrator, error) {
	o := options{stdout: os.Stdout, cpus: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.progress == nil {
		o.progress = NewProgress(o.stdout)
	}
	root, err := filepath.Abs(cfg.RunDir)
	if err != nil {
		return nil, fmt.Errorf("resolving run directory: %w", err)
	}
	return &Orchestrator{
		cfg:       cfg,
		tool:      tool,
		layout:    Layout{Root: root},
		opts:      o,
		dispatched: make(map[string]bool),
		durations:  make(map[string]time.Duration),
		skipped:    make(map[string]bool),
		errs:       make(map[string]error),
	}, nil
}

// Layout returns the run directory layout.
func (o *Orchestrator) Layout() Layout { return o.layout }

func (o *Orchestrator) emit(evt Event) {
	if o.opts.onEvent == nil {
		return
	}
	if evt.When.IsZero() {
		evt.When = time.Now()
	}
	o.opts.onEvent(evt)
}

// TestError reports a test whose simulation command failed to run to
// completion. No status file is written for it.
type TestError struct {
	Test    string
	LogPath string
	Err     error
}

func (e *TestError) Error() string {
	return fmt.Sprintf("run test <%s> failed, check test log '%s' for details: %v", e.Test, e.LogPath, e.Err)
}

func (e *TestError) Unwrap() error { return e.Err }
