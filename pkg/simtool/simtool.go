// Package simtool drives the external build and simulation tool.
//
// The tool is a make-based flow: a build target elaborates the testbench once
// into a build directory, and a sim target runs one test from a copy of that
// directory. simtool only constructs command lines, generates the simulator
// control script and captures output; it knows nothing about test outcomes.
package simtool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alessio/shellescape"
)

// Default tool settings, matching the reference make flow.
const (
	DefaultMake        = "make"
	DefaultBuildTarget = "elab"
	DefaultSimTarget   = "sim"
	DefaultMarker      = ".elab.touchfile"
	BuildLogName       = "build.log"
	RerunScriptName    = "run.sh"
)

// DefaultVars are passed to both the build and the sim targets.
var DefaultVars = []string{
	"ISA_SIM_BDIR=build_obj_runtest",
	"COSIM_BDIR=build_runtest",
}

// DefaultLinks are symlinked from the source directory into a fresh build dir.
var DefaultLinks = []string{"Makefile", "Makefile.inc", "cosim"}

// Config describes the make flow.
type Config struct {
	Make        string   `yaml:"make"`
	BuildTarget string   `yaml:"build_target"`
	SimTarget   string   `yaml:"sim_target"`
	Vars        []string `yaml:"vars"`
	Links       []string `yaml:"links"`
	Marker      string   `yaml:"marker"`
	// SourceDir holds the files named in Links. Defaults to the working directory.
	SourceDir string `yaml:"source_dir"`
}

// DefaultConfig returns the reference make flow.
func DefaultConfig() Config {
	return Config{
		Make:        DefaultMake,
		BuildTarget: DefaultBuildTarget,
		SimTarget:   DefaultSimTarget,
		Vars:        append([]string(nil), DefaultVars...),
		Links:       append([]string(nil), DefaultLinks...),
		Marker:      DefaultMarker,
	}
}

// SimArgs are the per-run parameters forwarded to the sim target.
type SimArgs struct {
	TimeoutClocks int
	LogLevel      string
}

// Tool builds and runs simulations according to a Config.
type Tool struct {
	cfg Config
}

// New returns a Tool, filling unset fields from DefaultConfig.
func New(cfg Config) *Tool {
	def := DefaultConfig()
	if cfg.Make == "" {
		cfg.Make = def.Make
	}
	if cfg.BuildTarget == "" {
		cfg.BuildTarget = def.BuildTarget
	}
	if cfg.SimTarget == "" {
		cfg.SimTarget = def.SimTarget
	}
	if cfg.Vars == nil {
		cfg.Vars = def.Vars
	}
	if cfg.Links == nil {
		cfg.Links = def.Links
	}
	if cfg.Marker == "" {
		cfg.Marker = def.Marker
	}
	return &Tool{cfg: cfg}
}

// Config returns the effective configuration.
func (t *Tool) Config() Config { return t.cfg }

// BuildCommand returns the elaboration command line.
func (t *Tool) BuildCommand(jobs int, force bool) []string {
	argv := []string{t.cfg.Make, t.cfg.BuildTarget}
	argv = append(argv, t.cfg.Vars...)
	argv = append(argv, "-j"+strconv.Itoa(jobs))
	if force {
		argv = append(argv, "-B")
	}
	return argv
}

// SimCommand returns the simulation command line for one test.
// testPath must already have its extension stripped.
func (t *Tool) SimCommand(testPath, runCfg string, args SimArgs) []string {
	argv := []string{t.cfg.Make, t.cfg.SimTarget}
	argv = append(argv, t.cfg.Vars...)
	return append(argv,
		"TEST_PATH="+testPath,
		"RUN_CFG="+runCfg,
		"TIMEOUT_CLOCKS="+strconv.Itoa(args.TimeoutClocks),
		"LOG_LEVEL="+args.LogLevel,
		"UNIQUE_WDB=0", // single wdb per test run dir
		"TO_LOG=0",     // output is captured by the harness
	)
}

// BuildComplete reports whether buildDir holds a finished build.
func (t *Tool) BuildComplete(buildDir string) bool {
	_, err := os.Stat(filepath.Join(buildDir, t.cfg.Marker))
	return err == nil
}

// BuildError reports a failed elaboration.
type BuildError struct {
	LogPath string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed, check build log '%s' for details: %v", e.LogPath, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Build recreates buildDir, links the flow sources into it and runs the build
// command. Output is kept in buildDir/build.log whatever the outcome.
func (t *Tool) Build(ctx context.Context, buildDir string, jobs int, force bool) error {
	if err := os.RemoveAll(buildDir); err != nil {
		return fmt.Errorf("removing stale build dir: %w", err)
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("creating build dir: %w", err)
	}
	if err := t.linkSources(buildDir); err != nil {
		return err
	}

	logPath := filepath.Join(buildDir, BuildLogName)
	err := Exec(ctx, buildDir, t.BuildCommand(jobs, force), logPath)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &BuildError{LogPath: logPath, Err: err}
}

func (t *Tool) linkSources(buildDir string) error {
	src := t.cfg.SourceDir
	if src == "" {
		src = "."
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolving source dir: %w", err)
	}
	for _, name := range t.cfg.Links {
		if err := os.Symlink(filepath.Join(src, name), filepath.Join(buildDir, name)); err != nil {
			return fmt.Errorf("linking %s: %w", name, err)
		}
	}
	return nil
}

// WriteRerunScript records argv as an executable shell script for manual reruns.
func WriteRerunScript(path string, argv []string) error {
	content := "#!/bin/sh\n" + shellescape.QuoteCommand(argv) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil { // #nosec G306 -- script must be executable
		return fmt.Errorf("writing rerun script: %w", err)
	}
	return nil
}
