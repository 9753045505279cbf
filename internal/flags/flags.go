// Package flags declares the simrun command-line flags.
package flags

import (
	"runtime"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "SIMRUN"

func prefixEnvVars(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = EnvVarPrefix + "_" + n
	}
	return out
}

// Flag names.
const (
	Test          = "test"
	Testlist      = "testlist"
	Filter        = "filter"
	RunDir        = "rundir"
	BuildOnly     = "build_only"
	KeepBuild     = "keep_build"
	RebuildAll    = "rebuild_all"
	KeepPass      = "keep_pass"
	Jobs          = "jobs"
	TimeoutClocks = "timeout_clocks"
	LogLevel      = "log_level"
	LogWave       = "log_wave"
	LogVCD        = "log_vcd"
	RepoRoot      = "repo_root"
	ConfigFile    = "config"
	Strict        = "strict"
	Format        = "format"
	Theme         = "theme"
	TUI           = "tui"
	History       = "history"
	Debug         = "debug"
)

// Defaults for run parameters.
const (
	DefaultTimeoutClocks = 500_000
	DefaultLogLevel      = "WARN"
	DefaultFormat        = "auto"
	DefaultTheme         = "default"
)

// Flags returns a fresh flag set in help order. urfave/cli writes environment
// values back into flag structs, so every app gets its own instances.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    Test,
			Aliases: []string{"t"},
			Usage:   "Specify single test to run",
		},
		&cli.StringFlag{
			Name:    Testlist,
			Usage:   "Path to a JSON file containing a list of tests",
			EnvVars: prefixEnvVars("TESTLIST"),
		},
		&cli.StringFlag{
			Name:    Filter,
			Aliases: []string{"f"},
			Usage: "Regex filters on testlist group names, comma-separated. Prefix with ~ to exclude. " +
				"E.g. -f 'riscv_isa,~zmmul' runs groups matching 'riscv_isa' except those matching 'zmmul'",
		},
		&cli.StringFlag{
			Name:    RunDir,
			Aliases: []string{"r"},
			Usage:   "Run directory name (default: testrun_<timestamp>)",
			EnvVars: prefixEnvVars("RUNDIR"),
		},
		&cli.BoolFlag{
			Name:    BuildOnly,
			Aliases: []string{"o"},
			Usage:   "Only build the testbench",
		},
		&cli.BoolFlag{
			Name:    KeepBuild,
			Aliases: []string{"k"},
			Usage:   "Reuse existing build if available",
		},
		&cli.BoolFlag{
			Name:    RebuildAll,
			Aliases: []string{"b"},
			Usage:   "Rebuild everything: RTL, ISA sim, cosim. Takes priority over --keep_build",
		},
		&cli.BoolFlag{
			Name:    KeepPass,
			Aliases: []string{"p"},
			Usage:   "Keep run directories of passed tests and skip rerunning them. Applicable only with --keep_build",
		},
		&cli.IntFlag{
			Name:    Jobs,
			Aliases: []string{"j"},
			Value:   runtime.NumCPU(),
			Usage:   "Number of parallel jobs to run (default: number of CPU cores)",
			EnvVars: prefixEnvVars("JOBS"),
		},
		&cli.IntFlag{
			Name:    TimeoutClocks,
			Aliases: []string{"c"},
			Value:   DefaultTimeoutClocks,
			Usage:   "Number of clocks before simulations time out",
			EnvVars: prefixEnvVars("TIMEOUT_CLOCKS"),
		},
		&cli.StringFlag{
			Name:    LogLevel,
			Aliases: []string{"v"},
			Value:   DefaultLogLevel,
			Usage:   "Log level during simulation",
			EnvVars: prefixEnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:  LogWave,
			Usage: "Collect .wdb waveform, all modules from the top down",
		},
		&cli.BoolFlag{
			Name:  LogVCD,
			Usage: "Collect .vcd waveform, all modules from the top down",
		},
		&cli.StringFlag{
			Name:    RepoRoot,
			Usage:   "Root that testlist directories are relative to (default: working directory)",
			EnvVars: append([]string{"REPO_ROOT"}, prefixEnvVars("REPO_ROOT")...),
		},
		&cli.StringFlag{
			Name:    ConfigFile,
			Usage:   "Path to a .simrun.yaml config file (default: ./.simrun.yaml, then user config dir)",
			EnvVars: prefixEnvVars("CONFIG"),
		},
		&cli.BoolFlag{
			Name:    Strict,
			Usage:   "Exit with code 1 when the test suite fails",
			EnvVars: prefixEnvVars("STRICT"),
		},
		&cli.StringFlag{
			Name:    Format,
			Value:   DefaultFormat,
			Usage:   "Summary format: auto, terminal, llm, json",
			EnvVars: prefixEnvVars("FORMAT"),
		},
		&cli.StringFlag{
			Name:    Theme,
			Value:   DefaultTheme,
			Usage:   "Theme: default, orca, mono",
			EnvVars: prefixEnvVars("THEME"),
		},
		&cli.BoolFlag{
			Name:  TUI,
			Usage: "Show a live progress view while tests run (terminal only)",
		},
		&cli.StringFlag{
			Name:    History,
			Usage:   "Record run results into this SQLite database",
			EnvVars: prefixEnvVars("HISTORY"),
		},
		&cli.BoolFlag{
			Name:    Debug,
			Usage:   "Enable debug logging",
			EnvVars: prefixEnvVars("DEBUG"),
		},
	}
}
