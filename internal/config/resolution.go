package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dkoosis/simrun/internal/flags"
	"github.com/dkoosis/simrun/pkg/simtool"
	"github.com/dkoosis/simrun/pkg/testlist"
)

// Values is the read side of a parsed command line. *cli.Context satisfies it.
type Values interface {
	IsSet(name string) bool
	String(name string) string
	Int(name string) int
	Bool(name string) bool
}

// Config is the fully resolved run configuration.
type Config struct {
	Test     string
	Testlist string
	Filters  []string

	RunDir     string
	BuildOnly  bool
	KeepBuild  bool
	RebuildAll bool
	KeepPass   bool

	Jobs          int
	TimeoutClocks int
	LogLevel      string
	LogWave       bool
	LogVCD        bool

	RepoRoot string
	Strict   bool
	Format   string
	Theme    string
	TUI      bool
	History  string
	Debug    bool
	NoColor  bool
	CI       bool

	Tool         simtool.Config
	WarningDelay time.Duration

	// Resolution metadata (for debugging)
	ConfigPath  string
	JobsSource  string // "cli", "file", "default"
	ThemeSource string // "cli", "env", "file", "default"
}

// RunDirPrefix prefixes the default timestamped run directory.
const RunDirPrefix = "testrun_"

// DefaultRunDir returns the run directory name used when none is given.
func DefaultRunDir(now time.Time) string {
	return RunDirPrefix + now.Format("2006-01-02_15-04-05")
}

// Resolve merges command-line values over the config file and defaults.
// The result is not validated; call Validate before acting on it.
func Resolve(v Values, file *FileConfig, now time.Time) *Config {
	if file == nil {
		file = &FileConfig{}
	}
	cfg := &Config{
		Test:         v.String(flags.Test),
		Testlist:     v.String(flags.Testlist),
		Filters:      testlist.ParseFilters(v.String(flags.Filter)),
		RunDir:       v.String(flags.RunDir),
		BuildOnly:    v.Bool(flags.BuildOnly),
		KeepBuild:    v.Bool(flags.KeepBuild),
		RebuildAll:   v.Bool(flags.RebuildAll),
		KeepPass:     v.Bool(flags.KeepPass),
		LogWave:      v.Bool(flags.LogWave),
		LogVCD:       v.Bool(flags.LogVCD),
		TUI:          v.Bool(flags.TUI),
		Debug:        v.Bool(flags.Debug),
		Tool:         file.Tool,
		WarningDelay: testlist.DefaultWarningDelay,
	}
	if cfg.RunDir == "" {
		cfg.RunDir = DefaultRunDir(now)
	}

	cfg.Jobs, cfg.JobsSource = resolveInt(v, flags.Jobs, file.Jobs)
	cfg.TimeoutClocks, _ = resolveInt(v, flags.TimeoutClocks, file.TimeoutClocks)
	cfg.LogLevel = resolveString(v, flags.LogLevel, file.LogLevel)
	cfg.RepoRoot = resolveString(v, flags.RepoRoot, file.RepoRoot)
	cfg.Format = resolveString(v, flags.Format, file.Format)
	cfg.History = resolveString(v, flags.History, file.History)

	cfg.Strict = file.Strict
	if v.IsSet(flags.Strict) {
		cfg.Strict = v.Bool(flags.Strict)
	}

	cfg.Theme = resolveString(v, flags.Theme, file.Theme)
	switch {
	case v.IsSet(flags.Theme):
		cfg.ThemeSource = "cli"
	case file.Theme != "":
		cfg.ThemeSource = "file"
	default:
		cfg.ThemeSource = "default"
	}

	cfg.NoColor = os.Getenv("NO_COLOR") != ""
	if ci := getEnvBool("SIMRUN_CI", "CI"); ci != nil {
		cfg.CI = *ci
	}
	if cfg.CI || cfg.NoColor {
		cfg.Theme = "mono"
		cfg.ThemeSource = "env"
	}
	if cfg.CI {
		cfg.TUI = false
	}
	return cfg
}

// Warnings returns non-fatal remarks about flag combinations.
func (c *Config) Warnings() []string {
	var out []string
	if c.KeepPass && !c.KeepBuild {
		out = append(out, "--keep_pass has no effect without --keep_build: the run directory is recreated")
	}
	if c.KeepBuild && c.RebuildAll {
		out = append(out, "--rebuild_all takes priority over --keep_build")
	}
	return out
}

func resolveInt(v Values, name string, fileVal int) (int, string) {
	if v.IsSet(name) {
		return v.Int(name), "cli"
	}
	if fileVal != 0 {
		return fileVal, "file"
	}
	return v.Int(name), "default"
}

func resolveString(v Values, name, fileVal string) string {
	if v.IsSet(name) {
		return v.String(name)
	}
	if fileVal != "" {
		return fileVal
	}
	return v.String(name)
}

// getEnvBool reads a boolean from environment variables, trying multiple keys.
// Returns nil if none are set, or a pointer to the boolean value.
func getEnvBool(keys ...string) *bool {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return &b
			}
		}
	}
	return nil
}
