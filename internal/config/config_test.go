package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dkoosis/simrun/internal/flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

var testNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

// resolveArgs parses args with the real flag set and resolves them.
func resolveArgs(t *testing.T, file *FileConfig, args ...string) *Config {
	t.Helper()
	var got *Config
	app := &cli.App{
		Name:  "simrun",
		Flags: flags.Flags(),
		Action: func(c *cli.Context) error {
			got = Resolve(c, file, testNow)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"simrun"}, args...)))
	require.NotNil(t, got)
	return got
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NO_COLOR", "CI", "SIMRUN_CI", "SIMRUN_JOBS", "SIMRUN_THEME", "REPO_ROOT", "SIMRUN_REPO_ROOT", "SIMRUN_STRICT"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestResolve_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := resolveArgs(t, nil, "--testlist", "tl.json")

	assert.Equal(t, "tl.json", cfg.Testlist)
	assert.Equal(t, runtime.NumCPU(), cfg.Jobs)
	assert.Equal(t, "default", cfg.JobsSource)
	assert.Equal(t, flags.DefaultTimeoutClocks, cfg.TimeoutClocks)
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "default", cfg.Theme)
	assert.Equal(t, "testrun_2024-03-09_14-05-07", cfg.RunDir)
	assert.False(t, cfg.Strict)
	require.NoError(t, cfg.Validate())
}

func TestResolve_ShortFlags(t *testing.T) {
	clearEnv(t)
	cfg := resolveArgs(t, nil,
		"--testlist", "tl.json", "-f", "riscv_isa, ~zmmul", "-r", "myrun",
		"-k", "-b", "-p", "-o", "-j", "3", "-c", "42", "-v", "INFO", "--log_wave", "--log_vcd")

	assert.Equal(t, []string{"riscv_isa", "~zmmul"}, cfg.Filters)
	assert.Equal(t, "myrun", cfg.RunDir)
	assert.True(t, cfg.KeepBuild)
	assert.True(t, cfg.RebuildAll)
	assert.True(t, cfg.KeepPass)
	assert.True(t, cfg.BuildOnly)
	assert.Equal(t, 3, cfg.Jobs)
	assert.Equal(t, "cli", cfg.JobsSource)
	assert.Equal(t, 42, cfg.TimeoutClocks)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.True(t, cfg.LogWave)
	assert.True(t, cfg.LogVCD)
	assert.Equal(t, []string{"--rebuild_all takes priority over --keep_build"}, cfg.Warnings())
}

func TestResolve_PriorityOrder(t *testing.T) {
	file := &FileConfig{Jobs: 5, Theme: "orca", RepoRoot: "/from/file", Strict: true}

	t.Run("file beats defaults", func(t *testing.T) {
		clearEnv(t)
		cfg := resolveArgs(t, file, "-t", "a/b.S")
		assert.Equal(t, 5, cfg.Jobs)
		assert.Equal(t, "file", cfg.JobsSource)
		assert.Equal(t, "orca", cfg.Theme)
		assert.Equal(t, "file", cfg.ThemeSource)
		assert.Equal(t, "/from/file", cfg.RepoRoot)
		assert.True(t, cfg.Strict)
	})

	t.Run("env beats file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SIMRUN_JOBS", "7")
		t.Setenv("REPO_ROOT", "/from/env")
		cfg := resolveArgs(t, file, "-t", "a/b.S")
		assert.Equal(t, 7, cfg.Jobs)
		assert.Equal(t, "/from/env", cfg.RepoRoot)
	})

	t.Run("cli beats env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SIMRUN_JOBS", "7")
		cfg := resolveArgs(t, file, "-t", "a/b.S", "-j", "2", "--theme", "default", "--strict=false")
		assert.Equal(t, 2, cfg.Jobs)
		assert.Equal(t, "default", cfg.Theme)
		assert.Equal(t, "cli", cfg.ThemeSource)
		assert.False(t, cfg.Strict)
	})
}

func TestResolve_NoColorAndCISelectMono(t *testing.T) {
	clearEnv(t)
	t.Setenv("NO_COLOR", "1")
	cfg := resolveArgs(t, nil, "-t", "x.S", "--theme", "orca", "--tui")
	assert.Equal(t, "mono", cfg.Theme)
	assert.True(t, cfg.TUI)

	clearEnv(t)
	t.Setenv("CI", "true")
	cfg = resolveArgs(t, nil, "-t", "x.S", "--tui")
	assert.Equal(t, "mono", cfg.Theme)
	assert.Equal(t, "env", cfg.ThemeSource)
	assert.False(t, cfg.TUI)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Testlist: "tl.json", Jobs: 1, TimeoutClocks: 1, RunDir: "r", Format: "auto", Theme: "default"}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "both test and testlist", mutate: func(c *Config) { c.Test = "a.S" }, wantErr: "cannot use both"},
		{name: "filter with test", mutate: func(c *Config) { c.Testlist = ""; c.Test = "a.S"; c.Filters = []string{"x"} }, wantErr: "cannot use -f|--filter"},
		{name: "neither", mutate: func(c *Config) { c.Testlist = "" }, wantErr: "no test specified"},
		{name: "zero jobs", mutate: func(c *Config) { c.Jobs = 0 }, wantErr: "at least 1"},
		{name: "negative jobs", mutate: func(c *Config) { c.Jobs = -4 }, wantErr: "at least 1"},
		{name: "zero timeout", mutate: func(c *Config) { c.TimeoutClocks = 0 }, wantErr: "timeout_clocks"},
		{name: "bad format", mutate: func(c *Config) { c.Format = "xml" }, wantErr: "invalid format"},
		{name: "bad theme", mutate: func(c *Config) { c.Theme = "neon" }, wantErr: "invalid theme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWarnings_KeepPassWithoutKeepBuild(t *testing.T) {
	c := &Config{KeepPass: true}
	require.Len(t, c.Warnings(), 1)
	assert.Contains(t, c.Warnings()[0], "--keep_pass")
}

func TestGetConfigPath_ReturnsLocalConfig_When_FileExists(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("jobs: 2\n"), 0o600))

	assert.Equal(t, FileName, getConfigPath())
}

func TestGetConfigPath_UsesXDGPath_When_LocalMissing(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	xdgRoot := filepath.Join(dir, "xdg")
	require.NoError(t, os.MkdirAll(filepath.Join(xdgRoot, "simrun"), 0o755))
	configPath := filepath.Join(xdgRoot, "simrun", FileName)
	require.NoError(t, os.WriteFile(configPath, []byte("jobs: 2\n"), 0o600))
	t.Setenv("XDG_CONFIG_HOME", xdgRoot)
	t.Setenv("HOME", filepath.Join(dir, "home"))

	assert.Equal(t, configPath, getConfigPath())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))

	fc, path, err := LoadFile("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, &FileConfig{}, fc)

	explicit := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte(`
jobs: 6
timeout_clocks: 1000
theme: orca
tool:
  make: gmake
  links: [Makefile]
  vars: []
`), 0o600))
	fc, path, err = LoadFile(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	assert.Equal(t, 6, fc.Jobs)
	assert.Equal(t, 1000, fc.TimeoutClocks)
	assert.Equal(t, "orca", fc.Theme)
	assert.Equal(t, "gmake", fc.Tool.Make)
	assert.Equal(t, []string{"Makefile"}, fc.Tool.Links)
	assert.NotNil(t, fc.Tool.Vars)
	assert.Empty(t, fc.Tool.Vars)

	_, _, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(explicit, []byte("jobs: [oops"), 0o600))
	_, _, err = LoadFile(explicit)
	assert.ErrorContains(t, err, "parsing config file")
}
