package simtool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMake writes an executable shell script standing in for make.
func fakeMake(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakemake")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestBuildCommand(t *testing.T) {
	tool := New(Config{})
	assert.Equal(t,
		[]string{"make", "elab", "ISA_SIM_BDIR=build_obj_runtest", "COSIM_BDIR=build_runtest", "-j8"},
		tool.BuildCommand(8, false))
	assert.Equal(t, "-B", last(tool.BuildCommand(8, true)))
}

func TestSimCommand(t *testing.T) {
	tool := New(Config{Make: "gmake", Vars: []string{}})
	argv := tool.SimCommand("/repo/sw/isa/add", "/run/run_cfg_suite.tcl", SimArgs{TimeoutClocks: 500000, LogLevel: "WARN"})
	assert.Equal(t, []string{
		"gmake", "sim",
		"TEST_PATH=/repo/sw/isa/add",
		"RUN_CFG=/run/run_cfg_suite.tcl",
		"TIMEOUT_CLOCKS=500000",
		"LOG_LEVEL=WARN",
		"UNIQUE_WDB=0",
		"TO_LOG=0",
	}, argv)
}

func TestRunConfig(t *testing.T) {
	plain := RunConfig(Waves{})
	assert.True(t, strings.HasPrefix(plain, "# AUTOMATICALLY GENERATED FILE. DO NOT EDIT.\n"))
	assert.Contains(t, plain, "run all\n")
	assert.NotContains(t, plain, "log_wave")
	assert.NotContains(t, plain, "vcd")
	assert.True(t, strings.HasSuffix(plain, "exit\n"))

	both := RunConfig(Waves{WDB: true, VCD: true})
	lines := strings.Split(strings.TrimSpace(both), "\n")
	assert.Equal(t, []string{
		"# AUTOMATICALLY GENERATED FILE. DO NOT EDIT.",
		"set start [expr {[clock seconds] - 1}]",
		"log_wave -recursive *",
		"open_vcd test_wave.vcd",
		"log_vcd *",
		"run all",
		"close_vcd",
		`puts "Simulation runtime: [expr {[clock seconds] - $start}]s"`,
		"exit",
	}, lines)

	path := filepath.Join(t.TempDir(), RunConfigName)
	require.NoError(t, WriteRunConfig(path, Waves{VCD: true}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, RunConfig(Waves{VCD: true}), string(data))
}

func TestExec_CapturesCombinedOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")
	err := Exec(context.Background(), dir, []string{"bash", "-c", "echo out; echo err 1>&2; pwd"}, logPath)
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "out\n")
	assert.Contains(t, string(data), "err\n")
	assert.Contains(t, string(data), filepath.Base(dir))
}

func TestExec_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")
	err := Exec(context.Background(), dir, []string{"bash", "-c", "echo broken; exit 3"}, logPath)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, logPath, exitErr.LogPath)

	data, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.Equal(t, "broken\n", string(data))
}

func TestExec_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Exec(ctx, dir, []string{"bash", "-c", "sleep 30 & wait"}, filepath.Join(dir, "test.log"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestOutcome(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	argv := []string{"make", "sim"}
	runFailed := errors.New("signal: terminated")

	assert.NoError(t, outcome(cancelled, nil, argv, "test.log"), "a clean exit wins over a late cancel")
	assert.ErrorIs(t, outcome(cancelled, runFailed, argv, "test.log"), context.Canceled)

	err := outcome(context.Background(), runFailed, argv, "test.log")
	assert.ErrorIs(t, err, runFailed)
	assert.Contains(t, err.Error(), "running make")
}

func TestExec_EmptyCommand(t *testing.T) {
	assert.Error(t, Exec(context.Background(), t.TempDir(), nil, filepath.Join(t.TempDir(), "x.log")))
}

func TestBuild_Success(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "Makefile"), []byte("all:\n"), 0o600))

	script := fakeMake(t, `echo "building $*"; touch .elab.touchfile`)
	tool := New(Config{Make: script, Links: []string{"Makefile"}, SourceDir: src})

	buildDir := filepath.Join(t.TempDir(), "build")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "stale"), nil, 0o600))

	require.NoError(t, tool.Build(context.Background(), buildDir, 4, true))
	assert.True(t, tool.BuildComplete(buildDir))
	assert.NoFileExists(t, filepath.Join(buildDir, "stale"))

	target, err := os.Readlink(filepath.Join(buildDir, "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(src, "Makefile"), target)

	log, err := os.ReadFile(filepath.Join(buildDir, BuildLogName))
	require.NoError(t, err)
	assert.Contains(t, string(log), "building elab ISA_SIM_BDIR=build_obj_runtest COSIM_BDIR=build_runtest -j4 -B")
}

func TestBuild_FailureKeepsLog(t *testing.T) {
	script := fakeMake(t, `echo "elaboration error" >&2; exit 2`)
	tool := New(Config{Make: script, Links: []string{}})

	buildDir := filepath.Join(t.TempDir(), "build")
	err := tool.Build(context.Background(), buildDir, 1, false)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, filepath.Join(buildDir, BuildLogName), buildErr.LogPath)
	assert.False(t, tool.BuildComplete(buildDir))

	log, readErr := os.ReadFile(buildErr.LogPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(log), "elaboration error")
}

func TestWriteRerunScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), RerunScriptName)
	require.NoError(t, WriteRerunScript(path, []string{"make", "sim", "TEST_PATH=/a b/c", "LOG_LEVEL=WARN"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\nmake sim 'TEST_PATH=/a b/c' LOG_LEVEL=WARN\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o100)
}

func last(s []string) string { return s[len(s)-1] }
