package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/simrun/internal/exitcodes"
	"github.com/dkoosis/simrun/internal/metrics"
	"github.com/dkoosis/simrun/pkg/report"
)

const fakeMake = `#!/bin/sh
if [ "$1" = "elab" ]; then
  [ -n "$FAKE_BUILD_FAIL" ] && { echo "elaboration failed"; exit 1; }
  touch .elab.touchfile
  exit 0
fi
[ -n "$FAKE_SIM_FAIL" ] && { echo "==== FAIL ===="; exit 0; }
for a in "$@"; do
  case "$a" in TEST_PATH=*) tp="${a#TEST_PATH=}";; esac
done
case "$(basename "$tp")" in
  pass*) echo "==== PASS ====";;
  fail*) echo "ERROR: bad writeback"; echo "==== FAIL ====";;
  *) echo "no verdict";;
esac
`

type fixture struct {
	root     string
	config   string
	testlist string
	runDir   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	for _, n := range []string{"pass_add.S", "pass_sub.S", "fail_mul.S"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "isa"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "isa", n), nil, 0o600))
	}
	script := filepath.Join(root, "fakemake")
	require.NoError(t, os.WriteFile(script, []byte(fakeMake), 0o755))

	cfgPath := filepath.Join(root, "simrun.yaml")
	cfg := fmt.Sprintf("repo_root: %s\ntool:\n  make: %s\n  links: []\n", root, script)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	list := filepath.Join(root, "testlist.json")
	require.NoError(t, os.WriteFile(list, []byte(`{
  "smoke": [["isa", "pass_*.S"]],
  "mul":   [["isa", "fail_mul.S"]],
  "full":  [["isa", "pass_*.S"], ["isa", "fail_mul.S"]]
}`), 0o600))

	for _, k := range []string{"CI", "NO_COLOR", "SIMRUN_CI", "REPO_ROOT", "SIMRUN_JOBS", "SIMRUN_STRICT", "FAKE_BUILD_FAIL", "FAKE_SIM_FAIL"} {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
			os.Unsetenv(k)
		}
	}
	return fixture{root: root, config: cfgPath, testlist: list, runDir: filepath.Join(root, "run")}
}

func (f fixture) run(t *testing.T, extra ...string) (int, string, string) {
	t.Helper()
	args := append([]string{"simrun", "--config", f.config, "-r", f.runDir, "-j", "2", "--format", "llm"}, extra...)
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_TestlistSuite(t *testing.T) {
	f := newFixture(t)
	code, out, errOut := f.run(t, "--testlist", f.testlist, "-f", "full")
	require.Equal(t, exitcodes.Success, code, errOut)

	assert.Contains(t, out, "Applying filter(s): full")
	assert.Contains(t, out, "Testlist:")
	assert.Contains(t, out, "Running 3 test(s) total")
	assert.Contains(t, out, "Build done, runtime:")
	assert.Contains(t, out, "Test <isa_fail_mul> DONE. FAILED")
	assert.Contains(t, out, "SCOPE: 3 tests, 2 pass, 1 fail")
	assert.Contains(t, out, "VERDICT: FAILED 2/3 passed")
	assert.NotContains(t, out, "\033[")

	assert.FileExists(t, filepath.Join(f.runDir, report.TextFile))
	assert.FileExists(t, filepath.Join(f.runDir, report.JSONFile))
	assert.FileExists(t, filepath.Join(f.runDir, metrics.FileName))
	assert.FileExists(t, filepath.Join(f.runDir, "isa_pass_add", "test.status"))
}

func TestRun_StrictFailsSuite(t *testing.T) {
	f := newFixture(t)
	code, _, _ := f.run(t, "--testlist", f.testlist, "--strict")
	assert.Equal(t, exitcodes.SuiteFailure, code)

	code, out, _ := f.run(t, "--testlist", f.testlist, "-f", "smoke", "--strict")
	assert.Equal(t, exitcodes.Success, code)
	assert.Contains(t, out, "VERDICT: PASSED 2/2 passed")
}

func TestRun_ExclusionFilter(t *testing.T) {
	f := newFixture(t)
	code, out, _ := f.run(t, "--testlist", f.testlist, "-f", "full,~smoke")
	require.Equal(t, exitcodes.Success, code)
	assert.Contains(t, out, "Running 1 test(s) total")
	assert.Contains(t, out, "fail_mul")
	assert.NotContains(t, out, "Running test 1/1: <isa_pass_add>")
}

func TestRun_SingleTest(t *testing.T) {
	f := newFixture(t)
	code, out, _ := f.run(t, "-t", "isa/pass_add.S")
	require.Equal(t, exitcodes.Success, code)
	assert.Contains(t, out, "Running "+filepath.Join(f.root, "isa", "pass_add.S"))
	assert.Contains(t, out, "VERDICT: PASSED 1/1 passed")
}

func TestRun_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "test and testlist", args: []string{"-t", "isa/pass_add.S", "--testlist", f.testlist}, want: "cannot use both"},
		{name: "filter with test", args: []string{"-t", "isa/pass_add.S", "-f", "smoke"}, want: "cannot use -f|--filter"},
		{name: "nothing selected", args: nil, want: "no test specified"},
		{name: "zero jobs", args: []string{"-t", "isa/pass_add.S", "-j", "0"}, want: "at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := f.run(t, tt.args...)
			assert.Equal(t, exitcodes.RuntimeErr, code)
			assert.Contains(t, errOut, tt.want)
			assert.NoDirExists(t, f.runDir, "validation happens before any build")
		})
	}
}

func TestRun_NoMatchingTests(t *testing.T) {
	f := newFixture(t)
	code, _, errOut := f.run(t, "-t", "isa/missing.S")
	assert.Equal(t, exitcodes.RuntimeErr, code)
	assert.Contains(t, errOut, "no valid tests specified")
}

func TestRun_BuildOnly(t *testing.T) {
	f := newFixture(t)
	code, out, _ := f.run(t, "-t", "isa/pass_add.S", "-o")
	require.Equal(t, exitcodes.Success, code)
	assert.Contains(t, out, "Building done at <"+filepath.Join(f.runDir, "build")+">. Exiting")
	assert.NoDirExists(t, filepath.Join(f.runDir, "isa_pass_add"))
}

func TestRun_BuildFailure(t *testing.T) {
	f := newFixture(t)
	t.Setenv("FAKE_BUILD_FAIL", "1")
	code, _, errOut := f.run(t, "-t", "isa/pass_add.S")
	assert.Equal(t, exitcodes.RuntimeErr, code)
	assert.Contains(t, errOut, "build failed")
	assert.NoDirExists(t, filepath.Join(f.runDir, "isa_pass_add"))
}

func TestRun_JSONOutput(t *testing.T) {
	f := newFixture(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"simrun", "--config", f.config, "-r", f.runDir, "--testlist", f.testlist, "--format", "json"}, &stdout, &stderr)
	require.Equal(t, exitcodes.Success, code, stderr.String())

	var doc struct {
		Version string `json:"version"`
		Passed  *bool  `json:"passed"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc), stdout.String())
	assert.Equal(t, "1.0", doc.Version)
	require.NotNil(t, doc.Passed)
	assert.False(t, *doc.Passed)
	assert.Contains(t, stderr.String(), "Running test", "progress moves to stderr")
}

func TestRun_History(t *testing.T) {
	f := newFixture(t)
	db := filepath.Join(t.TempDir(), "history.db")

	code, out, _ := f.run(t, "--testlist", f.testlist, "-f", "smoke", "--history", db)
	require.Equal(t, exitcodes.Success, code)
	assert.NotContains(t, out, "Pass rate:", "nothing to compare on the first run")

	code, out, _ = f.run(t, "--testlist", f.testlist, "--history", db)
	require.Equal(t, exitcodes.Success, code)
	assert.Contains(t, out, "Pass rate: 100.0% -> 66.7%")
	assert.NotContains(t, out, "Status changes")
	assert.FileExists(t, db)

	t.Setenv("FAKE_SIM_FAIL", "1")
	code, out, _ = f.run(t, "--testlist", f.testlist, "-f", "smoke", "--history", db)
	require.Equal(t, exitcodes.Success, code)
	assert.Contains(t, out, "Status changes\n  isa_pass_add: PASSED -> FAILED\n  isa_pass_sub: PASSED -> FAILED\n")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitcodes.Success, exitCode(nil))
	assert.Equal(t, exitcodes.SuiteFailure, exitCode(errSuiteFailed))
	assert.Equal(t, exitcodes.Interrupted, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, exitcodes.RuntimeErr, exitCode(os.ErrPermission))
}
