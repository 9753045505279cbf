// Package exitcodes defines the process exit codes used by simrun.
//
// Individual test failures do not change the exit code unless strict mode is
// enabled; the printed suite verdict is the primary signal.
//
//   - Success (0): run completed (or --build_only finished)
//   - SuiteFailure (1): one or more tests did not pass and --strict is set
//   - RuntimeErr (2): invalid configuration, discovery or build failure
//   - Interrupted (130): run cancelled by SIGINT/SIGTERM
package exitcodes

const (
	Success      = 0
	SuiteFailure = 1
	RuntimeErr   = 2
	Interrupted  = 130
)
