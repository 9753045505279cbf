// Package config resolves the simrun run configuration.
//
// # Configuration Precedence
//
// Values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--jobs, --theme, --repo_root, ...)
//  2. Environment variables (SIMRUN_JOBS, SIMRUN_THEME, REPO_ROOT, NO_COLOR, CI)
//  3. YAML config file (.simrun.yaml in the working directory or
//     ~/.config/simrun/.simrun.yaml)
//  4. Hardcoded defaults
//
// Flags and their SIMRUN_* environment variables are parsed together by
// urfave/cli, so "set" below means set by either of the two top sources.
//
// # Config file
//
// The file carries run defaults and the make flow description:
//
//	jobs: 8
//	timeout_clocks: 1000000
//	theme: orca
//	tool:
//	  make: gmake
//	  links: [Makefile, Makefile.inc, cosim]
//
// # Environment Variables
//
//   - NO_COLOR: any non-empty value selects the mono theme
//   - CI: "true" or "1" selects the mono theme and disables the live view
package config
