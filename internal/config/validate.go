package config

import (
	"fmt"
	"strings"
)

// ValidationError reports an invalid combination of settings. It is raised
// before any build work starts.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

var validFormats = map[string]bool{"auto": true, "terminal": true, "llm": true, "json": true}

var validThemes = map[string]bool{"default": true, "orca": true, "mono": true}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	switch {
	case c.Test != "" && c.Testlist != "":
		return invalid("cannot use both -t|--test and --testlist. Choose one")
	case c.Test != "" && len(c.Filters) > 0:
		return invalid("cannot use -f|--filter with -t|--test. Filter can only be applied to testlist")
	case c.Test == "" && c.Testlist == "":
		return invalid("no test specified. Use -t|--test or --testlist")
	}
	if c.Jobs < 1 {
		return invalid("the number of parallel jobs must be at least 1, got %d", c.Jobs)
	}
	if c.TimeoutClocks < 1 {
		return invalid("timeout_clocks must be positive, got %d", c.TimeoutClocks)
	}
	if strings.TrimSpace(c.RunDir) == "" {
		return invalid("run directory cannot be empty")
	}
	if !validFormats[c.Format] {
		return invalid("invalid format %q (must be: auto, terminal, llm, json)", c.Format)
	}
	if !validThemes[c.Theme] {
		return invalid("invalid theme %q (must be: default, orca, mono)", c.Theme)
	}
	return nil
}
