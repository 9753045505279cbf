package testlist

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoValidTests is returned when discovery produces no test files.
var ErrNoValidTests = errors.New("no valid tests specified")

// DefaultWarningDelay gives the user time to notice unmatched patterns.
const DefaultWarningDelay = 3 * time.Second

// Test is a concrete test definition file.
type Test struct {
	Path string
}

// Name derives the display identifier: parent directory name and file stem.
// Names are used for run directories and are expected to be unique per run.
func (t Test) Name() string {
	return Name(t.Path)
}

// MakePath returns the test path with its extension stripped, the form the
// simulation build expects.
func (t Test) MakePath() string {
	return strings.TrimSuffix(t.Path, filepath.Ext(t.Path))
}

// Name derives a test name from a test file path.
func Name(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Base(filepath.Dir(path)) + "_" + stem
}

// Single builds the spec for single-test mode.
func Single(path string) Spec {
	return Spec{Dir: filepath.Dir(path), Pattern: filepath.Base(path)}
}

// Resolver expands specs against the filesystem.
type Resolver struct {
	// Root is joined with relative spec directories.
	Root string
	// Delay is waited after warnings when some tests remain.
	Delay time.Duration
	// Warn receives one message per unmatched pattern. Optional.
	Warn func(msg string)
}

// Resolve globs every spec and returns the matched files, deduplicated in
// first-seen order. Patterns matching nothing produce warnings; an empty
// result is ErrNoValidTests.
func (r *Resolver) Resolve(ctx context.Context, specs []Spec) ([]Test, error) {
	var tests []Test
	seen := make(map[string]bool)
	mismatched := false

	for _, s := range specs {
		dir := s.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.Root, dir)
		}
		matches, err := filepath.Glob(filepath.Join(dir, s.Pattern))
		if err != nil {
			return nil, fmt.Errorf("pattern %q in %q: %w", s.Pattern, s.Dir, err)
		}
		if len(matches) == 0 {
			mismatched = true
			r.warn(fmt.Sprintf("No files match the pattern <%s> in <%s>.", s.Pattern, s.Dir))
			continue
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			tests = append(tests, Test{Path: m})
		}
	}

	if len(tests) == 0 {
		return nil, ErrNoValidTests
	}
	if mismatched {
		r.warn("Some test names are invalid. Check the test name/testlist. Proceeding with the valid tests")
		if r.Delay > 0 {
			t := time.NewTimer(r.Delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return tests, nil
}

func (r *Resolver) warn(msg string) {
	if r.Warn != nil {
		r.Warn(msg)
	}
}
