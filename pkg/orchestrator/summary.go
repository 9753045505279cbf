package orchestrator

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/dkoosis/simrun/pkg/status"
	"github.com/dkoosis/simrun/pkg/testlist"
)

// Entry is the collected outcome of one test.
type Entry struct {
	Name string
	Path string
	Dir  string
	// Found is false when no status file exists for the test.
	Found    bool
	Result   status.Result
	Skipped  bool
	Duration time.Duration
	Err      error
}

// Passed reports whether the test has a PASSED status on disk.
func (e Entry) Passed() bool { return e.Found && e.Result.Status == status.Passed }

// Summary is the suite outcome in test order.
type Summary struct {
	RunDir        string
	Entries       []Entry
	BuildDuration time.Duration
	SimDuration   time.Duration
}

// Total returns the number of tests in the suite.
func (s *Summary) Total() int { return len(s.Entries) }

// PassCount returns the number of passed tests.
func (s *Summary) PassCount() int {
	n := 0
	for _, e := range s.Entries {
		if e.Passed() {
			n++
		}
	}
	return n
}

// Ratio returns the pass rate in [0, 1].
func (s *Summary) Ratio() float64 {
	if len(s.Entries) == 0 {
		return 0
	}
	return float64(s.PassCount()) / float64(len(s.Entries))
}

// Passed is the suite verdict: every test has a PASSED status.
func (s *Summary) Passed() bool {
	return len(s.Entries) > 0 && s.PassCount() == len(s.Entries)
}

// Failed lists tests with a status other than PASSED.
func (s *Summary) Failed() []string {
	var out []string
	for _, e := range s.Entries {
		if e.Found && !e.Passed() {
			out = append(out, e.Name)
		}
	}
	return out
}

// Missing lists tests without a status file.
func (s *Summary) Missing() []string {
	var out []string
	for _, e := range s.Entries {
		if !e.Found {
			out = append(out, e.Name)
		}
	}
	return out
}

// Errors returns the per-test execution errors in test order.
func (s *Summary) Errors() []error {
	var out []error
	for _, e := range s.Entries {
		if e.Err != nil {
			out = append(out, e.Err)
		}
	}
	return out
}

// Counts tallies entries that have a status file by status. A status file
// that could not be parsed counts as status.Unknown; tests without one are
// listed by Missing.
func (s *Summary) Counts() map[status.Status]int {
	counts := make(map[status.Status]int)
	for _, e := range s.Entries {
		if e.Found {
			counts[e.Result.Status]++
		}
	}
	return counts
}

// Collect re-reads the status file of every test dispatched by Run, including
// passed tests kept with KeepPass. Tests that were never dispatched, e.g.
// after an interrupt, are reported without a status even if an earlier run
// left one on disk.
func (o *Orchestrator) Collect(tests []testlist.Test) *Summary {
	s := &Summary{
		RunDir:        o.layout.Root,
		BuildDuration: o.buildTime,
		SimDuration:   o.simTime,
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range tests {
		name := t.Name()
		e := Entry{
			Name:     name,
			Path:     t.Path,
			Dir:      o.layout.TestDir(name),
			Skipped:  o.skipped[name],
			Duration: o.durations[name],
			Err:      o.errs[name],
		}
		if !o.dispatched[name] {
			s.Entries = append(s.Entries, e)
			continue
		}
		r, err := status.Read(o.layout.StatusPath(name))
		switch {
		case err == nil:
			e.Found = true
			e.Result = r
		case !errors.Is(err, os.ErrNotExist):
			slog.Warn("reading test status", "test", name, "error", err)
		}
		s.Entries = append(s.Entries, e)
	}
	return s
}
