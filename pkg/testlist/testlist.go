// Package testlist resolves a requested test set into concrete test files.
//
// A testlist is a JSON object mapping group names to arrays of
// [directory, filename_glob] pairs:
//
//	{
//	  "riscv_isa": [["sw/tests/isa", "rv32ui_*.test"]],
//	  "zmmul":     [["sw/tests/isa", "rv32um_*.test"]]
//	}
//
// Filters select whole groups by regular expression. A filter prefixed with
// "~" excludes matching groups.
package testlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ExcludePrefix marks a filter expression as an exclusion.
const ExcludePrefix = "~"

// Spec is one [directory, filename_glob] entry of a testlist group.
type Spec struct {
	Dir     string
	Pattern string
}

// UnmarshalJSON decodes the two-element array form used in testlist files.
func (s *Spec) UnmarshalJSON(b []byte) error {
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("entry must be [directory, pattern]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("entry must have exactly 2 elements, got %d", len(pair))
	}
	s.Dir, s.Pattern = pair[0], pair[1]
	return nil
}

// Group is a named bucket of test patterns.
type Group struct {
	Name  string
	Specs []Spec
}

// List holds testlist groups in file order.
type List struct {
	Groups []Group
}

// Load reads and parses a testlist file.
func Load(path string) (*List, error) {
	// #nosec G304 -- path is supplied by the user on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading testlist: %w", err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing testlist %s: %w", path, err)
	}
	return l, nil
}

// Parse decodes testlist JSON, preserving group order.
// A repeated group name replaces the earlier entries but keeps its position.
func Parse(data []byte) (*List, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("testlist must be a JSON object mapping group names to entries")
	}

	l := &List{}
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var specs []Spec
		if err := dec.Decode(&specs); err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		if i, dup := index[name]; dup {
			l.Groups[i].Specs = specs
			continue
		}
		index[name] = len(l.Groups)
		l.Groups = append(l.Groups, Group{Name: name, Specs: specs})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return l, nil
}

// Flatten returns every spec of every group in file order, duplicates included.
func (l *List) Flatten() []Spec {
	var out []Spec
	for _, g := range l.Groups {
		out = append(out, g.Specs...)
	}
	return out
}

// ParseFilters splits a comma-separated filter argument.
func ParseFilters(csv string) []string {
	var out []string
	for _, f := range strings.Split(csv, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Select applies group filters to the testlist.
//
// With at least one inclusive filter the result is every spec belonging to an
// included group and to no excluded group, deduplicated in first-seen order.
// With only exclusions the result is the flattened list minus the specs of
// excluded groups. No filters returns the flattened list.
func (l *List) Select(filters []string) ([]Spec, error) {
	flat := l.Flatten()
	if len(filters) == 0 {
		return flat, nil
	}

	var inc, exc []*regexp.Regexp
	for _, f := range filters {
		expr, exclude := strings.CutPrefix(f, ExcludePrefix)
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", f, err)
		}
		if exclude {
			exc = append(exc, re)
		} else {
			inc = append(inc, re)
		}
	}

	included := l.matching(inc)
	excluded := l.matching(exc)

	var out []Spec
	if len(inc) > 0 {
		seen := make(map[Spec]bool)
		for _, s := range flat {
			if included[s] && !excluded[s] && !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		return out, nil
	}

	for _, s := range flat {
		if !excluded[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

// matching collects the specs of every group whose name matches any expression.
func (l *List) matching(exprs []*regexp.Regexp) map[Spec]bool {
	set := make(map[Spec]bool)
	for _, g := range l.Groups {
		for _, re := range exprs {
			if re.MatchString(g.Name) {
				for _, s := range g.Specs {
					set[s] = true
				}
				break
			}
		}
	}
	return set
}
