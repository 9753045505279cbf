package status

import (
	"fmt"
	"os"
	"strings"
)

// FileName is the per-test status file.
const FileName = "test.status"

// Format renders a result in status file form: the status keyword and the
// message on the first line, then one indented line per diagnostic.
func (r Result) Format() string {
	var sb strings.Builder
	sb.WriteString(r.Status.String())
	if r.Message != "" {
		sb.WriteString(" ")
		sb.WriteString(r.Message)
	}
	sb.WriteString("\n")
	for _, d := range r.Diagnostics {
		sb.WriteString(indent)
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Write persists a result to path.
func Write(path string, r Result) error {
	if err := os.WriteFile(path, []byte(r.Format()), 0o644); err != nil { // #nosec G306 -- status files are meant to be read by users
		return fmt.Errorf("writing status %s: %w", path, err)
	}
	return nil
}

// Read loads a result written by Write. Errors from the filesystem are
// returned as is, so callers can test for os.ErrNotExist.
func Read(path string) (Result, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path built by the orchestrator
	if err != nil {
		return Result{}, err
	}
	return ParseFile(string(data)), nil
}

// ParseFile decodes status file content.
func ParseFile(content string) Result {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	keyword, message, _ := strings.Cut(lines[0], " ")
	r := Result{Status: Parse(keyword), Message: message}
	for _, l := range lines[1:] {
		if d := strings.TrimSpace(l); d != "" {
			r.Diagnostics = append(r.Diagnostics, d)
		}
	}
	return r
}
