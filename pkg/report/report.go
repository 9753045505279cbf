// Package report writes the suite summary files kept in the run directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dkoosis/simrun/pkg/orchestrator"
)

// File names written into the run directory.
const (
	TextFile = "summary.txt"
	JSONFile = "summary.json"
)

// WriteText writes the summary as a plain table.
func WriteText(path string, sum *orchestrator.Summary) error {
	if err := os.WriteFile(path, []byte(Table(sum)), 0o644); err != nil { // #nosec G306 -- report is meant to be shared
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Table formats the summary as a go-pretty table with a totals footer.
func Table(sum *orchestrator.Summary) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Test suite results (%s)", orchestrator.FormatRuntime(sum.SimDuration)))
	t.AppendHeader(table.Row{"#", "Test", "Status", "Duration", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, e := range sum.Entries {
		t.AppendRow(table.Row{i + 1, e.Name, statusString(e), duration(e), errString(e)})
	}
	t.AppendFooter(table.Row{
		"", "Total", fmt.Sprintf("%d/%d passed", sum.PassCount(), sum.Total()), "", verdictString(sum),
	})
	return t.Render() + "\n"
}

// Document is the JSON form of a summary.
type Document struct {
	RunDir        string      `json:"run_dir"`
	Passed        bool        `json:"passed"`
	PassCount     int         `json:"pass_count"`
	Total         int         `json:"total"`
	Ratio         float64     `json:"ratio"`
	BuildDuration float64     `json:"build_seconds"`
	SimDuration   float64     `json:"simulation_seconds"`
	Failed        []string    `json:"failed"`
	Missing       []string    `json:"missing"`
	Tests         []TestEntry `json:"tests"`
}

// TestEntry is one test in a Document.
type TestEntry struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Duration    float64  `json:"seconds"`
	Kept        bool     `json:"kept,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// NewDocument builds the JSON form of sum.
func NewDocument(sum *orchestrator.Summary) Document {
	doc := Document{
		RunDir:        sum.RunDir,
		Passed:        sum.Passed(),
		PassCount:     sum.PassCount(),
		Total:         sum.Total(),
		Ratio:         sum.Ratio(),
		BuildDuration: sum.BuildDuration.Seconds(),
		SimDuration:   sum.SimDuration.Seconds(),
		Failed:        nonNil(sum.Failed()),
		Missing:       nonNil(sum.Missing()),
		Tests:         make([]TestEntry, 0, len(sum.Entries)),
	}
	for _, e := range sum.Entries {
		doc.Tests = append(doc.Tests, TestEntry{
			Name:        e.Name,
			Path:        e.Path,
			Status:      statusString(e),
			Message:     e.Result.Message,
			Diagnostics: e.Result.Diagnostics,
			Duration:    e.Duration.Seconds(),
			Kept:        e.Skipped,
			Error:       errString(e),
		})
	}
	return doc
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(path string, sum *orchestrator.Summary) error {
	data, err := json.MarshalIndent(NewDocument(sum), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { // #nosec G306 -- report is meant to be shared
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func statusString(e orchestrator.Entry) string {
	if !e.Found {
		return "MISSING"
	}
	return e.Result.Status.String()
}

func duration(e orchestrator.Entry) string {
	if e.Skipped {
		return "kept"
	}
	if e.Duration <= 0 {
		return "-"
	}
	return e.Duration.Round(time.Millisecond).String()
}

func errString(e orchestrator.Entry) string {
	if e.Err == nil {
		return ""
	}
	return strings.TrimSpace(e.Err.Error())
}

func verdictString(sum *orchestrator.Summary) string {
	if sum.Passed() {
		return "PASSED"
	}
	return "FAILED"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
