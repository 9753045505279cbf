package render

import (
	"fmt"
	"strings"

	"github.com/dkoosis/simrun/pkg/pattern"
)

// maxDetailLines bounds the diagnostics printed per test.
const maxDetailLines = 3

// LLM renders patterns as terse plain text optimized for AI consumption.
// Zero ANSI codes, a SCOPE line first, failures before passes.
type LLM struct{}

// NewLLM creates an LLM renderer.
func NewLLM() *LLM {
	return &LLM{}
}

// Render formats all patterns for LLM consumption.
func (l *LLM) Render(patterns []pattern.Pattern) string {
	var sb strings.Builder
	for _, p := range patterns {
		if v, ok := p.(*pattern.Verdict); ok {
			sb.WriteString("SCOPE: " + scope(v, patterns) + "\n")
		}
	}
	for _, p := range patterns {
		switch v := p.(type) {
		case *pattern.TestTable:
			l.renderTestTable(&sb, v)
		case *pattern.Summary:
			switch v.Kind {
			case pattern.SummaryKindRuntime:
				sb.WriteString("\n")
				for _, m := range v.Metrics {
					sb.WriteString(m.Label + " runtime: " + m.Value + "\n")
				}
			case pattern.SummaryKindChanges:
				sb.WriteString("\n" + v.Label + "\n")
				for _, m := range v.Metrics {
					sb.WriteString("  " + m.Label + ": " + m.Value + "\n")
				}
			}
		case *pattern.Leaderboard:
			if len(v.Items) > 0 {
				sb.WriteString("\n" + v.Label + "\n")
				for _, item := range v.Items {
					sb.WriteString(fmt.Sprintf("  %d. %s %s\n", item.Rank, item.Name, item.Metric))
				}
			}
		case *pattern.Comparison:
			for _, c := range v.Changes {
				sb.WriteString(fmt.Sprintf("\n%s: %s -> %s\n", c.Label, c.Before, c.After))
			}
		case *pattern.Verdict:
			verdict := "FAILED"
			if v.Passed {
				verdict = "PASSED"
			}
			sb.WriteString(fmt.Sprintf("\nVERDICT: %s %d/%d passed\n", verdict, v.PassCount, v.Total))
		}
	}
	return sb.String()
}

func (l *LLM) renderTestTable(sb *strings.Builder, t *pattern.TestTable) {
	sb.WriteString("\n")
	// failures first, preserving test order within each group
	for _, pass := range []bool{false, true} {
		for _, item := range t.Results {
			if (item.Status == pattern.StatusPass) != pass {
				continue
			}
			sb.WriteString("  " + strings.ToUpper(item.Status) + " " + item.Name)
			if item.Duration != "" {
				sb.WriteString(" (" + item.Duration + ")")
			}
			if item.Kept {
				sb.WriteString(" [kept]")
			}
			sb.WriteString("\n")
			if pass {
				continue
			}
			if item.Message != "" {
				sb.WriteString("    " + item.Message + "\n")
			}
			if item.Details == "" {
				continue
			}
			lines := strings.Split(item.Details, "\n")
			for _, line := range lines[:min(maxDetailLines, len(lines))] {
				sb.WriteString("    " + line + "\n")
			}
			if len(lines) > maxDetailLines {
				sb.WriteString(fmt.Sprintf("    ... (%d more lines)\n", len(lines)-maxDetailLines))
			}
		}
	}
}

func scope(v *pattern.Verdict, patterns []pattern.Pattern) string {
	counts := map[string]int{}
	for _, p := range patterns {
		if t, ok := p.(*pattern.TestTable); ok {
			for _, item := range t.Results {
				counts[item.Status]++
			}
		}
	}
	parts := []string{fmt.Sprintf("%d tests", v.Total)}
	for _, st := range []string{
		pattern.StatusPass, pattern.StatusFail, pattern.StatusInconclusive,
		pattern.StatusMissing, pattern.StatusError,
	} {
		if counts[st] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[st], st))
		}
	}
	return strings.Join(parts, ", ")
}
