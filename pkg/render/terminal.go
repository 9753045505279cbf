package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dkoosis/simrun/pkg/pattern"
)

const (
	maxNameWidth = 60
	maxBarWidth  = 40
	indent       = "    "
)

// Terminal renders patterns as styled terminal output via lipgloss.
type Terminal struct {
	theme Theme
	width int
	title cases.Caser
}

// NewTerminal creates a terminal renderer with the given theme.
func NewTerminal(theme Theme, width int) *Terminal {
	if width <= 0 {
		width = 80
	}
	return &Terminal{theme: theme, width: width, title: cases.Title(language.English)}
}

// Render formats all patterns for terminal display.
func (t *Terminal) Render(patterns []pattern.Pattern) string {
	var sections []string
	for _, p := range patterns {
		s := t.renderOne(p)
		if s != "" {
			sections = append(sections, s)
		}
	}
	return strings.Join(sections, "\n")
}

func (t *Terminal) renderOne(p pattern.Pattern) string {
	switch v := p.(type) {
	case *pattern.Summary:
		return t.renderSummary(v)
	case *pattern.Leaderboard:
		return t.renderLeaderboard(v)
	case *pattern.TestTable:
		return t.renderTestTable(v)
	case *pattern.Sparkline:
		return t.renderSparkline(v)
	case *pattern.Comparison:
		return t.renderComparison(v)
	case *pattern.Verdict:
		return t.renderVerdict(v)
	default:
		return ""
	}
}

func (t *Terminal) renderSummary(s *pattern.Summary) string {
	var sb strings.Builder
	if s.Kind == pattern.SummaryKindRuntime {
		for _, m := range s.Metrics {
			sb.WriteString(t.theme.Muted.Render(m.Label + " runtime: " + m.Value))
			sb.WriteString("\n")
		}
		return sb.String()
	}
	if s.Label != "" {
		sb.WriteString(t.theme.Bold.Render(s.Label))
		sb.WriteString("\n")
	}
	for _, m := range s.Metrics {
		sb.WriteString("  ")
		icon, style := t.iconStyle(m.Kind)
		sb.WriteString(style.Render(icon + " " + m.Label + ": " + m.Value))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) renderTestTable(tt *pattern.TestTable) string {
	if len(tt.Results) == 0 {
		return ""
	}
	var sb strings.Builder
	if tt.Label != "" {
		sb.WriteString(t.theme.Bold.Render(tt.Label))
		sb.WriteString("\n")
	}

	maxName, maxLabel, maxDur := 0, 0, 0
	for _, r := range tt.Results {
		maxName = max(maxName, runewidth.StringWidth(r.Name))
		maxLabel = max(maxLabel, runewidth.StringWidth(t.statusLabel(r)))
		maxDur = max(maxDur, runewidth.StringWidth(r.Duration))
	}
	maxName = min(maxName, maxNameWidth)

	for _, r := range tt.Results {
		icon, style := t.statusIconStyle(r.Status)
		if r.Kept {
			icon = t.theme.Icons.Kept
		}
		sb.WriteString("  ")
		sb.WriteString(style.Render(icon + " " + padRight(t.statusLabel(r), maxLabel)))
		sb.WriteString("  ")
		sb.WriteString(padRight(runewidth.Truncate(r.Name, maxName, "..."), maxName))
		if maxDur > 0 {
			sb.WriteString("  ")
			sb.WriteString(t.theme.Muted.Render(padLeft(r.Duration, maxDur)))
		}
		sb.WriteString("\n")

		if r.Status == pattern.StatusPass {
			continue
		}
		if r.Message != "" {
			sb.WriteString(indent)
			sb.WriteString(style.Render(r.Message))
			sb.WriteString("\n")
		}
		if r.Details != "" {
			for _, line := range strings.Split(r.Details, "\n") {
				sb.WriteString(indent + indent)
				sb.WriteString(t.theme.Muted.Render(line))
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func (t *Terminal) statusLabel(r pattern.TestTableItem) string {
	if r.Kept {
		return "Kept"
	}
	return t.title.String(r.Status)
}

func (t *Terminal) renderVerdict(v *pattern.Verdict) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Test suite DONE. Pass rate: %d/%d passed; ", v.PassCount, v.Total))
	if v.Passed {
		sb.WriteString(t.theme.Success.Render("Test suite PASSED."))
	} else {
		sb.WriteString(t.theme.Error.Render("Test suite FAILED."))
	}
	sb.WriteString("\n")
	sb.WriteString(t.passBar(v.Ratio()))
	sb.WriteString("\n")

	if len(v.Failed) > 0 {
		sb.WriteString("\nFailed tests:\n")
		for _, name := range v.Failed {
			sb.WriteString(indent)
			sb.WriteString(t.theme.Error.Render(name))
			sb.WriteString("\n")
		}
	}
	if len(v.Missing) > 0 {
		sb.WriteString("\nTests without status:\n")
		for _, name := range v.Missing {
			sb.WriteString(indent)
			sb.WriteString(t.theme.Warning.Render(name))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// passBar draws the pass rate with the bubbles progress bar.
func (t *Terminal) passBar(ratio float64) string {
	opts := []progress.Option{progress.WithWidth(min(maxBarWidth, t.width))}
	if t.theme.BarFill == "" {
		opts = append(opts,
			progress.WithColorProfile(termenv.Ascii),
			progress.WithFillCharacters('#', '-'))
	} else {
		opts = append(opts, progress.WithSolidFill(t.theme.BarFill))
	}
	bar := progress.New(opts...)
	return bar.ViewAs(ratio)
}

func (t *Terminal) renderLeaderboard(l *pattern.Leaderboard) string {
	if len(l.Items) == 0 {
		return ""
	}
	var sb strings.Builder
	if l.Label != "" {
		header := l.Label
		if l.TotalCount > len(l.Items) {
			header += fmt.Sprintf(" (top %d of %d)", len(l.Items), l.TotalCount)
		}
		sb.WriteString(t.theme.Bold.Render(header))
		sb.WriteString("\n")
	}

	maxName, maxMetric := 0, 0
	for _, item := range l.Items {
		maxName = max(maxName, runewidth.StringWidth(item.Name))
		maxMetric = max(maxMetric, runewidth.StringWidth(item.Metric))
	}
	maxName = min(maxName, maxNameWidth)

	for _, item := range l.Items {
		sb.WriteString("  ")
		if l.ShowRank {
			sb.WriteString(t.theme.Muted.Render(fmt.Sprintf("%2d. ", item.Rank)))
		}
		name := runewidth.Truncate(item.Name, maxName, "...")
		sb.WriteString(t.theme.Primary.Render(padRight(name, maxName)))
		sb.WriteString("  ")
		sb.WriteString(t.theme.Warning.Render(padLeft(item.Metric, maxMetric)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) renderSparkline(s *pattern.Sparkline) string {
	if len(s.Values) == 0 {
		return ""
	}
	var sb strings.Builder
	if s.Label != "" {
		sb.WriteString(t.theme.Primary.Render(s.Label + ": "))
	}
	sb.WriteString(t.theme.Success.Render(spark(s)))
	latest := s.Values[len(s.Values)-1]
	sb.WriteString(t.theme.Muted.Render(fmt.Sprintf(" %.1f%s", latest, s.Unit)))
	sb.WriteString("\n")
	return sb.String()
}

// spark maps values onto eight block heights.
func spark(s *pattern.Sparkline) string {
	minVal, maxVal := s.Min, s.Max
	if minVal == 0 && maxVal == 0 {
		minVal, maxVal = s.Values[0], s.Values[0]
		for _, v := range s.Values {
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)
		}
	}
	valueRange := maxVal - minVal
	if valueRange == 0 {
		valueRange = 1
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	var out strings.Builder
	for _, v := range s.Values {
		idx := int((v - minVal) / valueRange * 7)
		out.WriteRune(blocks[max(0, min(7, idx))])
	}
	return out.String()
}

func (t *Terminal) renderComparison(c *pattern.Comparison) string {
	if len(c.Changes) == 0 {
		return ""
	}
	var sb strings.Builder
	if c.Label != "" {
		sb.WriteString(t.theme.Bold.Render(c.Label))
		sb.WriteString("\n")
	}
	for _, item := range c.Changes {
		sb.WriteString("  ")
		sb.WriteString(item.Label + ": ")
		sb.WriteString(t.theme.Muted.Render(item.Before + " → " + item.After))
		sb.WriteString(" ")

		arrow, better := "=", false
		switch {
		case item.Change > 0:
			arrow, better = "↑", item.HigherIsBetter
		case item.Change < 0:
			arrow, better = "↓", !item.HigherIsBetter
		}
		style := t.theme.Muted
		if item.Change != 0 {
			style = t.theme.Warning
			if better {
				style = t.theme.Success
			}
		}
		abs := item.Change
		if abs < 0 {
			abs = -abs
		}
		sb.WriteString(style.Render(fmt.Sprintf("%s %.1f%s", arrow, abs, item.Unit)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Terminal) iconStyle(kind string) (string, lipgloss.Style) {
	switch kind {
	case "success":
		return t.theme.Icons.Pass, t.theme.Success
	case "error":
		return t.theme.Icons.Fail, t.theme.Error
	case "warning":
		return t.theme.Icons.Missing, t.theme.Warning
	default:
		return t.theme.Icons.Info, t.theme.Primary
	}
}

func (t *Terminal) statusIconStyle(status string) (string, lipgloss.Style) {
	switch status {
	case pattern.StatusPass:
		return t.theme.Icons.Pass, t.theme.Success
	case pattern.StatusFail:
		return t.theme.Icons.Fail, t.theme.Error
	case pattern.StatusInconclusive:
		return t.theme.Icons.Inconclusive, t.theme.Error
	case pattern.StatusMissing:
		return t.theme.Icons.Missing, t.theme.Warning
	case pattern.StatusError:
		return t.theme.Icons.Error, t.theme.Error
	default:
		return t.theme.Icons.Info, t.theme.Muted
	}
}

func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func padLeft(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", width-w) + s
}
