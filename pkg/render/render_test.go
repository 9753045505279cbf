package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/acarl005/stripansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/simrun/pkg/pattern"
)

func suitePatterns() []pattern.Pattern {
	return []pattern.Pattern{
		&pattern.TestTable{
			Label: "Summary:",
			Results: []pattern.TestTableItem{
				{Name: "isa_add", Status: pattern.StatusPass, Duration: "0m 3s", Message: "Test <isa_add> PASSED."},
				{Name: "isa_sub", Status: pattern.StatusFail, Duration: "0m 4s", Message: "Test <isa_sub> FAILED with:",
					Details: "ERROR: a\nERROR: b\nERROR: c\nERROR: d"},
				{Name: "isa_mul", Status: pattern.StatusMissing, Message: "Status for <isa_mul> not found."},
				{Name: "isa_div", Status: pattern.StatusPass, Kept: true, Message: "Test <isa_div> PASSED."},
			},
		},
		&pattern.Leaderboard{
			Label: "Slowest tests", MetricName: "Duration", ShowRank: true, TotalCount: 3,
			Items: []pattern.LeaderboardItem{{Name: "isa_sub", Metric: "0m 4s", Value: 4, Rank: 1}},
		},
		&pattern.Summary{
			Kind:    pattern.SummaryKindRuntime,
			Metrics: []pattern.SummaryItem{{Label: "Simulation", Value: "0m 9s"}, {Label: "Test suite", Value: "1m 2s"}},
		},
		&pattern.Verdict{Passed: false, PassCount: 2, Total: 4, Failed: []string{"isa_sub"}, Missing: []string{"isa_mul"}},
	}
}

func TestTerminal_RenderSuite(t *testing.T) {
	out := stripansi.Strip(NewTerminal(MonoTheme(), 80).Render(suitePatterns()))

	assert.Contains(t, out, "Summary:")
	assert.Contains(t, out, "+ Pass")
	assert.Contains(t, out, "x Fail")
	assert.Contains(t, out, "! Missing")
	assert.Contains(t, out, "= Kept")
	assert.Contains(t, out, "Test <isa_sub> FAILED with:")
	assert.Contains(t, out, "        ERROR: d")
	assert.NotContains(t, out, "Test <isa_add> PASSED.", "passing tests render as one line")
	assert.Contains(t, out, "Status for <isa_mul> not found.")
	assert.Contains(t, out, "Slowest tests (top 1 of 3)")
	assert.Contains(t, out, " 1. isa_sub")
	assert.Contains(t, out, "Simulation runtime: 0m 9s")
	assert.Contains(t, out, "Test suite runtime: 1m 2s")
	assert.Contains(t, out, "Test suite DONE. Pass rate: 2/4 passed; Test suite FAILED.")
	assert.Contains(t, out, "#")
	assert.Contains(t, out, "50%")
	assert.Contains(t, out, "Failed tests:\n    isa_sub")
	assert.Contains(t, out, "Tests without status:\n    isa_mul")
}

func TestTerminal_PassedVerdict(t *testing.T) {
	out := stripansi.Strip(NewTerminal(DefaultTheme(), 0).Render([]pattern.Pattern{
		&pattern.Verdict{Passed: true, PassCount: 3, Total: 3},
	}))
	assert.Contains(t, out, "Pass rate: 3/3 passed; Test suite PASSED.")
	assert.Contains(t, out, "100%")
	assert.NotContains(t, out, "Failed tests:")
}

func TestTerminal_NamesAlignByDisplayWidth(t *testing.T) {
	out := stripansi.Strip(NewTerminal(MonoTheme(), 80).Render([]pattern.Pattern{
		&pattern.TestTable{Results: []pattern.TestTableItem{
			{Name: "テスト_a", Status: pattern.StatusPass, Duration: "1s"},
			{Name: "abcdef_b", Status: pattern.StatusPass, Duration: "1s"},
		}},
	}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[1], "1s"), len("  + Pass  abcdef_b  "))
	assert.True(t, strings.HasSuffix(lines[0], "  1s"))
}

func TestTerminal_Comparison(t *testing.T) {
	out := stripansi.Strip(NewTerminal(MonoTheme(), 80).Render([]pattern.Pattern{
		&pattern.Comparison{Label: "Since last run", Changes: []pattern.ComparisonItem{
			{Label: "Pass rate", Before: "50.0%", After: "75.0%", Change: 25, Unit: "%", HigherIsBetter: true},
		}},
		&pattern.Sparkline{Label: "Pass rate trend", Values: []float64{0, 50, 100}, Unit: "%"},
	}))
	assert.Contains(t, out, "Pass rate: 50.0% → 75.0% ↑ 25.0%")
	assert.Contains(t, out, "Pass rate trend: ▁▄█ 100.0%")
}

func TestLLM_RenderSuite(t *testing.T) {
	out := NewLLM().Render(suitePatterns())

	assert.True(t, strings.HasPrefix(out, "SCOPE: 4 tests, 2 pass, 1 fail, 1 missing\n"), out)
	assert.NotContains(t, out, "\x1b[")
	failIdx := strings.Index(out, "FAIL isa_sub")
	passIdx := strings.Index(out, "PASS isa_add")
	require.NotEqual(t, -1, failIdx)
	require.NotEqual(t, -1, passIdx)
	assert.Less(t, failIdx, passIdx, "failures are listed first")
	assert.Contains(t, out, "    ERROR: c\n    ... (1 more lines)\n")
	assert.Contains(t, out, "PASS isa_div [kept]")
	assert.Contains(t, out, "Test suite runtime: 1m 2s")
	assert.Contains(t, out, "VERDICT: FAILED 2/4 passed")
}

func TestLLM_StatusChanges(t *testing.T) {
	out := NewLLM().Render([]pattern.Pattern{&pattern.Summary{
		Label:   "Status changes",
		Kind:    pattern.SummaryKindChanges,
		Metrics: []pattern.SummaryItem{{Label: "isa_sub", Value: "PASSED -> FAILED", Kind: "error"}},
	}})
	assert.Equal(t, "\nStatus changes\n  isa_sub: PASSED -> FAILED\n", out)
}

func TestJSON_Render(t *testing.T) {
	out := NewJSON().Render(suitePatterns())

	var doc struct {
		Version  string `json:"version"`
		Passed   *bool  `json:"passed"`
		Patterns []struct {
			Type string `json:"type"`
		} `json:"patterns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "1.0", doc.Version)
	require.NotNil(t, doc.Passed)
	assert.False(t, *doc.Passed)
	require.Len(t, doc.Patterns, 4)
	assert.Equal(t, "test-table", doc.Patterns[0].Type)
	assert.Equal(t, "verdict", doc.Patterns[3].Type)
}

func TestThemeByName(t *testing.T) {
	assert.Equal(t, "orca", ThemeByName("orca").Name)
	assert.Equal(t, "mono", ThemeByName("mono").Name)
	assert.Equal(t, "default", ThemeByName("nope").Name)
	assert.Empty(t, MonoTheme().BarFill)
}
