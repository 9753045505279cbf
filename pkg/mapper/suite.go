// Package mapper converts suite results and run history into report patterns.
package mapper

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dkoosis/simrun/pkg/orchestrator"
	"github.com/dkoosis/simrun/pkg/pattern"
	"github.com/dkoosis/simrun/pkg/status"
)

// SlowestCount bounds the slowest-tests leaderboard.
const SlowestCount = 5

// FromSuite converts a collected suite summary into patterns:
// TestTable + slowest tests + runtimes + verdict.
func FromSuite(sum *orchestrator.Summary, suiteRuntime time.Duration) []pattern.Pattern {
	patterns := []pattern.Pattern{testTable(sum)}
	if lb := slowest(sum); lb != nil {
		patterns = append(patterns, lb)
	}
	patterns = append(patterns,
		&pattern.Summary{
			Kind: pattern.SummaryKindRuntime,
			Metrics: []pattern.SummaryItem{
				{Label: "Simulation", Value: orchestrator.FormatRuntime(sum.SimDuration), Kind: "info"},
				{Label: "Test suite", Value: orchestrator.FormatRuntime(suiteRuntime), Kind: "info"},
			},
		},
		&pattern.Verdict{
			Passed:    sum.Passed(),
			PassCount: sum.PassCount(),
			Total:     sum.Total(),
			Failed:    sum.Failed(),
			Missing:   sum.Missing(),
		},
	)
	return patterns
}

func testTable(sum *orchestrator.Summary) *pattern.TestTable {
	items := make([]pattern.TestTableItem, 0, len(sum.Entries))
	for _, e := range sum.Entries {
		item := pattern.TestTableItem{
			Name:    e.Name,
			Status:  tableStatus(e),
			Message: e.Result.Message,
			Details: strings.Join(e.Result.Diagnostics, "\n"),
			Kept:    e.Skipped,
		}
		if e.Duration > 0 {
			item.Duration = orchestrator.FormatRuntime(e.Duration)
		}
		if !e.Found {
			item.Message = fmt.Sprintf("Status for <%s> not found.", e.Name)
			if e.Err != nil {
				item.Details = e.Err.Error()
			}
		}
		items = append(items, item)
	}
	return &pattern.TestTable{Label: "Summary:", Results: items}
}

func tableStatus(e orchestrator.Entry) string {
	if !e.Found {
		if e.Err != nil {
			return pattern.StatusError
		}
		return pattern.StatusMissing
	}
	switch e.Result.Status {
	case status.Passed:
		return pattern.StatusPass
	case status.Failed:
		return pattern.StatusFail
	case status.LogMissing:
		return pattern.StatusMissing
	default:
		return pattern.StatusInconclusive
	}
}

func slowest(sum *orchestrator.Summary) *pattern.Leaderboard {
	var ran []orchestrator.Entry
	for _, e := range sum.Entries {
		if e.Duration > 0 && !e.Skipped {
			ran = append(ran, e)
		}
	}
	if len(ran) < 2 {
		return nil
	}
	sort.SliceStable(ran, func(i, j int) bool { return ran[i].Duration > ran[j].Duration })

	lb := &pattern.Leaderboard{
		Label:      "Slowest tests",
		MetricName: "Duration",
		TotalCount: len(ran),
		ShowRank:   true,
	}
	for i, e := range ran[:min(SlowestCount, len(ran))] {
		lb.Items = append(lb.Items, pattern.LeaderboardItem{
			Name:   e.Name,
			Metric: orchestrator.FormatRuntime(e.Duration),
			Value:  e.Duration.Seconds(),
			Rank:   i + 1,
		})
	}
	return lb
}
