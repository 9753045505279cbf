package mapper

import (
	"fmt"

	"github.com/dkoosis/simrun/internal/history"
	"github.com/dkoosis/simrun/pkg/pattern"
	"github.com/dkoosis/simrun/pkg/status"
)

var passedStatus = status.Passed.String()

// FromHistory compares the current run against earlier ones.
// previous is most recent first and excludes the current run. last maps test
// names to their most recently recorded status before the current run.
func FromHistory(current history.Run, previous []history.Run, last map[string]string, flaky []history.Flake) []pattern.Pattern {
	var patterns []pattern.Pattern

	if len(previous) > 0 {
		last := previous[0]
		patterns = append(patterns, &pattern.Comparison{
			Label: "Since last run",
			Changes: []pattern.ComparisonItem{
				{
					Label:          "Pass rate",
					Before:         percent(last.PassRate()),
					After:          percent(current.PassRate()),
					Change:         (current.PassRate() - last.PassRate()) * 100,
					Unit:           "%",
					HigherIsBetter: true,
				},
				{
					Label:  "Tests",
					Before: fmt.Sprintf("%d", last.Total),
					After:  fmt.Sprintf("%d", current.Total),
					Change: float64(current.Total - last.Total),
					Unit:   " tests",
				},
			},
		})

		values := make([]float64, 0, len(previous)+1)
		for i := len(previous) - 1; i >= 0; i-- {
			values = append(values, previous[i].PassRate()*100)
		}
		values = append(values, current.PassRate()*100)
		patterns = append(patterns, &pattern.Sparkline{
			Label:  "Pass rate trend",
			Values: values,
			Min:    0,
			Max:    100,
			Unit:   "%",
		})
	}

	if changes := statusChanges(current, last); changes != nil {
		patterns = append(patterns, changes)
	}

	if len(flaky) > 0 {
		lb := &pattern.Leaderboard{
			Label:      "Flaky tests",
			MetricName: "Passed",
			TotalCount: len(flaky),
		}
		for i, f := range flaky {
			lb.Items = append(lb.Items, pattern.LeaderboardItem{
				Name:   f.Test,
				Metric: fmt.Sprintf("%d/%d passed", f.Passed, f.Runs),
				Value:  float64(f.Passed) / float64(f.Runs),
				Rank:   i + 1,
			})
		}
		patterns = append(patterns, lb)
	}
	return patterns
}

// statusChanges lists tests whose status differs from their last recorded
// one, in test order. Tests never recorded before are not listed.
func statusChanges(current history.Run, last map[string]string) *pattern.Summary {
	var items []pattern.SummaryItem
	for _, tr := range current.Tests {
		before, ok := last[tr.Name]
		if !ok || before == tr.Status {
			continue
		}
		kind := "warning"
		switch {
		case tr.Status == passedStatus:
			kind = "success"
		case before == passedStatus:
			kind = "error"
		}
		items = append(items, pattern.SummaryItem{
			Label: tr.Name,
			Value: before + " -> " + tr.Status,
			Kind:  kind,
		})
	}
	if len(items) == 0 {
		return nil
	}
	return &pattern.Summary{Label: "Status changes", Kind: pattern.SummaryKindChanges, Metrics: items}
}

func percent(r float64) string {
	return fmt.Sprintf("%.1f%%", r*100)
}
