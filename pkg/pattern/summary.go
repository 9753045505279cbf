package pattern

// SummaryKind identifies the source of a summary for dispatch.
type SummaryKind string

const (
	SummaryKindSuite   SummaryKind = "suite"
	SummaryKindRuntime SummaryKind = "runtime"
	SummaryKindChanges SummaryKind = "changes"
)

// Summary represents high-level metrics and counts.
type Summary struct {
	Label   string
	Kind    SummaryKind // dispatch key for renderers
	Metrics []SummaryItem
}

// SummaryItem is a single metric in a summary.
type SummaryItem struct {
	Label string // e.g., "Passed", "Failed", "Build"
	Value string // formatted value
	Kind  string // "success", "error", "warning", "info" — affects coloring
}

func (s *Summary) Type() PatternType { return PatternTypeSummary }
