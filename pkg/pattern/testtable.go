package pattern

// Test statuses understood by renderers.
const (
	StatusPass         = "pass"
	StatusFail         = "fail"
	StatusInconclusive = "inconclusive"
	StatusMissing      = "missing"
	StatusError        = "error"
)

// TestTable represents test results with status and timing.
type TestTable struct {
	Label   string
	Results []TestTableItem
}

// TestTableItem is a single test result.
type TestTableItem struct {
	Name     string // test name
	Status   string // one of the Status* constants
	Duration string // formatted duration, empty when not run this time
	Message  string // status line as persisted
	Details  string // diagnostics, one per line
	Kept     bool   // result kept from an earlier run
}

func (t *TestTable) Type() PatternType { return PatternTypeTestTable }
