package pattern

// Verdict is the final suite outcome.
type Verdict struct {
	Passed    bool
	PassCount int
	Total     int
	Failed    []string // tests with a non-passing status
	Missing   []string // tests without a status
}

// Ratio returns the pass rate in [0, 1].
func (v *Verdict) Ratio() float64 {
	if v.Total == 0 {
		return 0
	}
	return float64(v.PassCount) / float64(v.Total)
}

func (v *Verdict) Type() PatternType { return PatternTypeVerdict }
