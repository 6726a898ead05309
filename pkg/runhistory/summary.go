package runhistory

// Summary holds the per-group pass/fail/in-progress counts. The counts
// always satisfy Passed + Failed + InProgress == Total, and PassRate is
// Passed over finished runs as a percentage, 0 when nothing finished.
type Summary struct {
	PassRate   float64 `json:"passRate"`
	Passed     int     `json:"passedCount"`
	Failed     int     `json:"failedCount"`
	InProgress int     `json:"inProgressCount"`
	Total      int     `json:"totalCount"`
}

// Summarize classifies each run into exactly one outcome category and
// derives the pass rate.
func Summarize(runs []ScenarioRunEvent) Summary {
	var s Summary

	for i := range runs {
		switch runs[i].Status.Outcome() {
		case OutcomePassed:
			s.Passed++
		case OutcomeFailed:
			s.Failed++
		case OutcomeInProgress:
			s.InProgress++
		}
	}

	s.Total = len(runs)

	if finished := s.Passed + s.Failed; finished > 0 {
		s.PassRate = float64(s.Passed) / float64(finished) * 100
	}

	return s
}

// SummarizeGroups computes one summary per group, keyed by group key.
func SummarizeGroups(groups []RunGroup) map[string]Summary {
	out := make(map[string]Summary, len(groups))

	for i := range groups {
		out[groups[i].GroupKey] = Summarize(groups[i].Runs)
	}

	return out
}

// Totals aggregates over the flat filtered run list, independent of the
// active grouping mode.
type Totals struct {
	Passed int `json:"passedCount"`
	Failed int `json:"failedCount"`
	Runs   int `json:"totalCount"`
}

// ComputeTotals sums pass/fail counts across all runs and reports the
// raw run count.
func ComputeTotals(runs []ScenarioRunEvent) Totals {
	var t Totals

	for i := range runs {
		switch runs[i].Status.Outcome() {
		case OutcomePassed:
			t.Passed++
		case OutcomeFailed:
			t.Failed++
		case OutcomeInProgress:
		}
	}

	t.Runs = len(runs)

	return t
}
