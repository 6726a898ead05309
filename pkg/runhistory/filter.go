package runhistory

// PassFail is the pass/fail filter value. The empty string means no
// filtering on outcome.
type PassFail string

const (
	PassFailAny  PassFail = ""
	PassFailPass PassFail = "pass"
	PassFailFail PassFail = "fail"
)

// Valid reports whether p is a known pass/fail filter value.
func (p PassFail) Valid() bool {
	switch p {
	case PassFailAny, PassFailPass, PassFailFail:
		return true
	default:
		return false
	}
}

// Filters narrows the raw run list before grouping.
type Filters struct {
	ScenarioID string   `json:"scenarioId,omitempty"`
	PassFail   PassFail `json:"passFailStatus,omitempty"`
}

// Active reports whether any predicate is set.
func (f Filters) Active() bool {
	return f.ScenarioID != "" || f.PassFail != PassFailAny
}

// ApplyFilters returns the runs matching the time window and filters,
// applied in that order. The input is never mutated; when no predicate
// is active the original slice is returned as-is.
//
// The pass/fail predicate uses the same outcome classification as the
// grouping engine, so "fail" matches every non-passing terminal status
// (FAILED, ERROR, STALLED, CANCELLED).
func ApplyFilters(
	runs []ScenarioRunEvent, window *TimeWindow, f Filters,
) []ScenarioRunEvent {
	if window == nil && !f.Active() {
		return runs
	}

	out := make([]ScenarioRunEvent, 0, len(runs))

	for i := range runs {
		run := &runs[i]

		if window != nil && !window.Contains(run.Timestamp) {
			continue
		}

		if f.ScenarioID != "" && run.ScenarioID != f.ScenarioID {
			continue
		}

		switch f.PassFail {
		case PassFailPass:
			if run.Status.Outcome() != OutcomePassed {
				continue
			}
		case PassFailFail:
			if run.Status.Outcome() != OutcomeFailed {
				continue
			}
		case PassFailAny:
		}

		out = append(out, *run)
	}

	return out
}
