package runhistory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenarioops/suitescope/pkg/runhistory"
)

func TestApplyFilters_NoopReturnsSameSlice(t *testing.T) {
	runs := []runhistory.ScenarioRunEvent{
		makeRun("b", "scn-a", "t", runhistory.StatusSuccess, 10),
	}

	out := runhistory.ApplyFilters(runs, nil, runhistory.Filters{})

	// No active predicate: the original slice comes back untouched.
	assert.Same(t, &runs[0], &out[0])
}

func TestApplyFilters_TimeWindowInclusive(t *testing.T) {
	runs := []runhistory.ScenarioRunEvent{
		makeRun("b", "scn-a", "t", runhistory.StatusSuccess, 99),
		makeRun("b", "scn-b", "t", runhistory.StatusSuccess, 100),
		makeRun("b", "scn-c", "t", runhistory.StatusSuccess, 200),
		makeRun("b", "scn-d", "t", runhistory.StatusSuccess, 201),
	}

	window := &runhistory.TimeWindow{Start: 100, End: 200}
	out := runhistory.ApplyFilters(runs, window, runhistory.Filters{})
	require.Len(t, out, 2)

	assert.Equal(t, "scn-b", out[0].ScenarioID, "window start is inclusive")
	assert.Equal(t, "scn-c", out[1].ScenarioID, "window end is inclusive")
}

func TestApplyFilters_ScenarioID(t *testing.T) {
	runs := []runhistory.ScenarioRunEvent{
		makeRun("b", "scn-a", "t", runhistory.StatusSuccess, 10),
		makeRun("b", "scn-b", "t", runhistory.StatusFailed, 20),
		makeRun("b", "scn-a", "t", runhistory.StatusError, 30),
	}

	out := runhistory.ApplyFilters(runs, nil, runhistory.Filters{
		ScenarioID: "scn-a",
	})
	require.Len(t, out, 2)

	for _, r := range out {
		assert.Equal(t, "scn-a", r.ScenarioID)
	}
}

func TestApplyFilters_PassFail(t *testing.T) {
	runs := []runhistory.ScenarioRunEvent{
		makeRun("b", "scn-a", "t", runhistory.StatusSuccess, 10),
		makeRun("b", "scn-b", "t", runhistory.StatusFailed, 20),
		makeRun("b", "scn-c", "t", runhistory.StatusError, 30),
		makeRun("b", "scn-d", "t", runhistory.StatusStalled, 40),
		makeRun("b", "scn-e", "t", runhistory.StatusCancelled, 50),
		makeRun("b", "scn-f", "t", runhistory.StatusPending, 60),
	}

	passed := runhistory.ApplyFilters(runs, nil, runhistory.Filters{
		PassFail: runhistory.PassFailPass,
	})
	require.Len(t, passed, 1)
	assert.Equal(t, runhistory.StatusSuccess, passed[0].Status)

	// The failure predicate is the same one the grouping engine uses:
	// every non-passing terminal status counts as failed.
	failed := runhistory.ApplyFilters(runs, nil, runhistory.Filters{
		PassFail: runhistory.PassFailFail,
	})
	assert.Len(t, failed, 4)

	// In-progress runs match neither side of the filter.
	for _, r := range append(passed, failed...) {
		assert.NotEqual(t, runhistory.StatusPending, r.Status)
	}
}

func TestApplyFilters_DoesNotMutateInput(t *testing.T) {
	runs := []runhistory.ScenarioRunEvent{
		makeRun("b", "scn-a", "t", runhistory.StatusSuccess, 10),
		makeRun("b", "scn-b", "t", runhistory.StatusFailed, 20),
	}

	_ = runhistory.ApplyFilters(runs, nil, runhistory.Filters{
		ScenarioID: "scn-b",
	})

	assert.Equal(t, "scn-a", runs[0].ScenarioID)
	assert.Equal(t, "scn-b", runs[1].ScenarioID)
}

func TestApplyFilters_CombinedPredicates(t *testing.T) {
	runs := []runhistory.ScenarioRunEvent{
		makeRun("b", "scn-a", "t", runhistory.StatusSuccess, 10),
		makeRun("b", "scn-a", "t", runhistory.StatusFailed, 150),
		makeRun("b", "scn-a", "t", runhistory.StatusSuccess, 150),
		makeRun("b", "scn-b", "t", runhistory.StatusSuccess, 150),
	}

	out := runhistory.ApplyFilters(
		runs,
		&runhistory.TimeWindow{Start: 100, End: 200},
		runhistory.Filters{
			ScenarioID: "scn-a",
			PassFail:   runhistory.PassFailPass,
		},
	)

	require.Len(t, out, 1)
	assert.Equal(t, int64(150), out[0].Timestamp)
	assert.Equal(t, runhistory.StatusSuccess, out[0].Status)
}
