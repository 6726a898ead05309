package runhistory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenarioops/suitescope/pkg/runhistory"
)

func pageOf(nextCursor string, runs ...runhistory.ScenarioRunEvent) runhistory.Page {
	return runhistory.Page{
		Runs:       runs,
		HasMore:    nextCursor != "",
		NextCursor: nextCursor,
	}
}

func TestAccumulator_FirstPageReplaces(t *testing.T) {
	acc := runhistory.NewAccumulator()
	gen := acc.Generation()

	first := pageOf("cur-1",
		makeRun("b1", "scn-a", "t", runhistory.StatusSuccess, 10),
		makeRun("b1", "scn-b", "t", runhistory.StatusFailed, 20),
	)

	require.True(t, acc.Apply(first, "", gen))
	assert.Len(t, acc.Runs(), 2)
	assert.Equal(t, 1, acc.PageCount())
	assert.True(t, acc.HasMore())
	assert.Equal(t, "cur-1", acc.NextCursor())

	// Re-fetching page one (live polling) replaces, never appends:
	// the flattened list must not grow.
	require.True(t, acc.Apply(first, "", gen))
	require.True(t, acc.Apply(first, "", gen))
	assert.Len(t, acc.Runs(), 2)
	assert.Equal(t, 1, acc.PageCount())
}

func TestAccumulator_AppendGrowsByPageSize(t *testing.T) {
	acc := runhistory.NewAccumulator()
	gen := acc.Generation()

	require.True(t, acc.Apply(pageOf("cur-1",
		makeRun("b1", "scn-a", "t", runhistory.StatusSuccess, 40),
	), "", gen))

	require.True(t, acc.Apply(pageOf("cur-2",
		makeRun("b2", "scn-a", "t", runhistory.StatusSuccess, 30),
		makeRun("b2", "scn-b", "t", runhistory.StatusSuccess, 20),
	), "cur-1", gen))

	assert.Len(t, acc.Runs(), 3)
	assert.Equal(t, 2, acc.PageCount())
	assert.Equal(t, "cur-2", acc.NextCursor())

	// Pages flatten in fetch order.
	runs := acc.Runs()
	assert.Equal(t, "b1", runs[0].BatchRunID)
	assert.Equal(t, "b2", runs[1].BatchRunID)
}

func TestAccumulator_StaleCursorDiscarded(t *testing.T) {
	acc := runhistory.NewAccumulator()
	gen := acc.Generation()

	require.True(t, acc.Apply(pageOf("cur-1",
		makeRun("b1", "scn-a", "t", runhistory.StatusSuccess, 10),
	), "", gen))

	// A page produced by a cursor the accumulator no longer expects
	// (e.g. an old Load More racing a refresh) is dropped.
	applied := acc.Apply(pageOf("cur-9",
		makeRun("bx", "scn-a", "t", runhistory.StatusSuccess, 5),
	), "cur-stale", gen)

	assert.False(t, applied)
	assert.Len(t, acc.Runs(), 1)
}

func TestAccumulator_ResetDiscardsInFlight(t *testing.T) {
	acc := runhistory.NewAccumulator()
	gen := acc.Generation()

	require.True(t, acc.Apply(pageOf("cur-1",
		makeRun("b1", "scn-a", "t", runhistory.StatusSuccess, 10),
	), "", gen))

	// Scope change: reset happens synchronously, then the old scope's
	// in-flight result lands and must be discarded — even a first page.
	acc.Reset()
	assert.Zero(t, acc.PageCount())
	assert.False(t, acc.HasMore())

	applied := acc.Apply(pageOf("cur-2",
		makeRun("b2", "scn-a", "t", runhistory.StatusSuccess, 20),
	), "", gen)

	assert.False(t, applied, "pre-reset generation must not apply")
	assert.Empty(t, acc.Runs())
}

func TestAccumulator_AppendInvalidatesEarlierReplace(t *testing.T) {
	acc := runhistory.NewAccumulator()
	gen := acc.Generation()

	require.True(t, acc.Apply(pageOf("cur-1",
		makeRun("b1", "scn-a", "t", runhistory.StatusSuccess, 10),
	), "", gen))

	// A refresh is issued here and captures the current generation,
	// then a Load More completes before the refresh result lands.
	refreshGen := acc.Generation()

	require.True(t, acc.Apply(pageOf("cur-2",
		makeRun("b2", "scn-a", "t", runhistory.StatusSuccess, 5),
	), "cur-1", refreshGen))

	// The late first page must not collapse the two accumulated pages.
	applied := acc.Apply(pageOf("cur-1",
		makeRun("b1", "scn-a", "t", runhistory.StatusSuccess, 10),
	), "", refreshGen)

	assert.False(t, applied)
	assert.Equal(t, 2, acc.PageCount())
	assert.Len(t, acc.Runs(), 2)
}

func TestAccumulator_HasMoreFromLastPageOnly(t *testing.T) {
	acc := runhistory.NewAccumulator()
	gen := acc.Generation()

	require.True(t, acc.Apply(pageOf("cur-1",
		makeRun("b1", "scn-a", "t", runhistory.StatusSuccess, 10),
	), "", gen))
	assert.True(t, acc.HasMore())

	last := pageOf("", makeRun("b2", "scn-a", "t", runhistory.StatusSuccess, 5))
	require.True(t, acc.Apply(last, "cur-1", gen))

	assert.False(t, acc.HasMore())
	assert.Empty(t, acc.NextCursor())
}

func TestAccumulator_ScopeLabelsMerge(t *testing.T) {
	acc := runhistory.NewAccumulator()
	gen := acc.Generation()

	p1 := pageOf("cur-1", makeRun("b1", "scn-a", "t", runhistory.StatusSuccess, 10))
	p1.ScopeLabels = map[string]string{"b1": "suite-alpha"}

	p2 := pageOf("", makeRun("b2", "scn-a", "t", runhistory.StatusSuccess, 5))
	p2.ScopeLabels = map[string]string{"b2": "suite-beta"}

	require.True(t, acc.Apply(p1, "", gen))
	require.True(t, acc.Apply(p2, "cur-1", gen))

	labels := acc.ScopeLabels()
	assert.Equal(t, "suite-alpha", labels["b1"])
	assert.Equal(t, "suite-beta", labels["b2"])
}
