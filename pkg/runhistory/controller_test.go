package runhistory_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenarioops/suitescope/pkg/runhistory"
)

// fakeSource serves canned pages keyed by cursor and counts fetches.
type fakeSource struct {
	pages      map[string]runhistory.Page
	queue      runhistory.QueueStatus
	err        error
	fetchCalls int
}

func (f *fakeSource) FetchRunData(
	_ context.Context, _ runhistory.Scope, cursor string,
) (*runhistory.Page, error) {
	f.fetchCalls++

	if f.err != nil {
		return nil, f.err
	}

	p, ok := f.pages[cursor]
	if !ok {
		return &runhistory.Page{}, nil
	}

	return &p, nil
}

func (f *fakeSource) FetchQueueStatus(
	_ context.Context, _ runhistory.Scope,
) (runhistory.QueueStatus, error) {
	if f.err != nil {
		return runhistory.QueueStatus{}, f.err
	}

	return f.queue, nil
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func twoPageSource() *fakeSource {
	return &fakeSource{
		pages: map[string]runhistory.Page{
			"": {
				Runs: []runhistory.ScenarioRunEvent{
					makeRun("b1", "scn-a", "tgt-1", runhistory.StatusSuccess, 100),
					makeRun("b1", "scn-b", "tgt-1", runhistory.StatusError, 90),
				},
				HasMore:    true,
				NextCursor: "cur-1",
			},
			"cur-1": {
				Runs: []runhistory.ScenarioRunEvent{
					makeRun("b0", "scn-a", "tgt-2", runhistory.StatusSuccess, 50),
				},
				HasMore:    false,
				NextCursor: "",
			},
		},
	}
}

func TestController_RefreshAndSnapshot(t *testing.T) {
	src := twoPageSource()
	src.queue = runhistory.QueueStatus{Waiting: 2, Active: 1}

	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})
	require.NoError(t, c.Refresh(context.Background()))

	view := c.Snapshot()
	require.Len(t, view.Groups, 1)
	assert.Equal(t, "b1", view.Groups[0].GroupKey)
	assert.Equal(t, 2, view.Accumulated)
	assert.True(t, view.HasMore)
	assert.Equal(t, 2, view.Queue.Waiting)
	assert.NoError(t, view.Err)

	summary := view.Summaries["b1"]
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
}

func TestController_RefreshIsIdempotent(t *testing.T) {
	src := twoPageSource()
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})

	// Polling refetches the first page repeatedly; the run set must not grow.
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Refresh(context.Background()))
	}

	assert.Equal(t, 2, c.Snapshot().Accumulated)
	assert.Equal(t, 1, c.PageCount())
}

func TestController_LoadMoreAppends(t *testing.T) {
	src := twoPageSource()
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})

	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.LoadMore(context.Background()))

	view := c.Snapshot()
	assert.Equal(t, 3, view.Accumulated)
	assert.False(t, view.HasMore)
	assert.Equal(t, 2, c.PageCount())

	// Exhausted: further LoadMore calls are no-ops.
	calls := src.fetchCalls
	require.NoError(t, c.LoadMore(context.Background()))
	assert.Equal(t, calls, src.fetchCalls)
}

func TestController_ScopeChangeResets(t *testing.T) {
	src := twoPageSource()
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})

	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, 2, c.Snapshot().Accumulated)

	c.SetScope(runhistory.Scope{SuiteID: "suite-2"})

	assert.Zero(t, c.PageCount(), "reset is synchronous with the scope change")
	assert.Empty(t, c.Snapshot().Groups)
}

func TestController_FailedRefreshPreservesPages(t *testing.T) {
	src := twoPageSource()
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})

	require.NoError(t, c.Refresh(context.Background()))

	src.err = errors.New("search store unavailable")
	require.Error(t, c.Refresh(context.Background()))

	view := c.Snapshot()
	assert.Equal(t, 2, view.Accumulated, "a failed fetch leaves accumulated pages intact")
	assert.Error(t, view.Err)

	// The message must survive serialization so a client can render it.
	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"search store unavailable"`)

	// Next successful poll clears the error.
	src.err = nil
	require.NoError(t, c.Refresh(context.Background()))

	view = c.Snapshot()
	assert.NoError(t, view.Err)
	assert.Empty(t, view.Error)
}

func TestController_GroupByTargetUsesNames(t *testing.T) {
	src := twoPageSource()
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})
	c.SetTargetNames(map[string]string{"tgt-1": "support-agent"})

	require.NoError(t, c.Refresh(context.Background()))
	c.SetGroupBy(runhistory.GroupTarget)

	view := c.Snapshot()
	require.Len(t, view.Groups, 1)
	assert.Equal(t, "support-agent", view.Groups[0].GroupLabel)
}

func TestController_GroupByChangeResetsExpansion(t *testing.T) {
	src := twoPageSource()
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})

	c.ToggleExpanded("b1")
	require.True(t, c.IsExpanded("b1"))

	// Same mode: expansion survives.
	c.SetGroupBy(runhistory.GroupNone)
	assert.True(t, c.IsExpanded("b1"))

	// Mode change: keys are meaningless across modes, state is dropped.
	c.SetGroupBy(runhistory.GroupScenario)
	assert.False(t, c.IsExpanded("b1"))
}

func TestController_FiltersNarrowView(t *testing.T) {
	src := twoPageSource()
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})

	require.NoError(t, c.Refresh(context.Background()))
	c.SetFilter("passFailStatus", "pass")

	view := c.Snapshot()
	assert.Equal(t, 1, view.Totals.Runs)
	assert.Equal(t, 1, view.Totals.Passed)
	assert.Equal(t, 2, view.Accumulated, "accumulated count stays pre-filter")
}

func TestController_CrossSuiteViewCarriesSuiteLabels(t *testing.T) {
	src := twoPageSource()
	firstPage := src.pages[""]
	firstPage.ScopeLabels = map[string]string{"b1": "suite-alpha"}
	src.pages[""] = firstPage

	// Project-wide scope: no suite pinned.
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{ProjectID: "proj-1"})
	require.NoError(t, c.Refresh(context.Background()))

	view := c.Snapshot()
	require.Len(t, view.Groups, 1)
	assert.Equal(t, "suite-alpha", view.Groups[0].SuiteID)
}

func TestPollInterval(t *testing.T) {
	assert.Equal(t, runhistory.FastPollInterval,
		runhistory.PollInterval(runhistory.QueueStatus{Waiting: 1}))
	assert.Equal(t, runhistory.FastPollInterval,
		runhistory.PollInterval(runhistory.QueueStatus{Active: 3}))
	assert.Equal(t, runhistory.SlowPollInterval,
		runhistory.PollInterval(runhistory.QueueStatus{}))
}

func TestShouldPoll(t *testing.T) {
	assert.True(t, runhistory.ShouldPoll(0))
	assert.True(t, runhistory.ShouldPoll(1))
	assert.False(t, runhistory.ShouldPoll(2), "manual paging suspends live refresh")
}

func TestPoller_StartStop(t *testing.T) {
	src := twoPageSource()
	c := runhistory.NewController(testLogger(), src, runhistory.Scope{SuiteID: "suite-1"})

	p := runhistory.NewPoller(testLogger(), c)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())
}
