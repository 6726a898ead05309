package runhistory

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source is the external run-event collaborator. Fetches are read-only
// and idempotent for a given (scope, cursor) pair.
type Source interface {
	FetchRunData(ctx context.Context, scope Scope, cursor string) (*Page, error)
	FetchQueueStatus(ctx context.Context, scope Scope) (QueueStatus, error)
}

// View is the derived, render-ready projection of the accumulated run
// history: one recomputation of filter, grouping, and summaries over the
// current data. Accumulated is the raw pre-filter run count, letting the
// consumer distinguish "nothing matches the filter" from "no runs at
// all" (the latter may additionally surface queue occupancy).
type View struct {
	Groups      []RunGroup         `json:"groups"`
	Summaries   map[string]Summary `json:"summaries"`
	Totals      Totals             `json:"totals"`
	HasMore     bool               `json:"hasMore"`
	Accumulated int                `json:"accumulatedCount"`
	Queue       QueueStatus        `json:"queue"`

	// Err is the most recent fetch failure; Error carries its message
	// across the JSON boundary so a client can render the failure next
	// to the retained data.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Controller wires the source, accumulator, filters, and grouping into
// a single consistent view. All state transitions and derived-state
// recomputation happen under one mutex, the serial-execution analogue of
// recomputing everything within a single render pass: a snapshot never
// observes a half-applied update.
type Controller struct {
	log    logrus.FieldLogger
	source Source

	mu          sync.Mutex
	scope       Scope
	acc         *Accumulator
	state       *ViewState
	targetNames map[string]string
	expanded    map[string]bool
	queue       QueueStatus
	lastErr     error
}

// NewController creates a controller over the given source and initial
// scope, with default view state.
func NewController(
	log logrus.FieldLogger, source Source, scope Scope,
) *Controller {
	return &Controller{
		log:      log.WithField("component", "runhistory"),
		source:   source,
		scope:    scope,
		acc:      NewAccumulator(),
		state:    NewViewState(),
		expanded: make(map[string]bool, 8),
	}
}

// State exposes the controller's view state for hydration and URL
// serialization.
func (c *Controller) State() *ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Scope returns the current query scope.
func (c *Controller) Scope() Scope {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.scope
}

// SetScope switches the controller to a new query scope. The
// accumulator resets synchronously with the change, so a fetch still in
// flight for the old scope is discarded when it lands.
func (c *Controller) SetScope(scope Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scope.Equal(scope) {
		return
	}

	c.scope = scope
	c.acc.Reset()
}

// SetGroupBy changes the grouping mode. Group keys are meaningless
// across modes, so any recorded expansion state is dropped on a change.
func (c *Controller) SetGroupBy(mode GroupType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.SetGroupBy(mode) {
		c.expanded = make(map[string]bool, 8)
	}
}

// SetFilter sets a filter value by query parameter key.
func (c *Controller) SetFilter(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SetFilter(key, value)
}

// SetTargetNames installs the target display-name lookup used by
// target grouping.
func (c *Controller) SetTargetNames(names map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.targetNames = names
}

// ToggleExpanded flips the expansion state for a group key.
func (c *Controller) ToggleExpanded(groupKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expanded[groupKey] = !c.expanded[groupKey]
}

// IsExpanded reports the expansion state for a group key.
func (c *Controller) IsExpanded(groupKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.expanded[groupKey]
}

// PageCount returns the number of accumulated pages.
func (c *Controller) PageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.acc.PageCount()
}

// Queue returns the most recently observed queue status.
func (c *Controller) Queue() QueueStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.queue
}

// Refresh fetches the first page and the queue status for the current
// scope and applies them. Refreshing replaces page one rather than
// appending, so live polling never duplicates runs. A failed fetch
// leaves previously accumulated pages intact and records the error; the
// next successful refresh clears it.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	scope := c.scope
	generation := c.acc.Generation()
	c.mu.Unlock()

	var (
		page  *Page
		queue QueueStatus
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := c.source.FetchRunData(gCtx, scope, "")
		if err != nil {
			return err
		}

		page = p

		return nil
	})

	g.Go(func() error {
		q, err := c.source.FetchQueueStatus(gCtx, scope)
		if err != nil {
			return err
		}

		queue = q

		return nil
	})

	if err := g.Wait(); err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()

		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.acc.Apply(*page, "", generation) {
		// The scope changed or a page was appended while the fetch
		// was in flight.
		return nil
	}

	c.queue = queue
	c.lastErr = nil

	return nil
}

// LoadMore fetches the next page and appends it. A result whose
// originating cursor no longer matches the accumulator's expectation
// (the scope changed, or a refresh replaced the pages underneath) is
// discarded. A failed load preserves the existing pages.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	scope := c.scope
	cursor := c.acc.NextCursor()
	generation := c.acc.Generation()
	hasMore := c.acc.HasMore()
	c.mu.Unlock()

	if !hasMore || cursor == "" {
		return nil
	}

	page, err := c.source.FetchRunData(ctx, scope, cursor)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()

		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.acc.Apply(*page, cursor, generation) {
		c.log.WithField("cursor", cursor).
			Debug("Discarded stale page")

		return nil
	}

	c.lastErr = nil

	return nil
}

// Snapshot recomputes the derived view from the accumulated data:
// filter, then group, then summarize, all within one critical section.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	runs := c.acc.Runs()
	filtered := ApplyFilters(runs, c.scope.Window, c.state.Filters())

	var groups []RunGroup

	switch c.state.GroupBy() {
	case GroupScenario:
		groups = GroupByScenario(filtered)
	case GroupTarget:
		groups = GroupByTarget(filtered, c.targetNames)
	case GroupNone:
		var labels map[string]string
		if c.scope.SuiteID == "" {
			// Cross-suite view: annotate batches with their suite.
			labels = c.acc.ScopeLabels()
		}

		groups = GroupByBatch(filtered, labels)
	}

	view := View{
		Groups:      groups,
		Summaries:   SummarizeGroups(groups),
		Totals:      ComputeTotals(filtered),
		HasMore:     c.acc.HasMore(),
		Accumulated: len(runs),
		Queue:       c.queue,
		Err:         c.lastErr,
	}

	if c.lastErr != nil {
		view.Error = c.lastErr.Error()
	}

	return view
}
