package api

import (
	"net/http"

	"github.com/scenarioops/suitescope/pkg/runhistory"
)

// historyResponse is the aggregated run-history payload. Query echoes
// the canonical serialized view state so clients can write a shareable
// URL without re-deriving the omission rules.
type historyResponse struct {
	Groups      []runhistory.RunGroup         `json:"groups"`
	Summaries   map[string]runhistory.Summary `json:"summaries"`
	Totals      runhistory.Totals             `json:"totals"`
	HasMore     bool                          `json:"hasMore"`
	NextCursor  string                        `json:"nextCursor,omitempty"`
	Accumulated int                           `json:"accumulatedCount"`
	Queue       runhistory.QueueStatus        `json:"queue"`
	Query       string                        `json:"query"`
}

// handleHistory serves the aggregated, grouped, filtered history view
// for an arbitrary scope. The view state hydrates from the request
// query, so the same URL always reproduces the same view; malformed
// values normalize to defaults rather than erroring.
func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid time window: " + err.Error()})

		return
	}

	state := runhistory.NewViewState()
	state.HydrateFromQuery(r.URL.Query())

	page, err := s.store.FetchRunData(
		r.Context(), scope, r.URL.Query().Get("cursor"),
	)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing runs: " + err.Error()})

		return
	}

	queue, err := s.store.FetchQueueStatus(r.Context(), scope)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"reading queue status: " + err.Error()})

		return
	}

	// The window already bounded the store query; the in-memory pass
	// applies the remaining filters.
	filtered := runhistory.ApplyFilters(page.Runs, nil, state.Filters())

	var groups []runhistory.RunGroup

	switch state.GroupBy() {
	case runhistory.GroupScenario:
		groups = runhistory.GroupByScenario(filtered)
	case runhistory.GroupTarget:
		groups = runhistory.GroupByTarget(
			filtered, s.targetNames(r),
		)
	case runhistory.GroupNone:
		var labels map[string]string
		if scope.SuiteID == "" {
			labels = page.ScopeLabels
		}

		groups = runhistory.GroupByBatch(filtered, labels)
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Groups:      groups,
		Summaries:   runhistory.SummarizeGroups(groups),
		Totals:      runhistory.ComputeTotals(filtered),
		HasMore:     page.HasMore,
		NextCursor:  page.NextCursor,
		Accumulated: len(page.Runs),
		Queue:       queue,
		Query:       state.Query().Encode(),
	})
}

// targetNames builds the display-name lookup for target grouping.
// Catalog failures degrade to raw IDs rather than failing the view.
func (s *server) targetNames(r *http.Request) map[string]string {
	targets, err := s.store.ListTargets(
		r.Context(), r.URL.Query().Get("project"),
	)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load target catalog")

		return nil
	}

	names := make(map[string]string, len(targets))
	for _, t := range targets {
		names[t.ID] = t.Name
	}

	return names
}

// handleOverview returns the live cross-suite snapshot maintained by
// the background poller.
func (s *server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	view := s.controller.Snapshot()

	if view.Err != nil {
		// The last poll failed; the snapshot still carries the most
		// recently accumulated data.
		s.log.WithError(view.Err).Debug("Overview snapshot carries stale data")
	}

	writeJSON(w, http.StatusOK, view)
}
