package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/scenarioops/suitescope/pkg/runhistory"
	"github.com/scenarioops/suitescope/pkg/runstore"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// parseScope builds the query scope from request parameters: suite or
// project plus an optional from/to time window (epoch milliseconds).
func parseScope(r *http.Request) (runhistory.Scope, error) {
	q := r.URL.Query()

	scope := runhistory.Scope{
		SuiteID:   q.Get("suite"),
		ProjectID: q.Get("project"),
	}

	from := q.Get("from")
	to := q.Get("to")

	if from == "" && to == "" {
		return scope, nil
	}

	window := &runhistory.TimeWindow{End: int64(1)<<62 - 1}

	if from != "" {
		start, err := strconv.ParseInt(from, 10, 64)
		if err != nil {
			return scope, err
		}

		window.Start = start
	}

	if to != "" {
		end, err := strconv.ParseInt(to, 10, 64)
		if err != nil {
			return scope, err
		}

		window.End = end
	}

	scope.Window = window

	return scope, nil
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig returns the public read-path configuration.
func (s *server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"history": map[string]any{
			"page_limit": s.cfg.History.PageLimit,
		},
		"polling": map[string]any{
			"fast_interval_ms": runhistory.FastPollInterval.Milliseconds(),
			"slow_interval_ms": runhistory.SlowPollInterval.Milliseconds(),
		},
	})
}

// handleRuns returns one cursor-paginated page of raw run events.
func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid time window: " + err.Error()})

		return
	}

	page, err := s.store.FetchRunData(
		r.Context(), scope, r.URL.Query().Get("cursor"),
	)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing runs: " + err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, page)
}

// ingestRunRequest is the payload the executor posts when a run starts
// or changes state.
type ingestRunRequest struct {
	runhistory.ScenarioRunEvent

	SuiteID   string `json:"suiteId"`
	ProjectID string `json:"projectId"`
}

// handleIngestRun upserts a reported run event.
func (s *server) handleIngestRun(w http.ResponseWriter, r *http.Request) {
	var req ingestRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"decoding run event: " + err.Error()})

		return
	}

	if req.ScenarioRunID == "" || req.BatchRunID == "" || req.ScenarioID == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"scenarioRunId, batchRunId, and scenarioId are required"})

		return
	}

	if !req.Status.Valid() {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"unknown status: " + string(req.Status)})

		return
	}

	run := &runstore.ScenarioRun{
		ScenarioRunID:     req.ScenarioRunID,
		BatchRunID:        req.BatchRunID,
		ScenarioID:        req.ScenarioID,
		Name:              req.Name,
		SuiteID:           req.SuiteID,
		ProjectID:         req.ProjectID,
		Status:            string(req.Status),
		Timestamp:         req.Timestamp,
		DurationMs:        req.DurationMs,
		TargetReferenceID: req.Metadata.TargetReferenceID,
	}

	if err := s.store.UpsertRun(r.Context(), run); err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"storing run: " + err.Error()})

		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"scenarioRunId": req.ScenarioRunID,
	})
}

// handleQueueStatus reports queue occupancy for the scope. The waiting
// count feeds the pending-work banner; active jobs surface through the
// run stream itself once they start producing events.
func (s *server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	scope, err := parseScope(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid time window: " + err.Error()})

		return
	}

	status, err := s.store.FetchQueueStatus(r.Context(), scope)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"reading queue status: " + err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleScenarios returns the scenario catalog for a project.
func (s *server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListScenarios(
		r.Context(), r.URL.Query().Get("project"),
	)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing scenarios: " + err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleTargets returns the target catalog for a project.
func (s *server) handleTargets(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListTargets(
		r.Context(), r.URL.Query().Get("project"),
	)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing targets: " + err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, entries)
}
