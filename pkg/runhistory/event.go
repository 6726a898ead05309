// Package runhistory implements the suite run-history aggregation engine:
// grouping, filtering, page accumulation, view-state serialization, and the
// adaptive polling scheduler that together turn a flat stream of scenario-run
// events into a stable, navigable view with live summary statistics.
package runhistory

import "fmt"

// RunStatus is the closed set of states a scenario run moves through.
type RunStatus string

const (
	StatusPending    RunStatus = "PENDING"
	StatusInProgress RunStatus = "IN_PROGRESS"
	StatusSuccess    RunStatus = "SUCCESS"
	StatusFailed     RunStatus = "FAILED"
	StatusError      RunStatus = "ERROR"
	StatusStalled    RunStatus = "STALLED"
	StatusCancelled  RunStatus = "CANCELLED"
)

// Outcome is the summary category a run status classifies into. Every
// status maps to exactly one outcome.
type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeFailed
	OutcomeInProgress
)

// Outcome classifies the status into passed, failed, or in-progress.
// The switch is intentionally exhaustive: a new status must be added
// here explicitly rather than falling into a silent default.
func (s RunStatus) Outcome() Outcome {
	switch s {
	case StatusSuccess:
		return OutcomePassed
	case StatusFailed, StatusError, StatusStalled, StatusCancelled:
		return OutcomeFailed
	case StatusPending, StatusInProgress:
		return OutcomeInProgress
	default:
		panic(fmt.Sprintf("unhandled run status %q", string(s)))
	}
}

// Valid reports whether s is one of the known run statuses.
func (s RunStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusSuccess,
		StatusFailed, StatusError, StatusStalled, StatusCancelled:
		return true
	default:
		return false
	}
}

// RunMetadata carries optional annotations attached to a run event.
type RunMetadata struct {
	TargetReferenceID string `json:"targetReferenceId,omitempty"`
}

// ScenarioRunEvent is a single scenario execution as reported by the
// event store. Events are immutable once received; ScenarioRunID is
// globally unique while BatchRunID and ScenarioID are grouping keys.
type ScenarioRunEvent struct {
	BatchRunID    string      `json:"batchRunId"`
	ScenarioRunID string      `json:"scenarioRunId"`
	ScenarioID    string      `json:"scenarioId"`
	Name          string      `json:"name,omitempty"`
	Status        RunStatus   `json:"status"`
	Timestamp     int64       `json:"timestamp"`
	DurationMs    int64       `json:"durationInMs"`
	Metadata      RunMetadata `json:"metadata"`
}

// DisplayName returns the run's name, falling back to its scenario ID.
func (e *ScenarioRunEvent) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}

	return e.ScenarioID
}

// TimeWindow bounds a query to [Start, End] in epoch milliseconds,
// inclusive on both ends.
type TimeWindow struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether ts falls inside the window.
func (w TimeWindow) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// Scope identifies what slice of run history a view is looking at:
// a single suite, or every suite in a project, optionally narrowed to
// a time window. Changing the scope invalidates all accumulated pages.
type Scope struct {
	SuiteID   string      `json:"suiteId,omitempty"`
	ProjectID string      `json:"projectId,omitempty"`
	Window    *TimeWindow `json:"window,omitempty"`
}

// Equal reports whether two scopes describe the same query.
func (s Scope) Equal(o Scope) bool {
	if s.SuiteID != o.SuiteID || s.ProjectID != o.ProjectID {
		return false
	}

	if (s.Window == nil) != (o.Window == nil) {
		return false
	}

	return s.Window == nil || *s.Window == *o.Window
}

// QueueStatus reports the execution queue's occupancy for a scope.
// Waiting jobs have not started producing events yet; active jobs are
// expected to surface through the run stream itself.
type QueueStatus struct {
	Waiting int `json:"waiting"`
	Active  int `json:"active"`
}

// Busy reports whether any work is queued or executing.
func (q QueueStatus) Busy() bool {
	return q.Waiting > 0 || q.Active > 0
}
