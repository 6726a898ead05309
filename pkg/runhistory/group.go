package runhistory

import "sort"

// GroupType selects how the run list is partitioned.
type GroupType string

const (
	GroupNone     GroupType = "none"
	GroupScenario GroupType = "scenario"
	GroupTarget   GroupType = "target"
)

// Valid reports whether g is one of the known grouping modes.
func (g GroupType) Valid() bool {
	switch g {
	case GroupNone, GroupScenario, GroupTarget:
		return true
	default:
		return false
	}
}

// Reserved key and label for runs that carry no target reference.
const (
	UnknownTargetKey   = "__unknown__"
	UnknownTargetLabel = "Unknown"
)

// RunGroup is one partition of the run list. Groups are derived values,
// recomputed on every data change and never persisted. Timestamp is the
// maximum timestamp over the member runs.
type RunGroup struct {
	GroupKey   string             `json:"groupKey"`
	GroupLabel string             `json:"groupLabel"`
	GroupType  GroupType          `json:"groupType"`
	SuiteID    string             `json:"suiteId,omitempty"`
	Timestamp  int64              `json:"timestamp"`
	Runs       []ScenarioRunEvent `json:"scenarioRuns"`
}

// GroupByBatch partitions runs by batch run ID. When a scope-label map
// (batch run ID to suite ID) is supplied, each group carries the suite
// it belongs to; this is only populated in cross-suite views.
func GroupByBatch(
	runs []ScenarioRunEvent, scopeLabels map[string]string,
) []RunGroup {
	groups := partition(runs, GroupNone, func(r *ScenarioRunEvent) (string, string) {
		return r.BatchRunID, r.BatchRunID
	})

	if scopeLabels != nil {
		for i := range groups {
			groups[i].SuiteID = scopeLabels[groups[i].GroupKey]
		}
	}

	return groups
}

// GroupByScenario partitions runs by scenario ID. The group label is the
// first member's display name.
func GroupByScenario(runs []ScenarioRunEvent) []RunGroup {
	return partition(runs, GroupScenario, func(r *ScenarioRunEvent) (string, string) {
		return r.ScenarioID, r.DisplayName()
	})
}

// GroupByTarget partitions runs by target reference ID. Runs without a
// target reference collect into a single synthetic "Unknown" group.
// Labels resolve through targetNames, falling back to the raw ID.
func GroupByTarget(
	runs []ScenarioRunEvent, targetNames map[string]string,
) []RunGroup {
	return partition(runs, GroupTarget, func(r *ScenarioRunEvent) (string, string) {
		id := r.Metadata.TargetReferenceID
		if id == "" {
			return UnknownTargetKey, UnknownTargetLabel
		}

		if name, ok := targetNames[id]; ok && name != "" {
			return id, name
		}

		return id, id
	})
}

// partition is the shared grouping pass. It assigns every run to exactly
// one group (keyed by keyFn, labelled by the first member that produced
// the key), computes each group's max timestamp, and sorts groups by
// timestamp descending. The sort is stable: groups with equal timestamps
// keep the order in which their keys were first seen.
func partition(
	runs []ScenarioRunEvent,
	groupType GroupType,
	keyFn func(*ScenarioRunEvent) (key, label string),
) []RunGroup {
	groups := make([]RunGroup, 0, 8)
	index := make(map[string]int, 8)

	for i := range runs {
		run := &runs[i]
		key, label := keyFn(run)

		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, RunGroup{
				GroupKey:   key,
				GroupLabel: label,
				GroupType:  groupType,
				Timestamp:  run.Timestamp,
				Runs:       make([]ScenarioRunEvent, 0, 4),
			})
		}

		g := &groups[gi]
		g.Runs = append(g.Runs, *run)

		if run.Timestamp > g.Timestamp {
			g.Timestamp = run.Timestamp
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Timestamp > groups[j].Timestamp
	})

	return groups
}
