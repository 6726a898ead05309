// Package export writes JSON snapshots of the aggregated run-history
// view to a local directory or to S3-compatible storage.
package export

import (
	"context"
	"time"

	"github.com/scenarioops/suitescope/pkg/runhistory"
)

// Snapshot is the exported document: one frozen aggregation of the
// run history for a scope.
type Snapshot struct {
	Generated int64                         `json:"generated"`
	Scope     runhistory.Scope              `json:"scope"`
	GroupBy   runhistory.GroupType          `json:"groupBy"`
	Groups    []runhistory.RunGroup         `json:"groups"`
	Summaries map[string]runhistory.Summary `json:"summaries"`
	Totals    runhistory.Totals             `json:"totals"`
}

// NewSnapshot freezes a controller view into an exportable document.
func NewSnapshot(
	scope runhistory.Scope, groupBy runhistory.GroupType, view runhistory.View,
) *Snapshot {
	return &Snapshot{
		Generated: time.Now().UnixMilli(),
		Scope:     scope,
		GroupBy:   groupBy,
		Groups:    view.Groups,
		Summaries: view.Summaries,
		Totals:    view.Totals,
	}
}

// Writer persists a snapshot to a storage backend and returns the
// location it was written to.
type Writer interface {
	Write(ctx context.Context, snapshot *Snapshot) (string, error)
}
