package runstore

import (
	"time"

	"github.com/scenarioops/suitescope/pkg/runhistory"
)

// ScenarioRun is a single indexed scenario execution in the database.
// ScenarioRunID is globally unique; BatchRunID and ScenarioID repeat
// across rows and are the grouping keys.
type ScenarioRun struct {
	ID            uint   `gorm:"primaryKey"`
	ScenarioRunID string `gorm:"not null;uniqueIndex"`
	BatchRunID    string `gorm:"index"`
	ScenarioID    string `gorm:"index"`
	Name          string
	SuiteID       string `gorm:"index"`
	ProjectID     string `gorm:"index"`
	Status        string `gorm:"index"`
	Timestamp     int64  `gorm:"index"`
	DurationMs    int64

	// Denormalized metadata.
	TargetReferenceID string `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event converts the row to the engine's event type.
func (r *ScenarioRun) Event() runhistory.ScenarioRunEvent {
	return runhistory.ScenarioRunEvent{
		BatchRunID:    r.BatchRunID,
		ScenarioRunID: r.ScenarioRunID,
		ScenarioID:    r.ScenarioID,
		Name:          r.Name,
		Status:        runhistory.RunStatus(r.Status),
		Timestamp:     r.Timestamp,
		DurationMs:    r.DurationMs,
		Metadata: runhistory.RunMetadata{
			TargetReferenceID: r.TargetReferenceID,
		},
	}
}

// Scenario is a catalog row used to build display-name lookups.
type Scenario struct {
	ID         uint   `gorm:"primaryKey"`
	ScenarioID string `gorm:"not null;uniqueIndex"`
	ProjectID  string `gorm:"index"`
	Name       string
}

// Target is a catalog row for the agents and prompts under test.
type Target struct {
	ID        uint   `gorm:"primaryKey"`
	TargetID  string `gorm:"not null;uniqueIndex"`
	ProjectID string `gorm:"index"`
	Name      string
}

// CatalogEntry is the id/name pair the catalog endpoints return.
type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
