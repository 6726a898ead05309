// Package runstore persists scenario-run events and serves them back as
// cursor-paginated pages, acting as the engine's run event source.
package runstore

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/scenarioops/suitescope/pkg/config"
	"github.com/scenarioops/suitescope/pkg/runhistory"
)

// Store provides persistence for scenario runs and catalogs.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	UpsertRun(ctx context.Context, run *ScenarioRun) error

	FetchRunData(
		ctx context.Context, scope runhistory.Scope, cursor string,
	) (*runhistory.Page, error)
	FetchQueueStatus(
		ctx context.Context, scope runhistory.Scope,
	) (runhistory.QueueStatus, error)

	UpsertScenario(ctx context.Context, s *Scenario) error
	UpsertTarget(ctx context.Context, t *Target) error
	ListScenarios(ctx context.Context, projectID string) ([]CatalogEntry, error)
	ListTargets(ctx context.Context, projectID string) ([]CatalogEntry, error)
}

// Compile-time interface checks. The store doubles as the engine's
// event source.
var (
	_ Store             = (*store)(nil)
	_ runhistory.Source = (Store)(nil)
)

type store struct {
	log       logrus.FieldLogger
	cfg       *config.DatabaseConfig
	pageLimit int
	db        *gorm.DB
}

// NewStore creates a run store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
	pageLimit int,
) Store {
	if pageLimit <= 0 {
		pageLimit = config.DefaultPageLimit
	}

	return &store{
		log:       log.WithField("component", "runstore"),
		cfg:       cfg,
		pageLimit: pageLimit,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening run database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&ScenarioRun{},
		&Scenario{},
		&Target{},
	); err != nil {
		return fmt.Errorf("running store migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Run database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// UpsertRun inserts or updates a run record keyed by scenario run ID.
// Re-reported events (status transitions from the executor) update the
// existing row in place.
func (s *store) UpsertRun(ctx context.Context, run *ScenarioRun) error {
	result := s.db.WithContext(ctx).
		Where("scenario_run_id = ?", run.ScenarioRunID).
		Assign(map[string]any{
			"status":              run.Status,
			"timestamp":           run.Timestamp,
			"duration_ms":         run.DurationMs,
			"name":                run.Name,
			"batch_run_id":        run.BatchRunID,
			"scenario_id":         run.ScenarioID,
			"suite_id":            run.SuiteID,
			"project_id":          run.ProjectID,
			"target_reference_id": run.TargetReferenceID,
		}).
		FirstOrCreate(run)
	if result.Error != nil {
		return fmt.Errorf("upserting run: %w", result.Error)
	}

	return nil
}

// scopedQuery applies the scope's suite/project/window predicates.
func (s *store) scopedQuery(
	ctx context.Context, scope runhistory.Scope,
) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&ScenarioRun{})

	if scope.SuiteID != "" {
		q = q.Where("suite_id = ?", scope.SuiteID)
	}

	if scope.ProjectID != "" {
		q = q.Where("project_id = ?", scope.ProjectID)
	}

	if scope.Window != nil {
		q = q.Where("timestamp >= ? AND timestamp <= ?",
			scope.Window.Start, scope.Window.End)
	}

	return q
}

// FetchRunData returns one page of runs for the scope, newest first,
// using keyset pagination so consecutive pages never overlap even while
// new runs arrive at the head. An empty cursor requests the first page.
func (s *store) FetchRunData(
	ctx context.Context, scope runhistory.Scope, cursor string,
) (*runhistory.Page, error) {
	q := s.scopedQuery(ctx, scope)

	if cursor != "" {
		ts, lastID, err := decodeCursor(cursor)
		if err != nil {
			return nil, err
		}

		q = q.Where(
			"timestamp < ? OR (timestamp = ? AND scenario_run_id < ?)",
			ts, ts, lastID,
		)
	}

	var rows []ScenarioRun

	// Fetch one extra row to detect whether more pages exist.
	if err := q.Order("timestamp DESC").
		Order("scenario_run_id DESC").
		Limit(s.pageLimit + 1).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	page := &runhistory.Page{}

	if len(rows) > s.pageLimit {
		rows = rows[:s.pageLimit]
		page.HasMore = true
	}

	page.Runs = make([]runhistory.ScenarioRunEvent, 0, len(rows))

	for i := range rows {
		page.Runs = append(page.Runs, rows[i].Event())
	}

	if page.HasMore && len(rows) > 0 {
		last := &rows[len(rows)-1]
		page.NextCursor = encodeCursor(last.Timestamp, last.ScenarioRunID)
	}

	// Cross-suite views need the batch-to-suite labels.
	if scope.SuiteID == "" {
		labels := make(map[string]string, len(rows))

		for i := range rows {
			if rows[i].SuiteID != "" {
				labels[rows[i].BatchRunID] = rows[i].SuiteID
			}
		}

		if len(labels) > 0 {
			page.ScopeLabels = labels
		}
	}

	return page, nil
}

// FetchQueueStatus reports how many runs in the scope are waiting to
// start and how many are executing.
func (s *store) FetchQueueStatus(
	ctx context.Context, scope runhistory.Scope,
) (runhistory.QueueStatus, error) {
	var status runhistory.QueueStatus

	var waiting int64
	if err := s.scopedQuery(ctx, scope).
		Where("status = ?", string(runhistory.StatusPending)).
		Count(&waiting).Error; err != nil {
		return status, fmt.Errorf("counting waiting runs: %w", err)
	}

	var active int64
	if err := s.scopedQuery(ctx, scope).
		Where("status = ?", string(runhistory.StatusInProgress)).
		Count(&active).Error; err != nil {
		return status, fmt.Errorf("counting active runs: %w", err)
	}

	status.Waiting = int(waiting)
	status.Active = int(active)

	return status, nil
}

// UpsertScenario inserts or updates a scenario catalog row.
func (s *store) UpsertScenario(ctx context.Context, sc *Scenario) error {
	result := s.db.WithContext(ctx).
		Where("scenario_id = ?", sc.ScenarioID).
		Assign(map[string]any{"name": sc.Name, "project_id": sc.ProjectID}).
		FirstOrCreate(sc)
	if result.Error != nil {
		return fmt.Errorf("upserting scenario: %w", result.Error)
	}

	return nil
}

// UpsertTarget inserts or updates a target catalog row.
func (s *store) UpsertTarget(ctx context.Context, tg *Target) error {
	result := s.db.WithContext(ctx).
		Where("target_id = ?", tg.TargetID).
		Assign(map[string]any{"name": tg.Name, "project_id": tg.ProjectID}).
		FirstOrCreate(tg)
	if result.Error != nil {
		return fmt.Errorf("upserting target: %w", result.Error)
	}

	return nil
}

// ListScenarios returns the scenario catalog for a project, ordered by
// name for stable display.
func (s *store) ListScenarios(
	ctx context.Context, projectID string,
) ([]CatalogEntry, error) {
	q := s.db.WithContext(ctx).Model(&Scenario{})

	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}

	var rows []Scenario
	if err := q.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing scenarios: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, CatalogEntry{
			ID:   rows[i].ScenarioID,
			Name: rows[i].Name,
		})
	}

	return entries, nil
}

// ListTargets returns the target catalog for a project.
func (s *store) ListTargets(
	ctx context.Context, projectID string,
) ([]CatalogEntry, error) {
	q := s.db.WithContext(ctx).Model(&Target{})

	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}

	var rows []Target
	if err := q.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, CatalogEntry{
			ID:   rows[i].TargetID,
			Name: rows[i].Name,
		})
	}

	return entries, nil
}
