package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scenarioops/suitescope/pkg/config"
	"github.com/scenarioops/suitescope/pkg/export"
	"github.com/scenarioops/suitescope/pkg/runhistory"
	"github.com/scenarioops/suitescope/pkg/runstore"
)

var (
	exportSuite   string
	exportProject string
	exportFrom    int64
	exportTo      int64
	exportGroupBy string
	exportAll     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an aggregated history snapshot",
	Long: `Aggregate the stored run history for a suite or project and write
the grouped result as a JSON snapshot, either to a local directory or
to S3-compatible storage depending on the export configuration.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSuite, "suite", "",
		"suite id to export")
	exportCmd.Flags().StringVar(&exportProject, "project", "",
		"project id to export")
	exportCmd.Flags().Int64Var(&exportFrom, "from", 0,
		"window start (unix milliseconds, inclusive)")
	exportCmd.Flags().Int64Var(&exportTo, "to", 0,
		"window end (unix milliseconds, inclusive)")
	exportCmd.Flags().StringVar(&exportGroupBy, "group-by", "",
		"grouping mode (scenario, target; default batch)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false,
		"fetch every page instead of only the first")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if len(cfgFiles) == 0 {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFiles...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Export == nil {
		return fmt.Errorf("export is not configured")
	}

	writer, err := exportWriter(cfg)
	if err != nil {
		return err
	}

	if exportSuite == "" && exportProject == "" {
		return fmt.Errorf("either --suite or --project is required")
	}

	ctx := context.Background()

	store := runstore.NewStore(log, &cfg.Database, cfg.History.PageLimit)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting run store: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Run store stop error")
		}
	}()

	scope := runhistory.Scope{
		SuiteID:   exportSuite,
		ProjectID: exportProject,
	}

	if exportFrom != 0 || exportTo != 0 {
		to := exportTo
		if to == 0 {
			to = time.Now().UnixMilli()
		}

		scope.Window = &runhistory.TimeWindow{Start: exportFrom, End: to}
	}

	controller := runhistory.NewController(log, store, scope)

	mode := runhistory.GroupType(exportGroupBy)
	if exportGroupBy != "" {
		if !mode.Valid() {
			return fmt.Errorf("unknown group-by mode %q", exportGroupBy)
		}

		controller.SetGroupBy(mode)
	}

	if names, err := targetCatalog(ctx, store, exportProject); err != nil {
		log.WithError(err).Warn("Target catalog unavailable")
	} else {
		controller.SetTargetNames(names)
	}

	if err := controller.Refresh(ctx); err != nil {
		return fmt.Errorf("fetching run history: %w", err)
	}

	if exportAll {
		for controller.Snapshot().HasMore {
			if err := controller.LoadMore(ctx); err != nil {
				return fmt.Errorf("fetching run history page: %w", err)
			}
		}
	}

	snapshot := export.NewSnapshot(scope, controller.State().GroupBy(),
		controller.Snapshot())

	location, err := writer.Write(ctx, snapshot)
	if err != nil {
		return err
	}

	log.WithFields(map[string]any{
		"location": location,
		"groups":   len(snapshot.Groups),
	}).Info("Export completed")

	return nil
}

// exportWriter selects the configured backend. Validation has already
// ensured at most one backend is enabled.
func exportWriter(cfg *config.Config) (export.Writer, error) {
	switch {
	case cfg.Export.Local != nil && cfg.Export.Local.Enabled:
		return export.NewLocalWriter(log, cfg.Export.Local), nil
	case cfg.Export.S3 != nil && cfg.Export.S3.Enabled:
		return export.NewS3Writer(log, cfg.Export.S3)
	default:
		return nil, fmt.Errorf("no export backend is enabled")
	}
}

func targetCatalog(
	ctx context.Context, store runstore.Store, projectID string,
) (map[string]string, error) {
	targets, err := store.ListTargets(ctx, projectID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(targets))
	for _, t := range targets {
		names[t.ID] = t.Name
	}

	return names, nil
}
