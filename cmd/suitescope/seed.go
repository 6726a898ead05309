package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scenarioops/suitescope/pkg/config"
	"github.com/scenarioops/suitescope/pkg/runhistory"
	"github.com/scenarioops/suitescope/pkg/runstore"
)

var seedFixture string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the store with runs generated from a suite fixture",
	Long: `Generate plausible scenario-run events from a YAML suite fixture and
upsert them into the configured database. Development tooling for
exercising the history view without a live executor.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFixture, "fixture", "",
		"suite fixture file (yaml)")
	_ = seedCmd.MarkFlagRequired("fixture")

	rootCmd.AddCommand(seedCmd)
}

// suiteFixture describes the suite to generate runs for.
type suiteFixture struct {
	Suite     string         `yaml:"suite"`
	Project   string         `yaml:"project"`
	Batches   int            `yaml:"batches"`
	Scenarios []fixtureEntry `yaml:"scenarios"`
	Targets   []fixtureEntry `yaml:"targets"`
}

type fixtureEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

func loadFixture(path string) (*suiteFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture file: %w", err)
	}

	var fx suiteFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture file: %w", err)
	}

	if fx.Suite == "" {
		return nil, fmt.Errorf("fixture: suite is required")
	}

	if len(fx.Scenarios) == 0 {
		return nil, fmt.Errorf("fixture: at least one scenario is required")
	}

	if fx.Batches <= 0 {
		fx.Batches = 1
	}

	return &fx, nil
}

// seedStatuses is the status spread applied round-robin across
// generated runs, weighted towards finished runs.
var seedStatuses = []runhistory.RunStatus{
	runhistory.StatusSuccess,
	runhistory.StatusSuccess,
	runhistory.StatusSuccess,
	runhistory.StatusFailed,
	runhistory.StatusSuccess,
	runhistory.StatusError,
	runhistory.StatusSuccess,
	runhistory.StatusInProgress,
	runhistory.StatusPending,
}

func runSeed(cmd *cobra.Command, args []string) error {
	if len(cfgFiles) == 0 {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFiles...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fx, err := loadFixture(seedFixture)
	if err != nil {
		return err
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

	for _, sc := range fx.Scenarios {
		if err := store.UpsertScenario(ctx, &runstore.Scenario{
			ScenarioID: sc.ID,
			ProjectID:  fx.Project,
			Name:       sc.Name,
		}); err != nil {
			return err
		}
	}

	for _, tg := range fx.Targets {
		if err := store.UpsertTarget(ctx, &runstore.Target{
			TargetID:  tg.ID,
			ProjectID: fx.Project,
			Name:      tg.Name,
		}); err != nil {
			return err
		}
	}

	count, err := seedRuns(ctx, store, fx)
	if err != nil {
		return err
	}

	log.WithFields(map[string]any{
		"suite":   fx.Suite,
		"batches": fx.Batches,
		"runs":    count,
	}).Info("Seed completed")

	return nil
}

// seedRuns generates one run per (batch, scenario, target), spacing
// batches a minute apart so grouping and windowing have something to
// bite on.
func seedRuns(
	ctx context.Context, store runstore.Store, fx *suiteFixture,
) (int, error) {
	base := time.Now().Add(-time.Duration(fx.Batches) * time.Minute)

	count := 0

	for b := 0; b < fx.Batches; b++ {
		batchID := uuid.NewString()
		batchTime := base.Add(time.Duration(b) * time.Minute)

		for _, sc := range fx.Scenarios {
			targets := fx.Targets
			if len(targets) == 0 {
				// No targets configured: generate target-less runs so the
				// "Unknown" grouping path stays exercised.
				targets = []fixtureEntry{{}}
			}

			for _, tg := range targets {
				status := seedStatuses[count%len(seedStatuses)]

				var duration int64
				if status.Outcome() != runhistory.OutcomeInProgress {
					duration = int64(1500 + count*37%4000)
				}

				run := &runstore.ScenarioRun{
					ScenarioRunID:     uuid.NewString(),
					BatchRunID:        batchID,
					ScenarioID:        sc.ID,
					Name:              sc.Name,
					SuiteID:           fx.Suite,
					ProjectID:         fx.Project,
					Status:            string(status),
					Timestamp:         batchTime.UnixMilli() + int64(count%60)*1000,
					DurationMs:        duration,
					TargetReferenceID: tg.ID,
				}

				if err := store.UpsertRun(ctx, run); err != nil {
					return count, err
				}

				count++
			}
		}
	}

	return count, nil
}
