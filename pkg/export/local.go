package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scenarioops/suitescope/pkg/config"
)

// localWriter writes snapshots as timestamped JSON files in a directory.
type localWriter struct {
	log logrus.FieldLogger
	cfg *config.LocalExportConfig
}

// Compile-time interface check.
var _ Writer = (*localWriter)(nil)

// NewLocalWriter creates a writer that persists snapshots under the
// configured directory, creating it if necessary.
func NewLocalWriter(
	log logrus.FieldLogger,
	cfg *config.LocalExportConfig,
) Writer {
	return &localWriter{
		log: log.WithField("component", "local-export"),
		cfg: cfg,
	}
}

// Write marshals the snapshot and writes it to a timestamped file.
func (w *localWriter) Write(
	ctx context.Context, snapshot *Snapshot,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}

	path := filepath.Join(w.cfg.Dir, snapshotName(snapshot))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot file: %w", err)
	}

	w.log.WithField("path", path).Info("Snapshot written")

	return path, nil
}

// snapshotName derives a stable, sortable file name from the snapshot's
// generation time and scope.
func snapshotName(snapshot *Snapshot) string {
	ts := time.UnixMilli(snapshot.Generated).UTC().Format("20060102T150405Z")

	scope := snapshot.Scope.SuiteID
	if scope == "" {
		scope = snapshot.Scope.ProjectID
	}

	if scope == "" {
		scope = "all"
	}

	return fmt.Sprintf("history-%s-%s.json", scope, ts)
}
