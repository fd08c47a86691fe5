// Package bootstrap opens the Snapshot Store backing a project's
// analysis data, creating its data directory on first use.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	ferrors "github.com/funcqc/funcqc/internal/errors"
	"github.com/funcqc/funcqc/pkg/storage"
)

// ProjectConfig configures the Snapshot Store for one project root.
type ProjectConfig struct {
	// DataDir is the directory where the Snapshot Store keeps its
	// BadgerDB files.
	DataDir string
}

// OpenStore opens (creating if necessary) the Snapshot Store at
// config.DataDir. Idempotent: calling it repeatedly against the same
// directory is safe, matching BadgerDB's own open-or-create semantics.
func OpenStore(config ProjectConfig, logger *slog.Logger) (*storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.DataDir == "" {
		return nil, ferrors.NewConfigError(
			"cannot open snapshot store",
			"no data directory was configured",
			"set dataDir in .funcqc.yml",
			nil,
		)
	}

	logger.Info("bootstrap.store.open", "data_dir", config.DataDir)

	store, err := storage.Open(storage.Config{DataDir: config.DataDir})
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	logger.Info("bootstrap.store.ready", "data_dir", config.DataDir)
	return store, nil
}

// StoreExists reports whether a Snapshot Store has already been
// created at dataDir, distinguishing "empty project" from "never
// initialized". It only checks that dataDir exists.
func StoreExists(dataDir string) bool {
	_, err := os.Stat(dataDir)
	return err == nil
}
