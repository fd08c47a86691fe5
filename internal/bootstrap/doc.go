// Package bootstrap is the thin entry point a CLI command reaches for
// before it needs the Snapshot Store: it resolves the data directory
// and opens (creating on first use) the underlying BadgerDB instance.
//
//	store, err := bootstrap.OpenStore(bootstrap.ProjectConfig{
//	    DataDir: cfg.DataDir,
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// OpenStore is idempotent: calling it repeatedly against the same
// directory is safe and never corrupts existing data.
package bootstrap
