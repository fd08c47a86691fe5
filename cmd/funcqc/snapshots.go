package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/funcqc/funcqc/internal/ui"
	"github.com/funcqc/funcqc/pkg/model"
	"github.com/funcqc/funcqc/pkg/storage"
)

// runSnapshots executes the 'snapshots' command: list or show stored
// snapshots.
func runSnapshots(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of snapshots to list")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: funcqc snapshots [id] [options]

Lists stored snapshots, most recent first. With an id (or id prefix,
or label) argument, shows that single snapshot instead.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	rest := fs.Args()

	cfg, _ := loadConfig(globals)
	store := openStore(globals, cfg)
	defer store.Close()
	ctx := context.Background()

	if len(rest) == 1 {
		snap, err := lookupSnapshot(ctx, store, rest[0])
		if err != nil {
			fatal(globals, err)
		}
		if globals.JSON {
			if err := jsonOut(snap); err != nil {
				fatal(globals, err)
			}
			return
		}
		printSnapshot(*snap)
		return
	}

	snaps, err := store.GetSnapshots(ctx, storage.ScopeQuery{Limit: *limit})
	if err != nil {
		fatal(globals, err)
	}

	if globals.JSON {
		if err := jsonOut(snaps); err != nil {
			fatal(globals, err)
		}
		return
	}

	ui.Header("Snapshots")
	for _, s := range snaps {
		printSnapshot(s)
		fmt.Println()
	}
}

func lookupSnapshot(ctx context.Context, store *storage.Store, identifier string) (*model.Snapshot, error) {
	if snap, err := store.GetSnapshot(ctx, identifier); err == nil && snap != nil {
		return snap, nil
	}
	matches, err := store.FindSnapshotsByIDPrefix(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if len(matches) == 1 {
		return &matches[0], nil
	}
	if len(matches) == 0 {
		matches, err = store.FindSnapshotsByLabel(ctx, identifier)
		if err != nil {
			return nil, err
		}
	}
	if len(matches) != 1 {
		return nil, fmt.Errorf("no unique snapshot matches %q", identifier)
	}
	return &matches[0], nil
}

func printSnapshot(s model.Snapshot) {
	id := s.ID
	if len(id) > 12 {
		id = id[:12]
	}
	fmt.Printf("%s  %s", ui.DimText(id), s.CreatedAt.Format("2006-01-02 15:04:05"))
	if s.Label != "" {
		fmt.Printf("  %s", s.Label)
	}
	fmt.Println()
	fmt.Printf("  functions=%d level=%s\n", s.Metadata.TotalFunctions, s.Level)
}
