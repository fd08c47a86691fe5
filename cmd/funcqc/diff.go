package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/funcqc/funcqc/internal/ui"
	"github.com/funcqc/funcqc/pkg/diff"
	"github.com/funcqc/funcqc/pkg/pipeline"
)

// runDiff executes the 'diff' command: it resolves two snapshot
// identifiers and compares their Function Records.
func runDiff(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: funcqc diff <from> <to> [options]

Compares two snapshots, identified by id, id prefix, label, "latest",
"HEAD~N", or a Git reference.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		os.Exit(1)
	}

	cfg, _ := loadConfig(globals)
	store := openStore(globals, cfg)
	defer store.Close()

	cwd, err := os.Getwd()
	if err != nil {
		fatal(globals, fmt.Errorf("cannot get current directory: %w", err))
	}

	r := newResolver(globals, cfg, store, cwd)
	ctx := context.Background()

	fromID, err := r.Resolve(ctx, rest[0])
	if err != nil {
		fatal(globals, err)
	}
	toID, err := r.Resolve(ctx, rest[1])
	if err != nil {
		fatal(globals, err)
	}

	p := pipeline.New(pipeline.Config{}, store, newLogger(globals))
	result, err := p.Compare(ctx, fromID, toID)
	if err != nil {
		fatal(globals, err)
	}

	if globals.JSON {
		if err := jsonOut(result); err != nil {
			fatal(globals, err)
		}
		return
	}

	printDiffResult(result)
}

func printDiffResult(d *diff.Diff) {
	ui.Header("Diff")
	fmt.Printf("From: %s\n", d.FromSnapshotID)
	fmt.Printf("To:   %s\n", d.ToSnapshotID)
	fmt.Println()
	fmt.Printf("Added:     %s\n", ui.CountText(len(d.Added)))
	fmt.Printf("Removed:   %s\n", ui.CountText(len(d.Removed)))
	fmt.Printf("Modified:  %s\n", ui.CountText(len(d.Modified)))
	fmt.Printf("Unchanged: %s\n", ui.CountText(len(d.Unchanged)))
	fmt.Println()
	fmt.Printf("Complexity delta: %+d\n", d.Statistics.ComplexityDelta)
	fmt.Printf("LOC delta:        %+d\n", d.Statistics.LOCDelta)

	for _, rec := range d.Added {
		ui.Successf("+ %s (%s:%d)", rec.DisplayName, rec.FilePath, rec.StartLine)
	}
	for _, rec := range d.Removed {
		ui.Errorf("- %s (%s:%d)", rec.DisplayName, rec.FilePath, rec.StartLine)
	}
	for _, m := range d.Modified {
		ui.Warningf("~ %s (%s:%d): %d field(s) changed", m.To.DisplayName, m.To.FilePath, m.To.StartLine, len(m.Changes))
	}
}
