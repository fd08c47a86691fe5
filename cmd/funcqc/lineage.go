package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	ferrors "github.com/funcqc/funcqc/internal/errors"
	"github.com/funcqc/funcqc/internal/ui"
	"github.com/funcqc/funcqc/pkg/lineage"
	"github.com/funcqc/funcqc/pkg/model"
	"github.com/funcqc/funcqc/pkg/pipeline"
)

// runLineage executes the 'lineage' command: it diffs two snapshots and
// runs the Lineage Detector over the result.
func runLineage(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("lineage", flag.ExitOnError)
	persist := fs.Bool("save", false, "Persist detected candidates as draft Lineage records")
	minSimilarity := fs.Float64("min-similarity", 0, "Override the default minimum text similarity threshold")
	risks := fs.Bool("risks", false, "Render a risk-focused summary (mutually exclusive with --ai-optimized)")
	aiOptimized := fs.Bool("ai-optimized", false, "Render a terse, machine-consumption-optimized summary (mutually exclusive with --risks)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: funcqc lineage <from> <to> [options]

Detects rename, signature-change, inline, and split candidates between
two snapshots.

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

	if *risks && *aiOptimized {
		fatal(globals, ferrors.NewConfigError(
			"--risks and --ai-optimized are mutually exclusive",
			"both flags request a different rendering of the same result",
			"pass only one of --risks or --ai-optimized",
			nil,
		))
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
	d, err := p.Compare(ctx, fromID, toID)
	if err != nil {
		fatal(globals, err)
	}

	lcfg := lineage.Config{
		MinSimilarity:        cfg.LineageMinSignificance,
		MinSignificanceScore: cfg.LineageSplitThreshold * 100,
		EnableSplitDetection: cfg.AllowSplitDetection,
	}
	if *minSimilarity > 0 {
		lcfg.MinSimilarity = *minSimilarity
	}

	git := detectGitInfo(cwd)
	lineages, err := p.DetectLineage(ctx, d, lcfg, git.Commit, *persist)
	if err != nil {
		fatal(globals, err)
	}

	if globals.JSON {
		if err := jsonOut(lineages); err != nil {
			fatal(globals, err)
		}
		return
	}

	printLineageResult(lineages, *risks)
}

func printLineageResult(lineages []model.Lineage, risksView bool) {
	ui.Header("Lineage Candidates")
	if len(lineages) == 0 {
		fmt.Println("No lineage candidates detected.")
		return
	}
	for _, l := range lineages {
		if risksView && l.Confidence >= 0.85 {
			ui.Warningf("%s: %v -> %v (confidence %s) — review before accepting", l.Kind, l.FromPhysicalIDs, l.ToPhysicalIDs, ui.ConfidenceText(l.Confidence))
			continue
		}
		fmt.Printf("%s: %v -> %v (confidence %s)\n", l.Kind, l.FromPhysicalIDs, l.ToPhysicalIDs, ui.ConfidenceText(l.Confidence))
		if l.Note != "" {
			fmt.Printf("  %s\n", l.Note)
		}
	}
}
