package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/funcqc/funcqc/internal/ui"
	"github.com/funcqc/funcqc/pkg/pipeline"
)

// runScan executes the 'scan' command: it walks the configured roots,
// extracts and scores every function, and persists the result as a new
// snapshot with its call graph.
func runScan(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	label := fs.String("label", "", "Human-readable label for the new snapshot")
	comment := fs.String("comment", "", "Free-text comment stored on the new snapshot")
	workers := fs.Int("workers", 4, "Number of parallel parse workers")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: funcqc scan [options]

Runs the analysis pipeline over the roots configured in .funcqc.yml and
persists the result as a new snapshot.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, _ := loadConfig(globals)
	store := openStore(globals, cfg)
	defer store.Close()

	cwd, err := os.Getwd()
	if err != nil {
		fatal(globals, fmt.Errorf("cannot get current directory: %w", err))
	}
	git := detectGitInfo(cwd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	p := pipeline.New(pipeline.Config{
		Roots:        cfg.Roots,
		ExcludeGlobs: cfg.ExcludeGlobs,
		Extensions:   cfg.Extensions,
		ParseWorkers: *workers,
		Label:        *label,
		Comment:      *comment,
		GitCommit:    git.Commit,
		GitBranch:    git.Branch,
		GitTag:       git.Tag,
		ProjectRoot:  cwd,
	}, store, newLogger(globals))

	progress := NewSpinner(NewProgressConfig(globals), "Scanning")

	result, err := p.Run(ctx)
	if progress != nil {
		_ = progress.Finish()
	}
	if err != nil {
		fatal(globals, err)
	}

	if globals.JSON {
		if err := jsonOut(result); err != nil {
			fatal(globals, err)
		}
		return
	}

	printScanResult(result)
}

func printScanResult(r *pipeline.Result) {
	ui.Header("Scan Complete")
	fmt.Printf("Snapshot ID: %s\n", r.SnapshotID)
	fmt.Printf("Files Scanned: %s\n", ui.CountText(r.FilesScanned))
	fmt.Printf("Functions Found: %s\n", ui.CountText(r.FunctionsFound))
	fmt.Printf("Call Edges Found: %s\n", ui.CountText(r.CallEdgesFound))
	if r.ParseErrors > 0 {
		ui.Warningf("%d file(s) failed to parse and were skipped", r.ParseErrors)
	}
	fmt.Println()
	fmt.Println("Timings:")
	fmt.Printf("  Parse: %s\n", r.ParseDuration)
	fmt.Printf("  Build: %s\n", r.BuildDuration)
	fmt.Printf("  Write: %s\n", r.WriteDuration)
	fmt.Printf("  Total: %s\n", r.TotalDuration)
}
