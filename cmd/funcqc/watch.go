package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	"github.com/funcqc/funcqc/internal/ui"
	"github.com/funcqc/funcqc/pkg/pipeline"
)

// runWatch executes the 'watch' command: it re-runs the analysis
// pipeline whenever a file under one of the configured roots changes,
// debouncing bursts of events, then diffs the new snapshot against the
// one it replaced.
func runWatch(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	debounce := fs.Duration("debounce", 500*time.Millisecond, "Quiet period after the last event before re-scanning")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: funcqc watch [options]

Watches the configured roots and re-runs the analysis pipeline after
each debounce window, printing a diff against the prior snapshot.

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
	logger := newLogger(globals)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatal(globals, fmt.Errorf("create file watcher: %w", err))
	}
	defer watcher.Close()

	for _, root := range cfg.Roots {
		if err := addWatchRecursive(watcher, root); err != nil {
			logger.Warn("watch.root.error", "root", root, "err", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ui.Header("Watching for changes")

	var lastSnapshotID string
	runOnce := func() {
		git := detectGitInfo(cwd)
		p := pipeline.New(pipeline.Config{
			Roots:        cfg.Roots,
			ExcludeGlobs: cfg.ExcludeGlobs,
			Extensions:   cfg.Extensions,
			GitCommit:    git.Commit,
			GitBranch:    git.Branch,
			GitTag:       git.Tag,
			ProjectRoot:  cwd,
		}, store, logger)

		result, err := p.Run(ctx)
		if err != nil {
			ui.Errorf("scan failed: %v", err)
			return
		}
		ui.Successf("scanned: %d functions, %d call edges", result.FunctionsFound, result.CallEdgesFound)

		if lastSnapshotID != "" {
			d, err := p.Compare(ctx, lastSnapshotID, result.SnapshotID)
			if err != nil {
				ui.Errorf("diff failed: %v", err)
			} else {
				fmt.Printf("  added=%d removed=%d modified=%d\n",
					len(d.Added), len(d.Removed), len(d.Modified))
			}
		}
		lastSnapshotID = result.SnapshotID
	}

	runOnce()

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(*debounce, runOnce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch.error", "err", err)
		}
	}
}

func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	return walkDirs(root, func(dir string) error {
		return watcher.Add(dir)
	})
}

func walkDirs(root string, fn func(dir string) error) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	if err := fn(root); err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if e.Name() == "node_modules" || e.Name() == ".git" {
			continue
		}
		_ = walkDirs(filepath.Join(root, e.Name()), fn)
	}
	return nil
}
