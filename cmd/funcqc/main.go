// Package main implements the funcqc CLI: a thin wrapper over the
// analysis pipeline, the Snapshot Store, and the snapshot resolver.
//
// Usage:
//
//	funcqc scan                         Run the analysis pipeline, persisting a new snapshot
//	funcqc diff <from> <to> [--json]    Compare two snapshots
//	funcqc lineage <from> <to> [--json] Detect lineage candidates between two snapshots
//	funcqc snapshots [--json]           List stored snapshots
//	funcqc describe import <file>       Batch-import function descriptions
//	funcqc watch                        Re-scan on file changes, diffing against the prior snapshot
//	funcqc serve [--addr]                Serve a read-only HTTP query API
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/funcqc/funcqc/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .funcqc.yml (default: ./.funcqc.yml)")
		jsonOutput  = flag.Bool("json", false, "Emit machine-readable JSON output")
		quiet       = flag.Bool("quiet", false, "Suppress progress output")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `funcqc - function-quality tracking CLI

Usage:
  funcqc <command> [options]

Commands:
  scan              Run the analysis pipeline and persist a new snapshot
  diff              Compare two snapshots
  lineage           Detect lineage candidates between two snapshots
  snapshots         List stored snapshots
  describe import   Batch-import function descriptions from a JSON file
  watch             Re-scan on file changes, diffing against the prior snapshot
  serve             Serve a read-only HTTP query API

Global Options:
  --config    Path to .funcqc.yml
  --json      Emit machine-readable JSON output
  --quiet     Suppress progress output
  --no-color  Disable colored output
  --version   Show version and exit

Examples:
  funcqc scan
  funcqc diff HEAD~1 HEAD --json
  funcqc lineage HEAD~1 HEAD
  funcqc describe import descriptions.json

`)
	}

	flag.Parse()
	globals := GlobalFlags{ConfigPath: *configPath, JSON: *jsonOutput, Quiet: *quiet, NoColor: *noColor}
	ui.InitColors(globals.NoColor)

	if *showVersion {
		fmt.Printf("funcqc version %s (commit %s)\n", version, commit)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "scan":
		runScan(cmdArgs, globals)
	case "diff":
		runDiff(cmdArgs, globals)
	case "lineage":
		runLineage(cmdArgs, globals)
	case "snapshots":
		runSnapshots(cmdArgs, globals)
	case "describe":
		runDescribe(cmdArgs, globals)
	case "watch":
		runWatch(cmdArgs, globals)
	case "serve":
		runServe(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
