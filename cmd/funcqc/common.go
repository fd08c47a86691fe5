package main

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/funcqc/funcqc/internal/bootstrap"
	"github.com/funcqc/funcqc/internal/config"
	ferrors "github.com/funcqc/funcqc/internal/errors"
	"github.com/funcqc/funcqc/internal/output"
	"github.com/funcqc/funcqc/pkg/pipeline"
	"github.com/funcqc/funcqc/pkg/resolver"
	"github.com/funcqc/funcqc/pkg/storage"
)

// jsonOut writes data as pretty-printed JSON to stdout, the standard
// --json response shape across every subcommand.
func jsonOut(data any) error {
	return output.JSON(data)
}

// GlobalFlags carries the flags every funcqc subcommand understands,
// parsed once in main before subcommand dispatch.
type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Quiet      bool
	NoColor    bool
}

func loadConfig(g GlobalFlags) (*config.Config, string) {
	path := g.ConfigPath
	if path == "" {
		path = config.DefaultFileName
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatal(g, err)
	}
	return cfg, path
}

func openStore(g GlobalFlags, cfg *config.Config) *storage.Store {
	logger := newLogger(g)
	store, err := bootstrap.OpenStore(bootstrap.ProjectConfig{DataDir: cfg.DataDir}, logger)
	if err != nil {
		fatal(g, err)
	}
	return store
}

func newLogger(g GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	if g.Quiet {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// fatal reports err on stderr (or as a JSON error envelope when --json
// is set) and exits with the error's classified exit code. Never returns.
func fatal(g GlobalFlags, err error) {
	ferrors.FatalError(err, g.JSON)
}

// gitInfo describes the repository state a new snapshot was taken
// against, best-effort: every field is empty when repoPath isn't a git
// repository.
type gitInfo struct {
	Commit string
	Branch string
	Tag    string
}

func detectGitInfo(repoPath string) gitInfo {
	var info gitInfo
	info.Commit = runGit(repoPath, "rev-parse", "HEAD")
	if branch := runGit(repoPath, "symbolic-ref", "--short", "HEAD"); branch != "" {
		info.Branch = branch
	}
	info.Tag = runGit(repoPath, "describe", "--tags", "--exact-match")
	return info
}

// newResolver builds a Snapshot Resolver rooted at repoPath, wiring a
// fresh Pipeline as its AnalyzeFunc so an unresolved Git reference can
// be materialized into a new snapshot from a disposable worktree.
func newResolver(g GlobalFlags, cfg *config.Config, store *storage.Store, repoPath string) *resolver.Resolver {
	logger := newLogger(g)
	analyze := func(ctx context.Context, dir, label string) (string, error) {
		git := detectGitInfo(dir)
		roots := make([]string, len(cfg.Roots))
		for i, r := range cfg.Roots {
			roots[i] = filepath.Join(dir, r)
		}
		p := pipeline.New(pipeline.Config{
			Roots:        roots,
			ExcludeGlobs: cfg.ExcludeGlobs,
			Extensions:   cfg.Extensions,
			Label:        label,
			GitCommit:    git.Commit,
			GitBranch:    git.Branch,
			GitTag:       git.Tag,
			ProjectRoot:  dir,
		}, store, logger)
		result, err := p.Run(ctx)
		if err != nil {
			return "", err
		}
		return result.SnapshotID, nil
	}
	return resolver.New(store, repoPath, analyze)
}

func runGit(repoPath string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
