// Package resolver implements the Snapshot Resolver: it turns a
// user-supplied identifier into a concrete snapshot id, materializing
// a new snapshot from a Git reference on demand via a disposable
// worktree when no stored snapshot already corresponds to it.
package resolver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	ferrors "github.com/funcqc/funcqc/internal/errors"
	"github.com/funcqc/funcqc/pkg/model"
	"github.com/funcqc/funcqc/pkg/storage"
)

// AnalyzeFunc runs the analysis pipeline over a worktree rooted at
// dir and returns the snapshot id it persisted. The Resolver never
// parses code itself; it delegates that to whatever pipeline the
// caller wires in, avoiding a dependency from this package onto the
// orchestration layer.
type AnalyzeFunc func(ctx context.Context, dir, label string) (snapshotID string, err error)

// Resolver resolves identifiers against a Snapshot Store, shelling
// out to git for reference resolution and worktree materialization.
type Resolver struct {
	store    *storage.Store
	repoPath string
	analyze  AnalyzeFunc
}

// New creates a Resolver backed by store, resolving Git references
// against the repository at repoPath.
func New(store *storage.Store, repoPath string, analyze AnalyzeFunc) *Resolver {
	return &Resolver{store: store, repoPath: repoPath, analyze: analyze}
}

var commitHashPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

var headTildePattern = regexp.MustCompile(`^HEAD~(\d+)$`)

// Resolve applies the resolution order: exact id, unique id-prefix,
// label equality, latest/HEAD, HEAD~N, then a Git reference — creating
// a snapshot on demand for a Git reference with no stored match yet.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", ferrors.NewInputError("empty snapshot identifier", "no identifier was supplied", "pass a snapshot id, label, or Git reference")
	}

	if snap, err := r.store.GetSnapshot(ctx, identifier); err == nil && snap != nil {
		return snap.ID, nil
	}

	if id, ok, err := r.resolveByIDPrefix(ctx, identifier); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	if id, ok, err := r.resolveByLabel(ctx, identifier); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	if identifier == "latest" || identifier == "HEAD" {
		return r.resolveLatest(ctx)
	}

	if m := headTildePattern.FindStringSubmatch(identifier); m != nil {
		n, _ := strconv.Atoi(m[1])
		return r.resolveHeadTilde(ctx, n)
	}

	return r.resolveGitReference(ctx, identifier)
}

func (r *Resolver) resolveByIDPrefix(ctx context.Context, prefix string) (string, bool, error) {
	matches, err := r.store.FindSnapshotsByIDPrefix(ctx, prefix)
	if err != nil {
		return "", false, err
	}
	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return matches[0].ID, true, nil
	default:
		return "", false, ambiguousError(prefix, matches)
	}
}

func (r *Resolver) resolveByLabel(ctx context.Context, label string) (string, bool, error) {
	matches, err := r.store.FindSnapshotsByLabel(ctx, label)
	if err != nil {
		return "", false, err
	}
	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return matches[0].ID, true, nil
	default:
		return "", false, ambiguousError(label, matches)
	}
}

func (r *Resolver) resolveLatest(ctx context.Context) (string, error) {
	snaps, err := r.store.GetSnapshots(ctx, storage.ScopeQuery{Limit: 1})
	if err != nil {
		return "", err
	}
	if len(snaps) == 0 {
		return "", ferrors.NewNotFoundError("no snapshots found", "the Snapshot Store is empty", "run a scan before resolving 'latest'")
	}
	return snaps[0].ID, nil
}

// resolveHeadTilde resolves HEAD~N: the N-th newest snapshot, 1-based
// from the most recent after HEAD (HEAD~1 is the second-newest).
func (r *Resolver) resolveHeadTilde(ctx context.Context, n int) (string, error) {
	snaps, err := r.store.GetSnapshots(ctx, storage.ScopeQuery{Limit: n + 1})
	if err != nil {
		return "", err
	}
	if len(snaps) <= n {
		return "", ferrors.NewNotFoundError(
			fmt.Sprintf("no snapshot at HEAD~%d", n),
			fmt.Sprintf("only %d snapshot(s) are stored", len(snaps)),
			"resolve a smaller offset or run more scans",
		)
	}
	return snaps[n].ID, nil
}

// resolveGitReference resolves identifier as a commit hash, branch, or
// tag. If it does not yet correspond to a stored snapshot, a new one
// is materialized from a temporary worktree at that commit.
func (r *Resolver) resolveGitReference(ctx context.Context, ref string) (string, error) {
	if r.repoPath == "" {
		return "", ferrors.NewNotFoundError(
			fmt.Sprintf("identifier %q did not resolve", ref),
			"no repository is configured for Git reference resolution",
			"pass a known snapshot id or label",
		)
	}

	hash, err := r.resolveRef(ref)
	if err != nil {
		return "", ferrors.NewNotFoundError(
			fmt.Sprintf("identifier %q did not resolve", ref),
			err.Error(),
			"check the id, label, or Git reference for typos",
		)
	}

	label := fmt.Sprintf("%s@%s", ref, shortHash(hash))
	if matches, findErr := r.store.FindSnapshotsByLabel(ctx, label); findErr == nil && len(matches) == 1 {
		return matches[0].ID, nil
	}

	return r.materialize(ctx, hash, label)
}

// materialize checks out hash into a disposable worktree, runs the
// analysis pipeline over it, and removes the worktree on every exit
// path, successful or not.
func (r *Resolver) materialize(ctx context.Context, hash, label string) (string, error) {
	if r.analyze == nil {
		return "", ferrors.NewInternalError(
			"cannot materialize snapshot",
			"no analysis pipeline was wired into the resolver",
			"construct the resolver with a non-nil AnalyzeFunc", nil,
		)
	}

	dir, err := os.MkdirTemp("", "funcqc-worktree-*")
	if err != nil {
		return "", ferrors.NewGitError("cannot create worktree directory", err.Error(), "check available disk space and temp-dir permissions", err)
	}
	defer os.RemoveAll(dir)

	if err := r.runGit(ctx, "worktree", "add", "--detach", dir, hash); err != nil {
		return "", ferrors.NewGitError("git worktree add failed", err.Error(), "ensure the commit exists and the working tree is clean", err)
	}
	defer func() { _ = r.runGit(context.Background(), "worktree", "remove", "--force", dir) }()

	snapshotID, err := r.analyze(ctx, dir, label)
	if err != nil {
		return "", err
	}
	return snapshotID, nil
}

func (r *Resolver) resolveRef(ref string) (string, error) {
	out, err := r.runGitOutput(context.Background(), "rev-parse", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *Resolver) runGit(ctx context.Context, args ...string) error {
	_, err := r.runGitOutput(ctx, args...)
	return err
}

func (r *Resolver) runGitOutput(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.repoPath
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func ambiguousError(identifier string, matches []model.Snapshot) error {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ferrors.NewAmbiguousIdentifierError(
		fmt.Sprintf("identifier %q is ambiguous", identifier),
		fmt.Sprintf("matches %d snapshots: %s", len(ids), strings.Join(ids, ", ")),
		"use a longer id prefix or a unique label",
	)
}

// LooksLikeCommitHash reports whether s has the shape of a Git commit
// hash (7-40 hex characters), useful for callers deciding whether to
// attempt Git resolution at all.
func LooksLikeCommitHash(s string) bool {
	return commitHashPattern.MatchString(s)
}
