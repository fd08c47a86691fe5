package resolver

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funcqc/funcqc/pkg/model"
	"github.com/funcqc/funcqc/pkg/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleFunctions() []model.Record {
	return []model.Record{{PhysicalID: "p1", Name: "helper", FilePath: "a.ts", StartLine: 1, Kind: model.KindDeclaration}}
}

func TestResolve_ExactID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "v1"})
	require.NoError(t, err)

	r := New(store, "", nil)
	got, err := r.Resolve(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestResolve_UniqueIDPrefix(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "v1"})
	require.NoError(t, err)

	r := New(store, "", nil)
	got, err := r.Resolve(ctx, id[:8])
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestResolve_LabelEquality(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id, err := store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "release-candidate"})
	require.NoError(t, err)

	r := New(store, "", nil)
	got, err := r.Resolve(ctx, "release-candidate")
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestResolve_Latest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	_, err := store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "first"})
	require.NoError(t, err)
	id2, err := store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "second"})
	require.NoError(t, err)

	r := New(store, "", nil)
	got, err := r.Resolve(ctx, "latest")
	require.NoError(t, err)
	require.Equal(t, id2, got)
}

func TestResolve_HeadTilde(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id1, err := store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "first"})
	require.NoError(t, err)
	_, err = store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "second"})
	require.NoError(t, err)

	r := New(store, "", nil)
	got, err := r.Resolve(ctx, "HEAD~1")
	require.NoError(t, err)
	require.Equal(t, id1, got)
}

func TestResolve_AmbiguousLabelFails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	_, err := store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "dup"})
	require.NoError(t, err)
	_, err = store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: "dup"})
	require.NoError(t, err)

	r := New(store, "", nil)
	_, err = r.Resolve(ctx, "dup")
	require.Error(t, err)
}

func TestResolve_UnknownIdentifierWithoutRepoFails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	r := New(store, "", nil)
	_, err := r.Resolve(ctx, "deadbeefcafef00d")
	require.Error(t, err)
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run())
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	run("commit", "--allow-empty", "-q", "-m", "initial")
	run("tag", "v1")
	return dir
}

func TestResolve_GitReferenceMaterializesNewSnapshot(t *testing.T) {
	repo := initRepo(t)
	store := openTestStore(t)
	ctx := context.Background()

	var analyzedDir, analyzedLabel string
	analyze := func(_ context.Context, dir, label string) (string, error) {
		analyzedDir = dir
		analyzedLabel = label
		return store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: label})
	}

	r := New(store, repo, analyze)
	id, err := r.Resolve(ctx, "v1")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NotEmpty(t, analyzedDir)
	require.Contains(t, analyzedLabel, "v1@")

	snap, err := store.GetSnapshot(ctx, id)
	require.NoError(t, err)
	require.Equal(t, analyzedLabel, snap.Label)
}

func TestResolve_GitReferenceReusesExistingMaterializedSnapshot(t *testing.T) {
	repo := initRepo(t)
	store := openTestStore(t)
	ctx := context.Background()

	calls := 0
	analyze := func(_ context.Context, _, label string) (string, error) {
		calls++
		return store.SaveSnapshot(ctx, sampleFunctions(), nil, storage.SnapshotOptions{Label: label})
	}

	r := New(store, repo, analyze)
	first, err := r.Resolve(ctx, "v1")
	require.NoError(t, err)

	second, err := r.Resolve(ctx, "v1")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, calls, "a second resolve of the same ref must reuse the materialized snapshot")
}
