package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funcqc/funcqc/pkg/lineage"
	"github.com/funcqc/funcqc/pkg/storage"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(storage.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestPipeline(t *testing.T, dir string, store *storage.Store) *Pipeline {
	t.Helper()
	return New(Config{
		Roots:      []string{dir},
		Extensions: []string{".ts"},
		Label:      "v1",
	}, store, nil)
}

func TestRun_ExtractsScoresAndPersistsASnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math.ts", `export function add(a: number, b: number): number {
  return a + b;
}

function helper() {
  if (add(1, 2) > 0) {
    return true;
  }
  return false;
}
`)

	store := openTestStore(t)
	p := newTestPipeline(t, dir, store)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.SnapshotID)
	require.NotEmpty(t, res.RunID)
	require.Equal(t, 1, res.FilesScanned)
	require.Equal(t, 2, res.FunctionsFound)
	require.Equal(t, 0, res.ParseErrors)

	snap, err := store.GetSnapshot(context.Background(), res.SnapshotID)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Metadata.TotalFunctions)
	require.Equal(t, 1, snap.Metadata.ExportedFunctions)

	fns, err := store.QueryFunctions(context.Background(), storage.QueryOptions{SnapshotID: res.SnapshotID})
	require.NoError(t, err)
	require.Len(t, fns, 2)
	for _, fn := range fns {
		require.NotEmpty(t, fn.PhysicalID)
		require.NotEmpty(t, fn.SemanticID)
		require.NotEmpty(t, fn.ContentID)
	}
}

func TestRun_ResolvesCallEdgeBetweenFunctionsInSameFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math.ts", `export function add(a: number, b: number): number {
  return a + b;
}

export function sumTwice(a: number, b: number): number {
  return add(a, b) + add(a, b);
}
`)

	store := openTestStore(t)
	p := newTestPipeline(t, dir, store)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Greater(t, res.CallEdgesFound, 0)
}

func TestRun_CountsFunctionsInSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.ts", `export function ok() { return 1; }`)

	store := openTestStore(t)
	p := newTestPipeline(t, dir, store)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.FunctionsFound)
}

func TestRun_ParallelAndSequentialPathsAgreeOnFunctionCount(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		writeFile(t, dir, filepath.Join("src", "f"+string(rune('a'+i))+".ts"),
			`export function f() { return 1; }`)
	}

	store := openTestStore(t)
	p := New(Config{Roots: []string{dir}, Extensions: []string{".ts"}, ParseWorkers: 4}, store, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, res.FilesScanned)
	require.Equal(t, 12, res.FunctionsFound)
}

func TestCompareAndDetectLineage_FindsRenameAcrossSnapshots(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math.ts", `export function computeTotal(a: number, b: number): number {
  return a + b;
}
`)

	store := openTestStore(t)
	p := newTestPipeline(t, dir, store)

	from, err := p.Run(context.Background())
	require.NoError(t, err)

	writeFile(t, dir, "math.ts", `export function computeSum(a: number, b: number): number {
  return a + b;
}
`)
	to, err := p.Run(context.Background())
	require.NoError(t, err)

	d, err := p.Compare(context.Background(), from.SnapshotID, to.SnapshotID)
	require.NoError(t, err)
	require.Len(t, d.Removed, 1)
	require.Len(t, d.Added, 1)

	lineages, err := p.DetectLineage(context.Background(), d, lineage.DefaultConfig(), "abc123", true)
	require.NoError(t, err)
	require.NotEmpty(t, lineages)
	require.Equal(t, "draft", string(lineages[0].Status))

	saved, err := store.GetLineages(context.Background(), lineages[0].Status)
	require.NoError(t, err)
	require.NotEmpty(t, saved)
}

func TestCompare_IdenticalSnapshotIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ts", `export function a() { return 1; }`)

	store := openTestStore(t)
	p := newTestPipeline(t, dir, store)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	d, err := p.Compare(context.Background(), res.SnapshotID, res.SnapshotID)
	require.NoError(t, err)
	require.Empty(t, d.Added)
	require.Empty(t, d.Removed)
	require.Empty(t, d.Modified)
	require.Len(t, d.Unchanged, 1)
}
