package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestWalk_ExtensionFilterAndHash(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ts", "export function a() {}")
	writeFile(t, dir, "b.md", "# not code")
	writeFile(t, dir, "node_modules/ignored.ts", "export function x() {}")

	w := New(Options{
		Roots:        []string{dir},
		Extensions:   []string{".ts"},
		ExcludeGlobs: []string{"node_modules"},
	})

	var got []string
	err := w.Walk(context.Background(), func(f File) error {
		got = append(got, filepath.Base(f.Path))
		require.NotEmpty(t, f.Hash)
		require.Len(t, f.Hash, 64)
		return nil
	})
	require.NoError(t, err)

	sort.Strings(got)
	require.Equal(t, []string{"a.ts"}, got)
}

func TestWalk_GlobExclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/keep.ts", "export function keep() {}")
	writeFile(t, dir, "src/keep.test.ts", "export function skip() {}")

	w := New(Options{
		Roots:        []string{dir},
		Extensions:   []string{".ts"},
		ExcludeGlobs: []string{"*.test.ts"},
	})

	var got []string
	err := w.Walk(context.Background(), func(f File) error {
		got = append(got, filepath.Base(f.Path))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"keep.ts"}, got)
}
