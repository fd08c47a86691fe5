package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ".funcqc.yml"))
	require.NoError(t, err)
	require.Equal(t, []string{"."}, cfg.Roots)
	require.Equal(t, 50, cfg.BatchSize)
	require.NotEmpty(t, cfg.DataDir)
}

func TestLoad_ParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".funcqc.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
roots: ["src", "lib"]
batchSize: 25
quickMode: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"src", "lib"}, cfg.Roots)
	require.Equal(t, 25, cfg.BatchSize)
	require.True(t, cfg.QuickMode)
}

func TestLoad_RejectsEmptyRoots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".funcqc.yml")
	require.NoError(t, os.WriteFile(path, []byte("roots: []\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".funcqc.yml")
	require.NoError(t, os.WriteFile(path, []byte("roots: [\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_FallsBackToTOMLWhenYAMLMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TOMLFileName), []byte(`
roots = ["src", "lib"]
batchSize = 30
quickMode = true
`), 0o644))

	cfg, err := Load(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	require.Equal(t, []string{"src", "lib"}, cfg.Roots)
	require.Equal(t, 30, cfg.BatchSize)
	require.True(t, cfg.QuickMode)
}

func TestLoad_PrefersYAMLWhenBothFilesExist(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("roots: [\"from-yaml\"]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TOMLFileName), []byte(`roots = ["from-toml"]`), 0o644))

	cfg, err := Load(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	require.Equal(t, []string{"from-yaml"}, cfg.Roots)
}

func TestLoad_MalformedTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TOMLFileName), []byte("roots = [\n"), 0o644))

	_, err := Load(filepath.Join(dir, DefaultFileName))
	require.Error(t, err)
}

func TestLoad_NeitherFilePresentUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	require.Equal(t, []string{"."}, cfg.Roots)
}
