package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyfix/internal/config"
	"github.com/Sumatoshi-tech/pyfix/pkg/pysource"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.LoadConfig("", dir)
	require.NoError(t, err)

	assert.Equal(t, pysource.DefaultNoqaMarker, cfg.NoqaMarker)
	assert.Equal(t, config.DefaultWorkers, cfg.Workers)
	assert.False(t, cfg.IgnoreInitModules)
	assert.Empty(t, cfg.ProjectRoot)
	assert.Empty(t, cfg.CacheDir)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".pyfix.yaml",
		"workers: 8\nnoqa_marker: \"keep-import\"\nignore_init_modules: true\n")

	cfg, err := config.LoadConfig(path, dir)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "keep-import", cfg.NoqaMarker)
	assert.True(t, cfg.IgnoreInitModules)
}

func TestLoadConfigInvalidWorkers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".pyfix.yaml", "workers: 0\n")

	_, err := config.LoadConfig(path, dir)
	require.Error(t, err)
}

func TestLoadConfigPyprojectOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml",
		"[tool.pyfix]\n"+
			"noqa_marker = \"project-marker\"\n"+
			"search_paths = [\"src\"]\n\n"+
			"[tool.pyfix.common_statements]\n"+
			"BaseModel = \"from models import BaseModel\"\n")

	cfg, err := config.LoadConfig("", dir)
	require.NoError(t, err)

	assert.Equal(t, "project-marker", cfg.NoqaMarker)
	assert.Equal(t, "from models import BaseModel", cfg.CommonStatements["BaseModel"])
	require.Len(t, cfg.SearchPaths, 1)
	assert.Equal(t, filepath.Join(dir, "src"), cfg.SearchPaths[0])
}

func TestLoadConfigPyprojectMarksProjectRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", "[tool.pyfix]\n")

	cfg, err := config.LoadConfig("", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
}

func TestLoadConfigPyprojectWalkUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pyproject.toml",
		"[tool.pyfix]\nnoqa_marker = \"found-above\"\n")

	nested := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := config.LoadConfig("", nested)
	require.NoError(t, err)

	assert.Equal(t, "found-above", cfg.NoqaMarker)
}

func TestFindPyprojectMissing(t *testing.T) {
	_, found := config.FindPyproject(t.TempDir())
	assert.False(t, found)
}

func TestLoadConfigPreservesOverrideNameCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml",
		"[tool.pyfix.common_statements]\n"+
			"OrderedDict = \"from collections import OrderedDict\"\n")

	cfg, err := config.LoadConfig("", dir)
	require.NoError(t, err)

	_, ok := cfg.CommonStatements["OrderedDict"]
	assert.True(t, ok)
}
