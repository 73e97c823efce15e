package batch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyfix/internal/batch"
	"github.com/Sumatoshi-tech/pyfix/pkg/engine"
	"github.com/Sumatoshi-tech/pyfix/pkg/pyanalyze"
	"github.com/Sumatoshi-tech/pyfix/pkg/pysource"
	"github.com/Sumatoshi-tech/pyfix/pkg/resolve"
)

func newFixer() *engine.Fixer {
	tables := &resolve.Tables{
		Typing:     resolve.NewTypingMembers(),
		Importable: resolve.NewImportableModules(nil),
	}

	return engine.NewFixer(pysource.NewParser(), pyanalyze.NewAnalyzer(), tables)
}

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDiscoverExpandsDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	one := writeFile(t, dir, "pkg/a.py", "x = 1\n")
	two := writeFile(t, dir, "pkg/sub/b.py", "y = 2\n")
	writeFile(t, dir, "pkg/notes.txt", "not python\n")
	writeFile(t, dir, "pkg/__pycache__/c.py", "z = 3\n")
	writeFile(t, dir, "pkg/.hidden/d.py", "w = 4\n")

	files, err := batch.Discover([]string{dir}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{one, two}, files)
}

func TestDiscoverIgnoreInitModules(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	kept := writeFile(t, dir, "pkg/mod.py", "x = 1\n")
	writeFile(t, dir, "pkg/__init__.py", "")

	files, err := batch.Discover([]string{dir}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{kept}, files)
}

func TestDiscoverDeduplicates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "x = 1\n")

	files, err := batch.Discover([]string{path, path, dir}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{path}, files)
}

func TestRunWritesChangedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "import requests\n\n\nx = 1\n")

	runner := batch.NewRunner(newFixer(), 2, true)
	outcomes := runner.Run(context.Background(), []string{path})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Changed)
	assert.True(t, outcomes[0].Written)
	require.NoError(t, outcomes[0].Err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))
}

func TestRunDryRunLeavesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := "import requests\n\n\nx = 1\n"
	path := writeFile(t, dir, "a.py", source)

	runner := batch.NewRunner(newFixer(), 2, false)
	outcomes := runner.Run(context.Background(), []string{path})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Changed)
	assert.False(t, outcomes[0].Written)
	assert.Equal(t, source, outcomes[0].Original)
	assert.Equal(t, "x = 1\n", outcomes[0].Fixed)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
}

func TestRunUnchangedFileNotRewritten(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "import os\n\n\nprint(os.sep)\n")

	info, err := os.Stat(path)
	require.NoError(t, err)

	runner := batch.NewRunner(newFixer(), 1, true)
	outcomes := runner.Run(context.Background(), []string{path})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Changed)
	assert.False(t, outcomes[0].Written)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
}

func TestRunMissingFileReportsError(t *testing.T) {
	t.Parallel()

	runner := batch.NewRunner(newFixer(), 1, true)
	outcomes := runner.Run(context.Background(), []string{"/does/not/exist.py"})

	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
}

func TestRunOutcomesSortedByPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	b := writeFile(t, dir, "b.py", "x = 1\n")
	a := writeFile(t, dir, "a.py", "y = 2\n")

	runner := batch.NewRunner(newFixer(), 4, false)
	outcomes := runner.Run(context.Background(), []string{b, a})

	require.Len(t, outcomes, 2)
	assert.Equal(t, a, outcomes[0].Path)
	assert.Equal(t, b, outcomes[1].Path)
}
