package resolve_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyfix/pkg/pyanalyze"
	"github.com/Sumatoshi-tech/pyfix/pkg/resolve"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestBuildProjectIndex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "mypkg/__init__.py", "")
	writeFile(t, root, "mypkg/engine.py", "class Engine:\n    pass\n\n\nRATE = 3\n")
	writeFile(t, root, "mypkg/helpers.py", "_internal = 1\n")

	index, err := resolve.BuildProjectIndex(context.Background(), root, pyanalyze.NewAnalyzer())
	require.NoError(t, err)

	stmt, ok := index.Lookup("Engine")
	require.True(t, ok)
	assert.Equal(t, "from mypkg.engine import Engine", stmt)

	stmt, ok = index.Lookup("RATE")
	require.True(t, ok)
	assert.Equal(t, "from mypkg.engine import RATE", stmt)

	// Underscore-prefixed names are not public.
	_, ok = index.Lookup("_internal")
	assert.False(t, ok)
}

func TestBuildProjectIndexInitReexportWins(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "mypkg/__init__.py",
		"from mypkg.core import Engine\n\n__all__ = [\"Engine\"]\n")
	writeFile(t, root, "mypkg/core.py", "class Engine: ...\n")

	index, err := resolve.BuildProjectIndex(context.Background(), root, pyanalyze.NewAnalyzer())
	require.NoError(t, err)

	stmt, ok := index.Lookup("Engine")
	require.True(t, ok)
	assert.Equal(t, "from mypkg import Engine", stmt)
}

func TestBuildProjectIndexCollisionEarliestWins(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/alpha.py", "def shared(): ...\n")
	writeFile(t, root, "pkg/beta.py", "def shared(): ...\n")

	index, err := resolve.BuildProjectIndex(context.Background(), root, pyanalyze.NewAnalyzer())
	require.NoError(t, err)

	stmt, ok := index.Lookup("shared")
	require.True(t, ok)
	assert.Equal(t, "from pkg.alpha import shared", stmt)
}

func TestBuildProjectIndexSkipsVendoredDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/real.py", "def genuine(): ...\n")
	writeFile(t, root, "venv/fake.py", "def planted(): ...\n")
	writeFile(t, root, ".git/hook.py", "def hooked(): ...\n")

	index, err := resolve.BuildProjectIndex(context.Background(), root, pyanalyze.NewAnalyzer())
	require.NoError(t, err)

	_, ok := index.Lookup("genuine")
	assert.True(t, ok)

	_, ok = index.Lookup("planted")
	assert.False(t, ok)

	_, ok = index.Lookup("hooked")
	assert.False(t, ok)
}

func TestBuildProjectIndexSkipsBrokenFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "pkg/good.py", "def fine(): ...\n")
	writeFile(t, root, "pkg/bad.py", "def broken(:\n")

	index, err := resolve.BuildProjectIndex(context.Background(), root, pyanalyze.NewAnalyzer())
	require.NoError(t, err)

	_, ok := index.Lookup("fine")
	assert.True(t, ok)
	assert.Equal(t, 1, index.Len())
}

func TestImportableModulesSearchPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "localmod.py", "")
	writeFile(t, dir, "localpkg/__init__.py", "")
	writeFile(t, dir, "not-a-module.py", "")

	modules := resolve.NewImportableModules([]string{dir})

	stmt, ok := modules.Lookup("localmod")
	require.True(t, ok)
	assert.Equal(t, "import localmod", stmt)

	_, ok = modules.Lookup("localpkg")
	assert.True(t, ok)

	_, ok = modules.Lookup("not-a-module")
	assert.False(t, ok)
}
