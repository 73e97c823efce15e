package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyfix/cmd/pyfix/commands"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestFixCommandFlags(t *testing.T) {
	t.Parallel()

	cmd := commands.NewFixCommand()

	for _, name := range []string{"config", "diff", "check", "ignore-init-modules", "workers", "quiet", "verbose", "no-color"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestFixCommandRewritesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.py", "import requests\n\n\nx = 1\n")

	cmd := commands.NewFixCommand()
	cmd.SetArgs([]string{"--quiet", path})
	cmd.SetOut(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))
}

func TestFixCommandCheckMode(t *testing.T) {
	dir := t.TempDir()
	source := "import requests\n\n\nx = 1\n"
	path := writeFile(t, dir, "app.py", source)

	cmd := commands.NewFixCommand()
	cmd.SetArgs([]string{"--check", "--quiet", path})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, commands.ErrCheckFailed)

	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, source, string(content))
}

func TestFixCommandCheckModeCleanFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.py", "import os\n\n\nprint(os.sep)\n")

	cmd := commands.NewFixCommand()
	cmd.SetArgs([]string{"--check", "--quiet", path})
	cmd.SetOut(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())
}

func TestFixCommandDiffModeLeavesFile(t *testing.T) {
	dir := t.TempDir()
	source := "import requests\n\n\nx = 1\n"
	path := writeFile(t, dir, "app.py", source)

	var out bytes.Buffer

	cmd := commands.NewFixCommand()
	cmd.SetArgs([]string{"--diff", "--no-color", path})
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, source, string(content))
	assert.Contains(t, out.String(), "-import requests")
}
