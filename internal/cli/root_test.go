package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leaplint/internal/cli/commands"
	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leaplint v"+Version)
}

func TestHelpCommand(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)

	for _, name := range []string{"check", "fix", "rules", "graph", "lineage", "history", "doctor", "init", "completion"} {
		assert.Contains(t, out, name)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leaplint")
}

func TestGlobalFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())

	_, err := execute(t, "init", dir, "--example")
	require.NoError(t, err)

	manifestPath := filepath.Join(dir, "manifest.yaml")
	out, err := execute(t, "check", "--manifest", manifestPath, "--output", "json", "--fail-on", "never")
	require.NoError(t, err)

	var got output.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, manifestPath, got.Manifest)
	assert.Equal(t, 5, got.Nodes)
	assert.Empty(t, got.RunID, "history is off without a config file")
}

func TestProjectDirFlag(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())

	_, err := execute(t, "init", dir, "--example")
	require.NoError(t, err)

	out, err := execute(t, "check", "--project-dir", dir, "-o", "json", "--fail-on", "warning")
	require.ErrorIs(t, err, commands.ErrFailed)

	var got output.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Failed)
	assert.NotEmpty(t, got.RunID, "the example config enables history")

	_, err = os.Stat(filepath.Join(dir, ".leaplint", "history.db"))
	assert.NoError(t, err)
}

func TestInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "check", "--output", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
