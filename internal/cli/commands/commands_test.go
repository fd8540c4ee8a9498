package commands

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/cli/testutil"
	"github.com/leapstack-labs/leaplint/internal/manifest"
	"github.com/leapstack-labs/leaplint/internal/state"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exampleProject initializes the example project in a temp dir, makes it the
// working directory and selects JSON output.
func exampleProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	r := output.NewRendererWithTTY(io.Discard, io.Discard, false, output.ModeText)
	require.NoError(t, runInit(r, dir, "example", false))
	t.Chdir(dir)
	t.Setenv("LEAPLINT_OUTPUT", "json")
	return dir
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{"check", NewCheckCommand(), "check", []string{"fail-on", "watch", "history", "state-path", "metrics-textfile"}},
		{"fix", NewFixCommand(), "fix", []string{"unsafe", "fill-from-upstream", "force-inherit", "allow-transformed", "intents-out", "write", "history"}},
		{"graph", NewGraphCommand(), "graph [node]", []string{"upstream", "downstream"}},
		{"lineage", NewLineageCommand(), "lineage <node.column>", []string{"upstream", "downstream", "depth"}},
		{"history", NewHistoryCommand(), "history", []string{"limit", "state-path"}},
		{"doctor", NewDoctorCommand(), "doctor", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				f := tt.cmd.Flags().Lookup(flag)
				if f == nil {
					f = tt.cmd.PersistentFlags().Lookup(flag)
				}
				assert.NotNil(t, f, "flag %q should exist", flag)
			}
		})
	}
}

func TestCheckCommand(t *testing.T) {
	dir := exampleProject(t)

	out, err := testutil.ExecuteCommand(t, NewCheckCommand())
	require.NoError(t, err)

	var got output.CheckOutput
	testutil.DecodeJSON(t, out, &got)
	assert.Equal(t, filepath.Join(dir, "manifest.yaml"), got.Manifest)
	assert.Equal(t, 5, got.Nodes)
	assert.False(t, got.Failed)
	assert.NotEmpty(t, got.Findings)
	assert.Equal(t, len(got.Findings), got.Summary.Total)
	assert.NotEmpty(t, got.RunID, "the example records history")

	for _, f := range []string{".leaplint/history.db", ".leaplint/metrics.prom"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected %s", f)
	}
}

func TestCheckCommand_FailOn(t *testing.T) {
	exampleProject(t)

	out, err := testutil.ExecuteCommand(t, NewCheckCommand(), "--fail-on", "warning")
	require.ErrorIs(t, err, ErrFailed)

	var got output.CheckOutput
	testutil.DecodeJSON(t, out, &got)
	assert.True(t, got.Failed)
	assert.Positive(t, got.Summary.Warnings)
}

func TestCheckCommand_InvalidGraph(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LEAPLINT_OUTPUT", "json")
	require.NoError(t, os.WriteFile("manifest.yaml", []byte(`version: 1
nodes:
  - name: a
    kind: model
    depends_on: [b]
  - name: b
    kind: model
    depends_on: [a]
`), 0600))

	out, err := testutil.ExecuteCommand(t, NewCheckCommand())
	require.ErrorIs(t, err, ErrFailed)

	var got output.CheckOutput
	testutil.DecodeJSON(t, out, &got)
	assert.True(t, got.Failed)
	require.NotEmpty(t, got.Findings)
	assert.Positive(t, got.Summary.Errors)
}

func TestCheckCommand_MissingManifest(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := testutil.ExecuteCommand(t, NewCheckCommand())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFailed)
}

func TestCheckCommand_Markdown(t *testing.T) {
	exampleProject(t)
	t.Setenv("LEAPLINT_OUTPUT", "markdown")

	out, err := testutil.ExecuteCommand(t, NewCheckCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "| Severity |")
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
}

func TestFixCommand(t *testing.T) {
	dir := exampleProject(t)

	// stg_orders.customer_id is unused; its removal is skipped in safe mode
	out, err := testutil.ExecuteCommand(t, NewFixCommand(), "--intents-out", "intents.yaml")
	require.ErrorIs(t, err, ErrFailed)

	var got struct {
		Digest  string               `json:"digest"`
		Mode    string               `json:"mode"`
		Counts  map[string]int       `json:"counts"`
		Intents []manifest.IntentDoc `json:"intents"`
		Written []string             `json:"written"`
	}
	testutil.DecodeJSON(t, out, &got)
	assert.Equal(t, "safe", got.Mode)
	assert.Len(t, got.Digest, 64)
	require.NotEmpty(t, got.Intents)
	assert.Equal(t, []string{"intents.yaml"}, got.Written)
	assert.Zero(t, got.Counts["remove_column"])

	_, err = os.Stat(filepath.Join(dir, "intents.yaml"))
	require.NoError(t, err)

	// the plan is deterministic
	again, err := testutil.ExecuteCommand(t, NewFixCommand())
	require.ErrorIs(t, err, ErrFailed)
	var second struct {
		Digest string `json:"digest"`
	}
	testutil.DecodeJSON(t, again, &second)
	assert.Equal(t, got.Digest, second.Digest)
}

func TestFixCommand_Write(t *testing.T) {
	dir := exampleProject(t)
	path := filepath.Join(dir, "manifest.yaml")

	_, err := testutil.ExecuteCommand(t, NewFixCommand(), "--write")
	require.ErrorIs(t, err, ErrFailed)

	in, err := manifest.Load(path)
	require.NoError(t, err)
	g, err := graph.Build(in)
	require.NoError(t, err)

	text, ok := g.EffectiveDescription("stg_orders", "order_id")
	assert.True(t, ok)
	assert.Equal(t, "Unique order identifier", text)
}

func TestFixCommand_Unsafe(t *testing.T) {
	exampleProject(t)

	out, err := testutil.ExecuteCommand(t, NewFixCommand(), "--unsafe")
	require.NoError(t, err)

	var got output.FixOutput
	testutil.DecodeJSON(t, out, &got)
	assert.Equal(t, "unsafe", got.Mode)
	assert.False(t, got.Failed)
	// stg_orders.customer_id and stg_orders.status feed nothing downstream
	assert.Equal(t, 2, got.Counts["remove_column"])
	assert.Empty(t, got.Residual)
}

func TestGraphCommand(t *testing.T) {
	exampleProject(t)

	out, err := testutil.ExecuteCommand(t, NewGraphCommand())
	require.NoError(t, err)

	var got output.GraphOutput
	testutil.DecodeJSON(t, out, &got)
	assert.Equal(t, 5, got.TotalNodes)
	assert.Equal(t, 4, got.TotalEdges)
	require.Len(t, got.Components, 1)
	assert.Equal(t, "customers", got.Components[0][len(got.Components[0])-1])
}

func TestGraphCommand_Upstream(t *testing.T) {
	exampleProject(t)

	out, err := testutil.ExecuteCommand(t, NewGraphCommand(), "stg_orders", "--upstream")
	require.NoError(t, err)

	var got output.GraphOutput
	testutil.DecodeJSON(t, out, &got)
	names := make([]string, 0, len(got.Nodes))
	for _, n := range got.Nodes {
		names = append(names, n.Name)
	}
	assert.ElementsMatch(t, []string{"raw_orders", "stg_orders"}, names)
}

func TestLineageCommand(t *testing.T) {
	exampleProject(t)

	out, err := testutil.ExecuteCommand(t, NewLineageCommand(), "stg_orders.order_id")
	require.NoError(t, err)

	var got LineageOutput
	testutil.DecodeJSON(t, out, &got)
	assert.Equal(t, "stg_orders.order_id", got.Target)
	require.Len(t, got.Upstream, 1)
	assert.Equal(t, ColumnHop{Node: "raw_orders", Column: "id", Relation: "renamed", Depth: 1, Description: "Unique order identifier"}, got.Upstream[0])
	require.Len(t, got.Downstream, 1)
	assert.Equal(t, "customers", got.Downstream[0].Node)
	assert.Equal(t, "number_of_orders", got.Downstream[0].Column)
}

func TestLineageCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{"no column", "stg_orders"},
		{"unknown node", "nope.id"},
		{"unknown column", "stg_orders.nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exampleProject(t)
			_, err := testutil.ExecuteCommand(t, NewLineageCommand(), tt.arg)
			assert.Error(t, err)
		})
	}
}

func TestHistoryCommand(t *testing.T) {
	exampleProject(t)

	_, err := testutil.ExecuteCommand(t, NewCheckCommand())
	require.NoError(t, err)
	_, err = testutil.ExecuteCommand(t, NewCheckCommand())
	require.NoError(t, err)

	out, err := testutil.ExecuteCommand(t, NewHistoryCommand())
	require.NoError(t, err)
	var list struct {
		Runs []state.Run `json:"runs"`
	}
	testutil.DecodeJSON(t, out, &list)
	require.Len(t, list.Runs, 2)
	assert.Equal(t, state.RunStatusPassed, list.Runs[0].Status)

	out, err = testutil.ExecuteCommand(t, NewHistoryCommand(), "show", list.Runs[0].ID[:8])
	require.NoError(t, err)
	var show struct {
		Run      state.Run `json:"run"`
		Findings []any     `json:"findings"`
	}
	testutil.DecodeJSON(t, out, &show)
	assert.Equal(t, list.Runs[0].ID, show.Run.ID)
	assert.Len(t, show.Findings, list.Runs[0].Findings)

	out, err = testutil.ExecuteCommand(t, NewHistoryCommand(), "compare")
	require.NoError(t, err)
	var cmp state.Comparison
	testutil.DecodeJSON(t, out, &cmp)
	assert.Empty(t, cmp.New)
	assert.Empty(t, cmp.Resolved)
	assert.Equal(t, list.Runs[0].Findings, cmp.Unchanged)

	out, err = testutil.ExecuteCommand(t, NewHistoryCommand(), "prune", "--keep", "1")
	require.NoError(t, err)
	var pruned map[string]int64
	testutil.DecodeJSON(t, out, &pruned)
	assert.Equal(t, int64(1), pruned["deleted"])
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("manifest.yaml", []byte("version: 1\n"), 0600))

	_, err := testutil.ExecuteCommand(t, NewHistoryCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--history")
}

func TestDoctorCommand(t *testing.T) {
	exampleProject(t)

	out, err := testutil.ExecuteCommand(t, NewDoctorCommand())
	require.NoError(t, err)

	var got DoctorOutput
	testutil.DecodeJSON(t, out, &got)
	assert.Equal(t, 5, got.Summary.Nodes)
	assert.NotEmpty(t, got.HealthChecks)
	assert.Positive(t, got.IssueCount)
	assert.Less(t, got.Score, 100)
	assert.NotEmpty(t, got.Recommendations)
}
