package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/leapstack-labs/leaplint/internal/metrics"
	"github.com/leapstack-labs/leaplint/internal/state"
	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/leapstack-labs/leaplint/pkg/propagate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project() *testutil.ProjectBuilder {
	return testutil.NewProject().
		Source("raw_orders", testutil.Col("id", "Order key"), testutil.Col("legacy", "")).
		Model("stg_orders", core.LayerStaging, []string{"raw_orders"},
			testutil.Col("id", "", testutil.From("raw_orders", "id")),
			testutil.Col("legacy", "", testutil.From("raw_orders", "legacy")),
		)
}

// undocumented flags every model column without a description.
var undocumented = lint.RuleDef{
	ID:       "TT01",
	Name:     "undocumented",
	Group:    "documentation",
	Severity: core.SeverityWarning,
	Kinds:    []core.NodeKind{core.KindModel},
	Check: func(ctx *lint.Context) ([]core.Finding, error) {
		var out []core.Finding
		for _, n := range ctx.Nodes() {
			for _, c := range n.Columns {
				if _, ok := ctx.Graph().EffectiveDescription(n.Name, c.Name); !ok {
					out = append(out, ctx.ColumnFinding(n, c.Name, "no description"))
				}
			}
		}
		return out, nil
	},
}

// dropLegacy proposes removing every column named legacy.
var dropLegacy = lint.RuleDef{
	ID:       "TT02",
	Name:     "drop-legacy",
	Group:    "lineage",
	Severity: core.SeverityInfo,
	Unsafe:   true,
	Check: func(ctx *lint.Context) ([]core.Finding, error) {
		var out []core.Finding
		for _, n := range ctx.Nodes() {
			if _, ok := n.Column("legacy"); ok && n.Kind == core.KindModel {
				f := ctx.ColumnFinding(n, "legacy", "unused")
				f.Proposed = &core.Edit{Kind: core.EditRemoveColumn, Target: core.ColumnRef{Node: n.Name, Column: "legacy"}}
				out = append(out, f)
			}
		}
		return out, nil
	},
}

func registry(t *testing.T) *lint.Registry {
	t.Helper()
	reg := lint.NewRegistry()
	require.NoError(t, reg.Register(undocumented))
	require.NoError(t, reg.Register(dropLegacy))
	return reg
}

func openHistory(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func severity(s core.Severity) *core.Severity { return &s }

func TestRunner_Check(t *testing.T) {
	ctx := context.Background()
	history := openHistory(t)
	m := metrics.New()

	tests := []struct {
		name       string
		failOn     *core.Severity
		wantFailed bool
		wantStatus state.RunStatus
	}{
		{"fails on warnings", severity(core.SeverityWarning), true, state.RunStatusFailed},
		{"errors only", severity(core.SeverityError), false, state.RunStatusPassed},
		{"never", nil, false, state.RunStatusPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Options{Registry: registry(t), FailOn: tt.failOn},
				WithLogger(testutil.NewTestLogger(t)), WithHistory(history), WithMetrics(m))

			rep, err := r.Check(ctx, project().Input(), "manifest.yaml")
			require.NoError(t, err)

			assert.Equal(t, []string{"TT01@stg_orders.id", "TT01@stg_orders.legacy", "TT02@stg_orders.legacy"},
				testutil.Targets(rep.Findings))
			assert.Nil(t, rep.Fix)
			assert.Equal(t, tt.wantFailed, rep.Failed())

			require.NotNil(t, rep.Run)
			stored, err := history.GetRun(ctx, rep.Run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, 2, stored.Nodes)
			assert.Equal(t, 3, stored.Findings)
		})
	}
}

func TestRunner_GraphErrorBecomesFindings(t *testing.T) {
	ctx := context.Background()
	history := openHistory(t)

	in := testutil.NewProject().
		Model("x", core.LayerOther, []string{"y"}).
		Model("y", core.LayerOther, []string{"x"}).
		Input()

	r := New(Options{Registry: registry(t)}, WithHistory(history))
	rep, err := r.Check(ctx, in, "manifest.yaml")
	require.NoError(t, err)

	assert.Nil(t, rep.Graph)
	assert.ErrorIs(t, rep.GraphErr, graph.ErrCycle)
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, RuleCycle, rep.Findings[0].RuleID)
	assert.Equal(t, core.SeverityError, rep.Findings[0].Severity)
	assert.Equal(t, []string{"y"}, rep.Findings[0].Related)
	assert.True(t, rep.Failed())

	stored, err := history.GetRun(ctx, rep.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusError, stored.Status)
	assert.Contains(t, stored.Error, "x -> y -> x")
}

func TestRunner_Fix(t *testing.T) {
	ctx := context.Background()
	policy := propagate.DefaultPolicy()
	policy.FillFromUpstream = true

	t.Run("safe", func(t *testing.T) {
		r := New(Options{Registry: registry(t), Policy: policy, Safety: fix.SafetySafe})
		rep, err := r.Fix(ctx, project().Input(), "manifest.yaml")
		require.NoError(t, err)
		require.NotNil(t, rep.Fix)

		require.Len(t, rep.Fix.Intents, 1)
		assert.Equal(t, core.EditSetDescription, rep.Fix.Intents[0].Kind)
		assert.Equal(t, "Order key", rep.Fix.Intents[0].Text)

		assert.Equal(t, []string{"FX02@stg_orders.legacy"}, testutil.Targets(rep.Fix.Findings))
		assert.True(t, rep.Failed(), "skipped structural edits fail a fix run")
	})

	t.Run("unsafe", func(t *testing.T) {
		r := New(Options{Registry: registry(t), Policy: policy, Safety: fix.SafetyUnsafe})
		rep, err := r.Fix(ctx, project().Input(), "manifest.yaml")
		require.NoError(t, err)

		kinds := make([]core.EditKind, 0, len(rep.Fix.Intents))
		for _, in := range rep.Fix.Intents {
			kinds = append(kinds, in.Kind)
		}
		assert.Equal(t, []core.EditKind{core.EditSetDescription, core.EditRemoveColumn}, kinds)
		assert.Empty(t, rep.Fix.Findings)
		assert.False(t, rep.Failed())
	})

	t.Run("deterministic", func(t *testing.T) {
		digests := make(map[string]bool)
		for i := 1; i <= 4; i++ {
			r := New(Options{Registry: registry(t), Policy: policy, Workers: i})
			rep, err := r.Fix(ctx, project().Input(), "manifest.yaml")
			require.NoError(t, err)
			digests[rep.Fix.Digest()] = true
		}
		assert.Len(t, digests, 1)
	})
}

func TestRunner_FixRemovalOfDocumentedColumn(t *testing.T) {
	ctx := context.Background()
	policy := propagate.DefaultPolicy()
	policy.FillFromUpstream = true
	in := testutil.NewProject().
		Source("raw_orders", testutil.Col("id", "Order key"), testutil.Col("legacy", "Legacy flag")).
		Model("stg_orders", core.LayerStaging, []string{"raw_orders"},
			testutil.Col("id", "", testutil.From("raw_orders", "id")),
			testutil.Col("legacy", "", testutil.From("raw_orders", "legacy")),
		).
		Input()

	intents := func(res *fix.Result) []string {
		out := make([]string, 0, len(res.Intents))
		for _, in := range res.Intents {
			out = append(out, string(in.Kind)+"@"+in.Target.String())
		}
		return out
	}

	t.Run("safe", func(t *testing.T) {
		r := New(Options{Registry: registry(t), Policy: policy, Safety: fix.SafetySafe})
		rep, err := r.Fix(ctx, in, "manifest.yaml")
		require.NoError(t, err)

		assert.Equal(t, []string{
			"set_description@stg_orders.id",
			"set_description@stg_orders.legacy",
		}, intents(rep.Fix))
		assert.Equal(t, []string{"FX02@stg_orders.legacy"}, testutil.Targets(rep.Fix.Findings))
	})

	t.Run("unsafe", func(t *testing.T) {
		r := New(Options{Registry: registry(t), Policy: policy, Safety: fix.SafetyUnsafe})
		rep, err := r.Fix(ctx, in, "manifest.yaml")
		require.NoError(t, err)

		assert.Equal(t, []string{"set_description@stg_orders.id"}, intents(rep.Fix))
		assert.Equal(t, []string{"FX01@stg_orders.legacy"}, testutil.Targets(rep.Fix.Findings))
		assert.True(t, rep.Failed())
	})
}

func TestRunner_UnknownRuleConfig(t *testing.T) {
	ctx := context.Background()
	history := openHistory(t)

	cfg := lint.NewConfig().Disable("no-such-rule")
	r := New(Options{Registry: registry(t), Lint: cfg}, WithHistory(history))

	_, err := r.Check(ctx, project().Input(), "manifest.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, lint.ErrUnknownRule)

	runs, err := history.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusError, runs[0].Status)
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Check(ctx, project().Input(), "manifest.yaml")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGraphFindings(t *testing.T) {
	_, err := graph.Build(testutil.NewProject().
		Model("orders", core.LayerMarts, []string{"missing"},
			testutil.Col("id", "", testutil.From("stg", "id")),
			testutil.DocCol("status", "nope")).
		Input())
	require.Error(t, err)

	findings := GraphFindings(err)
	assert.Equal(t, []string{"GR02@orders", "GR02@orders.id", "GR02@orders.status"}, testutil.Targets(findings))
	assert.Equal(t, `depends on unknown node "missing"`, findings[0].Message)

	_, err = graph.Build(testutil.NewProject().
		Model("a", core.LayerOther, nil).
		Model("a", core.LayerOther, nil).
		Input())
	findings = GraphFindings(err)
	require.Len(t, findings, 1)
	assert.Equal(t, RuleInvalidInput, findings[0].RuleID)

	assert.Nil(t, GraphFindings(fmt.Errorf("disk on fire")))
}
