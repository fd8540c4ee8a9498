package lint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph(t *testing.T) *graph.Graph {
	return testutil.NewProject().
		Source("raw_orders", testutil.Col("id", "")).
		Model("stg_orders", core.LayerStaging, []string{"raw_orders"}, testutil.Col("id", "", testutil.From("raw_orders", "id"))).
		Model("orders", core.LayerMarts, []string{"stg_orders"}).
		Build(t)
}

// perNode reports one finding per node the rule applies to.
func perNode(id string, kinds ...core.NodeKind) lint.RuleDef {
	return lint.RuleDef{
		ID:       id,
		Name:     "per-node-" + id,
		Group:    "testing",
		Severity: core.SeverityWarning,
		Kinds:    kinds,
		Check: func(ctx *lint.Context) ([]core.Finding, error) {
			var out []core.Finding
			for _, n := range ctx.Nodes() {
				out = append(out, ctx.Finding(n, "%s flagged", n.Name))
			}
			return out, nil
		},
	}
}

func newRegistry(t *testing.T, rules ...lint.RuleDef) *lint.Registry {
	t.Helper()
	reg := lint.NewRegistry()
	for _, r := range rules {
		require.NoError(t, reg.Register(r))
	}
	return reg
}

func TestEngine_RunSortsAndFiltersKinds(t *testing.T) {
	reg := newRegistry(t, perNode("TS91", core.KindModel), perNode("TS90"))
	engine := lint.NewEngine(nil, lint.WithRegistry(reg), lint.WithLogger(testutil.NewTestLogger(t)))

	findings, err := engine.Run(context.Background(), testGraph(t))
	require.NoError(t, err)

	var got []string
	for _, f := range findings {
		got = append(got, f.RuleID+"@"+f.Target())
	}
	assert.Equal(t, []string{
		"TS90@orders",
		"TS91@orders",
		"TS90@raw_orders",
		"TS90@stg_orders",
		"TS91@stg_orders",
	}, got)
	assert.Equal(t, lint.BuildDocURL("TS90"), findings[0].DocumentationURL)
}

func TestEngine_ConfigByAlias(t *testing.T) {
	rule := perNode("TS90", core.KindSource)
	rule.Aliases = []string{"check-source-flagged"}
	reg := newRegistry(t, rule, perNode("TS91", core.KindSource))

	cfg := lint.NewConfig().
		SetSeverity("check-source-flagged", core.SeverityError).
		Disable("per-node-TS91")

	findings, err := lint.NewEngine(cfg, lint.WithRegistry(reg)).Run(context.Background(), testGraph(t))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "TS90", findings[0].RuleID)
	assert.Equal(t, core.SeverityError, findings[0].Severity)
}

func TestEngine_UnknownRuleConfig(t *testing.T) {
	reg := newRegistry(t, perNode("TS90"))
	cfg := lint.NewConfig().Disable("no-such-rule")

	_, err := lint.NewEngine(cfg, lint.WithRegistry(reg)).Run(context.Background(), testGraph(t))
	assert.ErrorIs(t, err, lint.ErrUnknownRule)
}

func TestEngine_RuleFailureIsolation(t *testing.T) {
	failing := lint.RuleDef{
		ID: "TS97", Name: "failing", Severity: core.SeverityInfo,
		Check: func(*lint.Context) ([]core.Finding, error) {
			return nil, errors.New("boom")
		},
	}
	panicking := lint.RuleDef{
		ID: "TS98", Name: "panicking", Severity: core.SeverityInfo,
		Check: func(*lint.Context) ([]core.Finding, error) {
			var n *core.Node
			return []core.Finding{{Node: n.Name}}, nil
		},
	}
	reg := newRegistry(t, failing, panicking, perNode("TS90", core.KindSource))

	findings, err := lint.NewEngine(nil, lint.WithRegistry(reg), lint.WithWorkers(1)).
		Run(context.Background(), testGraph(t))
	require.NoError(t, err)
	require.Len(t, findings, 3)

	byRule := make(map[string]core.Finding)
	for _, f := range findings {
		byRule[f.RuleID] = f
	}
	assert.Equal(t, core.SeverityError, byRule["TS97"].Severity)
	assert.Contains(t, byRule["TS97"].Message, "boom")
	assert.Empty(t, byRule["TS97"].Node)
	assert.Equal(t, core.SeverityError, byRule["TS98"].Severity)
	assert.Contains(t, byRule["TS98"].Message, lint.EvaluationFailureMessage)
	assert.Equal(t, "raw_orders", byRule["TS90"].Node)
}

func TestEngine_Deterministic(t *testing.T) {
	reg := newRegistry(t, perNode("TS90"), perNode("TS91"), perNode("TS92"), perNode("TS93"))
	g := testGraph(t)

	first, err := lint.NewEngine(nil, lint.WithRegistry(reg), lint.WithWorkers(4)).Run(context.Background(), g)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := lint.NewEngine(nil, lint.WithRegistry(reg), lint.WithWorkers(4)).Run(context.Background(), g)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lint.NewEngine(nil, lint.WithRegistry(lint.NewRegistry())).Run(ctx, testGraph(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_Register(t *testing.T) {
	reg := lint.NewRegistry()
	require.NoError(t, reg.Register(perNode("TS90")))

	dup := perNode("TS91")
	dup.Aliases = []string{"PER-NODE-TS90"}
	assert.Error(t, reg.Register(dup))
	assert.Error(t, reg.Register(lint.RuleDef{ID: "TS92"}))

	id, ok := reg.Resolve("Per-Node-TS90")
	assert.True(t, ok)
	assert.Equal(t, "TS90", id)
	assert.Equal(t, 1, reg.Count())
}

func TestConfig_ResolveIDWinsOverAlias(t *testing.T) {
	rule := perNode("TS90")
	rule.Aliases = []string{"legacy-name"}
	reg := newRegistry(t, rule)

	cfg := lint.NewConfig().
		SetSeverity("legacy-name", core.SeverityHint).
		SetParams("legacy-name", map[string]any{"threshold": 2, "mode": "alias"}).
		SetSeverity("TS90", core.SeverityError).
		SetParams("TS90", map[string]any{"mode": "id"})

	resolved, err := cfg.Resolve(reg)
	require.NoError(t, err)

	rc := resolved["TS90"]
	require.NotNil(t, rc.Severity)
	assert.Equal(t, core.SeverityError, *rc.Severity)
	assert.Equal(t, map[string]any{"threshold": 2, "mode": "id"}, rc.Params)
}
