package propagate_test

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/leapstack-labs/leaplint/pkg/propagate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill() propagate.Policy {
	p := propagate.DefaultPolicy()
	p.FillFromUpstream = true
	return p
}

func plan(t *testing.T, g *graph.Graph, policy propagate.Policy) *fix.Plan {
	t.Helper()
	p, err := propagate.NewPlanner(g, policy, propagate.WithLogger(testutil.NewTestLogger(t))).Plan(context.Background())
	require.NoError(t, err)
	return p
}

// summary renders edits as kind@target=value.
func summary(p *fix.Plan) []string {
	var out []string
	for _, e := range p.Edits() {
		v := e.Text
		if e.Kind == core.EditSetDocsRef {
			v = e.DocsRef
		}
		out = append(out, string(e.Kind)+"@"+e.Target.String()+"="+v)
	}
	return out
}

// chainProject is raw -> stg -> int -> mart with only the source documented.
func chainProject() *testutil.ProjectBuilder {
	return testutil.NewProject().
		Source("raw", testutil.Col("id", "Primary key"), testutil.Col("amount", "Amount in cents")).
		Model("stg", core.LayerStaging, []string{"raw"},
			testutil.Col("id", "", testutil.From("raw", "id")),
			testutil.Col("amount_cents", "", testutil.Renamed("raw", "amount")),
		).
		Model("int_orders", core.LayerIntermediate, []string{"stg"},
			testutil.Col("id", "", testutil.From("stg", "id")),
			testutil.Col("amount", "", testutil.Transformed("stg", "amount_cents")),
		).
		Model("mart", core.LayerMarts, []string{"int_orders"},
			testutil.Col("id", "", testutil.From("int_orders", "id")),
		)
}

func TestPlan_FillDisabledByDefault(t *testing.T) {
	g := chainProject().Build(t)

	p, err := propagate.Plan(context.Background(), g, propagate.DefaultPolicy())
	require.NoError(t, err)
	assert.Zero(t, p.Len())
	assert.Empty(t, p.Conflicts())
}

func TestPlan_Transitive(t *testing.T) {
	g := chainProject().Build(t)

	p := plan(t, g, fill())
	assert.Equal(t, []string{
		"set_description@stg.id=Primary key",
		"set_description@stg.amount_cents=Amount in cents",
		"set_description@int_orders.id=Primary key",
		"set_description@mart.id=Primary key",
	}, summary(p))

	e, ok := p.Edit(core.ColumnRef{Node: "mart", Column: "id"})
	require.True(t, ok)
	assert.Equal(t, &core.ColumnRef{Node: "int_orders", Column: "id"}, e.Provenance)
}

func TestPlan_AllowTransformedSource(t *testing.T) {
	g := chainProject().Build(t)

	policy := fill()
	policy.AllowTransformedSource = true

	_, ok := plan(t, g, policy).Edit(core.ColumnRef{Node: "int_orders", Column: "amount"})
	assert.True(t, ok)
}

func TestPlan_PrefersDocsBlocks(t *testing.T) {
	b := testutil.NewProject().
		Source("raw", testutil.DocCol("status", "status_doc")).
		Model("stg", core.LayerStaging, []string{"raw"},
			testutil.Col("status", "", testutil.From("raw", "status")),
		).
		Model("mart", core.LayerMarts, []string{"stg"},
			testutil.Col("status", "", testutil.From("stg", "status")),
		).
		DocsBlock("status_doc", "Order status")

	g := b.Build(t)
	assert.Equal(t, []string{
		"set_docs_ref@stg.status=status_doc",
		"set_docs_ref@mart.status=status_doc",
	}, summary(plan(t, g, fill())))

	literal := fill()
	literal.PropagateDocsBlocks = false
	assert.Equal(t, []string{
		"set_description@stg.status=Order status",
		"set_description@mart.status=Order status",
	}, summary(plan(t, g, literal)))
}

func TestPlan_ConflictIsNotGuessed(t *testing.T) {
	g := testutil.NewProject().
		Source("a", testutil.Col("id", "Customer id")).
		Source("b", testutil.Col("id", "Account id")).
		Model("joined", core.LayerMarts, []string{"a", "b"},
			testutil.Col("id", "", testutil.From("a", "id"), testutil.From("b", "id")),
		).
		Model("downstream", core.LayerMarts, []string{"joined"},
			testutil.Col("id", "", testutil.From("joined", "id")),
		).
		Build(t)

	p := plan(t, g, fill())
	assert.Zero(t, p.Len(), "neither the conflicted column nor its children are edited")

	require.Len(t, p.Conflicts(), 1)
	c := p.Conflicts()[0]
	assert.Equal(t, core.ColumnRef{Node: "joined", Column: "id"}, c.Target)
	assert.Equal(t, []string{"a", "b"}, c.Sources())

	res := fix.NewApplier(g).Apply(p, fix.SafetySafe)
	assert.Equal(t, []string{"FX01@joined.id"}, testutil.Targets(res.Findings))
}

func TestPlan_AgreeingCandidates(t *testing.T) {
	g := testutil.NewProject().
		Source("a", testutil.Col("id", "Customer id")).
		Source("b", testutil.Col("id", " Customer id ")).
		Model("joined", core.LayerMarts, []string{"a", "b"},
			testutil.Col("id", "", testutil.From("a", "id"), testutil.From("b", "id")),
		).
		Build(t)

	p := plan(t, g, fill())
	assert.Equal(t, []string{"set_description@joined.id=Customer id"}, summary(p))
	assert.Empty(t, p.Conflicts())
}

func TestPlan_DistinctDocsBlocksConflict(t *testing.T) {
	g := testutil.NewProject().
		Source("a", testutil.DocCol("id", "doc_a")).
		Source("b", testutil.DocCol("id", "doc_b")).
		Model("joined", core.LayerMarts, []string{"a", "b"},
			testutil.Col("id", "", testutil.From("a", "id"), testutil.From("b", "id")),
		).
		DocsBlock("doc_a", "Identifier").
		DocsBlock("doc_b", "Identifier").
		Build(t)

	p := plan(t, g, fill())
	assert.Zero(t, p.Len())
	assert.Len(t, p.Conflicts(), 1)
}

func TestPlan_EmptyDocsBlock(t *testing.T) {
	g := testutil.NewProject().
		Source("raw", testutil.Col("status", "Order status")).
		Model("stg", core.LayerStaging, []string{"raw"},
			testutil.DocCol("status", "status_doc", testutil.From("raw", "status")),
		).
		Model("mart", core.LayerMarts, []string{"stg"},
			testutil.DocCol("status", "status_doc", testutil.From("stg", "status")),
		).
		DocsBlock("status_doc", "  ").
		Build(t)

	p := plan(t, g, fill())
	edits := p.Edits()
	require.Len(t, edits, 1, "the block is filled once and mart already references it")
	assert.Equal(t, core.EditSetDocsBlock, edits[0].Kind)
	assert.Equal(t, "status_doc", edits[0].DocsBlock)
	assert.Equal(t, "Order status", edits[0].Text)
}

func TestPlan_EmptyDocsBlockConflict(t *testing.T) {
	g := testutil.NewProject().
		Source("a", testutil.Col("status", "Order status")).
		Source("b", testutil.Col("status", "Payment status")).
		Model("x", core.LayerStaging, []string{"a"},
			testutil.DocCol("status", "status_doc", testutil.From("a", "status")),
		).
		Model("y", core.LayerStaging, []string{"b"},
			testutil.DocCol("status", "status_doc", testutil.From("b", "status")),
		).
		DocsBlock("status_doc", "").
		Build(t)

	p := plan(t, g, fill())
	assert.Zero(t, p.Len())
	require.Len(t, p.Conflicts(), 1)
	assert.Equal(t, "status_doc", p.Conflicts()[0].DocsBlock)
	assert.Equal(t, []string{"a", "b"}, p.Conflicts()[0].Sources())
}

func TestPlan_ForceInherit(t *testing.T) {
	b := testutil.NewProject().
		Source("raw", testutil.Col("id", "Primary key"), testutil.Col("note", "")).
		Model("stg", core.LayerStaging, []string{"raw"},
			testutil.Col("id", "old text", testutil.From("raw", "id")),
			testutil.Col("note", "keep me", testutil.From("raw", "note")),
		)
	g := b.Build(t)

	assert.Zero(t, plan(t, g, fill()).Len())

	force := fill()
	force.ForceInherit = true
	// never overwritten to empty
	assert.Equal(t, []string{"set_description@stg.id=Primary key"}, summary(plan(t, g, force)))
}

func TestPlan_ForceInheritKeepsEqualDocsRef(t *testing.T) {
	g := testutil.NewProject().
		Source("raw", testutil.Col("id", "Primary key")).
		Model("stg", core.LayerStaging, []string{"raw"},
			testutil.DocCol("id", "pk", testutil.From("raw", "id")),
		).
		DocsBlock("pk", "Primary key").
		Build(t)

	force := fill()
	force.ForceInherit = true
	assert.Zero(t, plan(t, g, force).Len())
}

func TestPlan_LineageOnlyChain(t *testing.T) {
	// Reverse name order and no reference edges: lineage alone orders the plan.
	in := testutil.NewProject().
		Model("z_src", core.LayerOther, nil, testutil.Col("id", "x")).
		Model("m_mid", core.LayerOther, nil, testutil.Col("id", "", testutil.From("z_src", "id"))).
		Model("a_leaf", core.LayerOther, nil, testutil.Col("id", "", testutil.From("m_mid", "id"))).
		Input()

	g, err := graph.Build(in)
	require.NoError(t, err)

	first := plan(t, g, fill())
	assert.Equal(t, []string{
		"set_description@m_mid.id=x",
		"set_description@a_leaf.id=x",
	}, summary(first))

	res := fix.NewApplier(g).Apply(first, fix.SafetySafe)
	require.Empty(t, res.Findings)
	applied, err := fix.ApplyToInput(in, res.Intents)
	require.NoError(t, err)
	g2, err := graph.Build(applied)
	require.NoError(t, err)
	assert.Zero(t, plan(t, g2, fill()).Len())
}

func TestPlan_Idempotent(t *testing.T) {
	in := chainProject().
		Source("blocks_src", testutil.DocCol("status", "status_doc")).
		Model("blocks_stg", core.LayerStaging, []string{"blocks_src"},
			testutil.Col("status", "", testutil.From("blocks_src", "status")),
		).
		DocsBlock("status_doc", "Status").
		Input()

	g, err := graph.Build(in)
	require.NoError(t, err)

	first := plan(t, g, fill())
	require.NotZero(t, first.Len())

	res := fix.NewApplier(g).Apply(first, fix.SafetySafe)
	require.Empty(t, res.Findings)

	applied, err := fix.ApplyToInput(in, res.Intents)
	require.NoError(t, err)
	g2, err := graph.Build(applied)
	require.NoError(t, err)

	second := plan(t, g2, fill())
	assert.Zero(t, second.Len())
	assert.Empty(t, second.Conflicts())
}

func TestPlan_Deterministic(t *testing.T) {
	b := chainProject()
	// independent components are planned concurrently
	for _, name := range []string{"x1", "x2", "x3", "x4"} {
		b.Source(name+"_src", testutil.Col("id", name+" id")).
			Model(name, core.LayerStaging, []string{name + "_src"},
				testutil.Col("id", "", testutil.From(name+"_src", "id")))
	}
	g := b.Build(t)

	policy := fill()
	want := fix.NewApplier(g).Apply(plan(t, g, policy), fix.SafetySafe).Digest()
	for i := 0; i < 10; i++ {
		p, err := propagate.NewPlanner(g, policy, propagate.WithWorkers(4)).Plan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, fix.NewApplier(g).Apply(p, fix.SafetySafe).Digest())
	}
}

func TestPlan_CancelledContext(t *testing.T) {
	g := chainProject().Build(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := propagate.Plan(ctx, g, fill())
	assert.ErrorIs(t, err, context.Canceled)
}
