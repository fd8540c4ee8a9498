package fix_test

import (
	"testing"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project() *testutil.ProjectBuilder {
	return testutil.NewProject().
		Source("raw_orders", testutil.Col("id", "Order id"), testutil.Col("status", "")).
		Model("stg_orders", core.LayerStaging, []string{"raw_orders"},
			testutil.Col("id", "", testutil.From("raw_orders", "id")),
			testutil.DocCol("status", "order_status", testutil.From("raw_orders", "status")),
			testutil.Col("legacy_flag", ""),
		).
		Model("orders", core.LayerMarts, []string{"stg_orders"},
			testutil.Col("id", "", testutil.From("stg_orders", "id")),
			testutil.DocCol("status", "order_status", testutil.From("stg_orders", "status")),
		).
		With(func(n *core.Node) { n.PatchPath = "models/marts/orders.yml" }).
		DocsBlock("order_status", "")
}

func edit(kind core.EditKind, node, col string) core.Edit {
	return core.Edit{Kind: kind, Target: core.ColumnRef{Node: node, Column: col}}
}

func TestApply_OrdersIntents(t *testing.T) {
	g := project().Build(t)

	p := fix.NewPlan()
	// proposed out of order on purpose
	e := edit(core.EditSetDescription, "orders", "id")
	e.Text = "Order id"
	p.Propose(e)
	e = edit(core.EditSetDescription, "stg_orders", "id")
	e.Text = "Order id"
	p.Propose(e)
	e = edit(core.EditSetDocsBlock, "orders", "status")
	e.DocsBlock, e.Text = "order_status", "Order status"
	p.Propose(e)

	res := fix.NewApplier(g).Apply(p, fix.SafetySafe)
	require.Empty(t, res.Findings)
	require.Len(t, res.Intents, 3)

	got := make([]string, len(res.Intents))
	for i, in := range res.Intents {
		got[i] = string(in.Kind) + "@" + in.Target.String()
	}
	// the block edit sits at its first user, stg_orders.status
	assert.Equal(t, []string{
		"set_description@stg_orders.id",
		"set_docs_block_text@orders.status",
		"set_description@orders.id",
	}, got)
	assert.Equal(t, "models/marts/orders.yml", res.Intents[2].FilePath)
	assert.Empty(t, res.Intents[1].FilePath)
}

func TestApply_SafetyGating(t *testing.T) {
	g := project().Build(t)

	newPlan := func() *fix.Plan {
		p := fix.NewPlan()
		p.Propose(edit(core.EditRemoveColumn, "stg_orders", "legacy_flag"))
		return p
	}

	safe := fix.NewApplier(g).Apply(newPlan(), fix.SafetySafe)
	assert.Empty(t, safe.Intents)
	require.Len(t, safe.Findings, 1)
	assert.Equal(t, fix.RuleUnsafeSkipped, safe.Findings[0].RuleID)
	assert.Equal(t, core.SeverityWarning, safe.Findings[0].Severity)
	require.NotNil(t, safe.Findings[0].Proposed)
	assert.True(t, safe.HasUnresolved())

	unsafe := fix.NewApplier(g).Apply(newPlan(), fix.SafetyUnsafe)
	assert.Empty(t, unsafe.Findings)
	require.Len(t, unsafe.Intents, 1)
	assert.Equal(t, core.EditRemoveColumn, unsafe.Intents[0].Kind)
}

func TestApply_StructuralEditOverlapsDocumentation(t *testing.T) {
	g := project().Build(t)

	newPlan := func() *fix.Plan {
		p := fix.NewPlan()
		e := edit(core.EditSetDescription, "stg_orders", "legacy_flag")
		e.Text = "Legacy flag"
		p.Propose(e)
		p.Propose(edit(core.EditRemoveColumn, "stg_orders", "legacy_flag"))
		return p
	}

	t.Run("safe keeps the documentation edit", func(t *testing.T) {
		res := fix.NewApplier(g).Apply(newPlan(), fix.SafetySafe)
		require.Len(t, res.Intents, 1)
		assert.Equal(t, core.EditSetDescription, res.Intents[0].Kind)
		assert.Equal(t, []string{"FX02@stg_orders.legacy_flag"}, testutil.Targets(res.Findings))
	})

	t.Run("unsafe reports both as a conflict", func(t *testing.T) {
		res := fix.NewApplier(g).Apply(newPlan(), fix.SafetyUnsafe)
		assert.Empty(t, res.Intents)
		require.Equal(t, []string{"FX01@stg_orders.legacy_flag"}, testutil.Targets(res.Findings))
		assert.Contains(t, res.Findings[0].Message, "remove_column")
	})

	t.Run("unsafe node removal overlaps its columns", func(t *testing.T) {
		p := fix.NewPlan()
		e := edit(core.EditSetDescription, "stg_orders", "legacy_flag")
		e.Text = "Legacy flag"
		p.Propose(e)
		p.Propose(core.Edit{Kind: core.EditRemoveNode, Target: core.ColumnRef{Node: "stg_orders"}})

		res := fix.NewApplier(g).Apply(p, fix.SafetyUnsafe)
		assert.Empty(t, res.Intents)
		assert.Equal(t, []string{"FX01@stg_orders"}, testutil.Targets(res.Findings))
	})
}

func TestApply_DocsBlockDeduplication(t *testing.T) {
	g := project().Build(t)

	blockEdit := func(node, text string) core.Edit {
		e := edit(core.EditSetDocsBlock, node, "status")
		e.DocsBlock, e.Text = "order_status", text
		return e
	}

	t.Run("agreeing", func(t *testing.T) {
		p := fix.NewPlan()
		p.Propose(blockEdit("stg_orders", "Order status"))
		p.Propose(blockEdit("orders", "Order status"))

		res := fix.NewApplier(g).Apply(p, fix.SafetySafe)
		assert.Empty(t, res.Findings)
		require.Len(t, res.Intents, 1)
		assert.Equal(t, "order_status", res.Intents[0].DocsBlock)
	})

	t.Run("disagreeing", func(t *testing.T) {
		p := fix.NewPlan()
		p.Propose(blockEdit("stg_orders", "Order status"))
		p.Propose(blockEdit("orders", "Status of the order"))

		res := fix.NewApplier(g).Apply(p, fix.SafetySafe)
		assert.Empty(t, res.Intents)
		require.Len(t, res.Findings, 1)
		assert.Equal(t, fix.RuleConflict, res.Findings[0].RuleID)
		assert.Contains(t, res.Findings[0].Message, "docs block order_status")
	})
}

func TestApply_ConflictsAndInvalidEdits(t *testing.T) {
	g := project().Build(t)

	p := fix.NewPlan()
	p.AddConflict(fix.Conflict{
		Target: core.ColumnRef{Node: "orders", Column: "id"},
		Candidates: []fix.Candidate{
			{Source: core.ColumnRef{Node: "stg_orders", Column: "id"}, Text: "a"},
			{Source: core.ColumnRef{Node: "raw_orders", Column: "id"}, Text: "b"},
		},
	})
	p.Propose(edit(core.EditSetDescription, "missing", "id"))

	res := fix.NewApplier(g).Apply(p, fix.SafetyUnsafe)
	assert.Empty(t, res.Intents)
	assert.Equal(t, []string{"FX03@missing.id", "FX01@orders.id"}, testutil.Targets(res.Findings))
	assert.Equal(t, []string{"raw_orders", "stg_orders"}, res.Findings[1].Related)
}

func TestApply_DropsNoops(t *testing.T) {
	g := project().Build(t)

	p := fix.NewPlan()
	e := edit(core.EditSetDescription, "raw_orders", "id")
	e.Text = "Order id"
	p.Propose(e)
	e = edit(core.EditSetDocsRef, "orders", "status")
	e.DocsRef = "order_status"
	p.Propose(e)

	res := fix.NewApplier(g).Apply(p, fix.SafetySafe)
	assert.Empty(t, res.Intents)
	assert.Empty(t, res.Findings)
}

func TestResult_Digest(t *testing.T) {
	g := project().Build(t)

	run := func() fix.Result {
		p := fix.NewPlan()
		e := edit(core.EditSetDescription, "stg_orders", "id")
		e.Text = "Order id"
		p.Propose(e)
		return fix.NewApplier(g).Apply(p, fix.SafetySafe)
	}

	a, b := run(), run()
	assert.Len(t, a.Digest(), 64)
	assert.Equal(t, a.Digest(), b.Digest())
	assert.NotEqual(t, a.Digest(), fix.Result{}.Digest())
	assert.Equal(t, 1, a.Counts()[core.EditSetDescription])
}

func TestApplyToInput(t *testing.T) {
	in := project().Input()

	desc := edit(core.EditSetDescription, "stg_orders", "id")
	desc.Text = "Order id"
	block := edit(core.EditSetDocsBlock, "stg_orders", "status")
	block.DocsBlock, block.Text = "order_status", "Order status"

	out, err := fix.ApplyToInput(in, []fix.Intent{
		{Edit: desc},
		{Edit: block},
		{Edit: edit(core.EditRemoveColumn, "stg_orders", "legacy_flag")},
	})
	require.NoError(t, err)

	g, err := graph.Build(out)
	require.NoError(t, err)

	text, ok := g.EffectiveDescription("stg_orders", "id")
	assert.True(t, ok)
	assert.Equal(t, "Order id", text)

	text, _ = g.EffectiveDescription("orders", "status")
	assert.Equal(t, "Order status", text)

	n, _ := g.Node("stg_orders")
	assert.Equal(t, -1, n.ColumnIndex("legacy_flag"))

	// the original input is untouched
	assert.Empty(t, in.Nodes[1].Columns[0].Description)
	assert.Len(t, in.Nodes[1].Columns, 3)
}

func TestApplyToInput_RemoveNodePrunesReferences(t *testing.T) {
	in := project().Input()

	out, err := fix.ApplyToInput(in, []fix.Intent{{Edit: edit(core.EditRemoveNode, "stg_orders", "")}})
	require.NoError(t, err)

	g, err := graph.Build(out)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Empty(t, g.UpstreamColumns("orders", "id"))
	assert.Empty(t, g.ParentsOf("orders"))
}

func TestApplyToInput_UnknownTarget(t *testing.T) {
	_, err := fix.ApplyToInput(project().Input(), []fix.Intent{{Edit: edit(core.EditSetDescription, "nope", "id")}})
	assert.Error(t, err)
}
