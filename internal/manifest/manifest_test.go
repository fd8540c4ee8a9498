package manifest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	in, err := Load("testdata/jaffle_shop.yaml")
	require.NoError(t, err)

	g, err := graph.Build(in)
	require.NoError(t, err)

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, []string{"stg_customers", "stg_orders"}, g.ParentsOf("customers"))

	kind, ok := g.EdgeKind("stg_orders", "raw_orders")
	require.True(t, ok)
	assert.Equal(t, core.RefSource, kind)

	up := g.UpstreamColumns("stg_orders", "order_id")
	require.Len(t, up, 1)
	assert.Equal(t, core.RelationRenamed, up[0].Relation)

	// inline lineage and top-level lineage both land on the column
	assert.Len(t, g.UpstreamColumns("stg_customers", "customer_id"), 1)
	assert.Len(t, g.UpstreamColumns("stg_customers", "first_name"), 1)

	n, _ := g.Node("stg_customers")
	assert.Equal(t, core.LayerStaging, n.Layer, "layer inferred from the path")
	require.Len(t, n.Tests, 2)
	assert.Equal(t, core.TestUnique, n.Tests[0].Kind)

	src, _ := g.Node("raw_customers")
	assert.True(t, src.Freshness.IsSet())

	pub, _ := g.Node("customers")
	assert.True(t, pub.IsPublic())
}

func TestDecode_JSON(t *testing.T) {
	doc := `{
  "nodes": [
    {"name": "raw", "kind": "source", "columns": [{"name": "id", "description": "Key"}]},
    {"name": "stg_raw", "kind": "model", "columns": [{"name": "id"}]}
  ],
  "edges": [{"child": "stg_raw", "parent": "raw"}],
  "lineage": [{"node": "stg_raw", "column": "id", "upstream_node": "raw", "upstream_column": "id"}]
}`
	in, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	require.Len(t, in.Edges, 1)
	assert.Equal(t, core.RefSource, in.Edges[0].Kind)
	assert.Equal(t, core.RelationPassthrough, in.Nodes[1].Columns[0].Lineage[0].Relation)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "", "empty document"},
		{"unknown field", "nodes: []\nmodels: []\n", "models"},
		{"unknown kind", "nodes: [{name: a, kind: macro}]\n", `unknown kind "macro"`},
		{"unknown relation", "nodes: [{name: a, kind: model, columns: [{name: x, lineage: [{upstream_node: b, upstream_column: y, relation: joined}]}]}]\n", `unknown relation "joined"`},
		{"lineage target", "nodes: [{name: a, kind: model}]\nlineage: [{node: a, column: x, upstream_node: b, upstream_column: y}]\n", "unknown column a.x"},
		{"edge kind", "nodes: [{name: a, kind: model}, {name: b, kind: model}]\nedges: [{child: a, parent: b, kind: exposure}]\n", "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidManifest)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecode_DanglingReferencesReachBuild(t *testing.T) {
	in, err := Decode(strings.NewReader("nodes: [{name: a, kind: model, depends_on: [missing]}]\n"))
	require.NoError(t, err)

	_, err = graph.Build(in)
	assert.ErrorIs(t, err, graph.ErrDanglingReference)
}

func TestFromInput_RoundTrip(t *testing.T) {
	in, err := Load("testdata/jaffle_shop.yaml")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, FromInput(in)))

	again, err := Decode(&buf)
	require.NoError(t, err)

	g1, err := graph.Build(in)
	require.NoError(t, err)
	g2, err := graph.Build(again)
	require.NoError(t, err)

	assert.Equal(t, g1.TopologicalOrder(), g2.TopologicalOrder())
	for _, name := range g1.TopologicalOrder() {
		assert.Equal(t, g1.ParentsOf(name), g2.ParentsOf(name), name)
		n1, _ := g1.Node(name)
		n2, _ := g2.Node(name)
		assert.Equal(t, n1.Columns, n2.Columns, name)
	}
}

func TestNewIntentDocument(t *testing.T) {
	res := fix.Result{
		Intents: []fix.Intent{{
			Edit: core.Edit{
				Kind:       core.EditSetDescription,
				Target:     core.ColumnRef{Node: "stg", Column: "id"},
				Text:       "Key",
				Provenance: &core.ColumnRef{Node: "raw", Column: "id"},
			},
			FilePath: "models/stg.yml",
		}},
		Findings: []core.Finding{{RuleID: fix.RuleConflict, Severity: core.SeverityWarning, Node: "x", Message: "conflict"}},
	}

	doc := NewIntentDocument(res, fix.SafetySafe)
	assert.Equal(t, res.Digest(), doc.Digest)
	require.Len(t, doc.Intents, 1)
	assert.Equal(t, "raw.id", doc.Intents[0].Provenance)
	require.Len(t, doc.Residual, 1)
	assert.Equal(t, "warning", doc.Residual[0].Severity)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, doc))
	assert.Contains(t, buf.String(), `"kind": "set_description"`)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("out/intents.JSON"))
	assert.Equal(t, FormatYAML, FormatForPath("intents.yml"))
	assert.Equal(t, FormatYAML, FormatForPath("intents"))
}
