package testutil

import (
	"testing"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/stretchr/testify/require"
)

// ProjectBuilder assembles a graph.Input for tests.
type ProjectBuilder struct {
	nodes  []core.Node
	edges  []core.Edge
	blocks []core.DocsBlock
}

// NewProject starts an empty project.
func NewProject() *ProjectBuilder {
	return &ProjectBuilder{}
}

// Source adds a source node.
func (b *ProjectBuilder) Source(name string, cols ...core.Column) *ProjectBuilder {
	b.nodes = append(b.nodes, core.Node{
		Name:    name,
		Kind:    core.KindSource,
		Layer:   core.LayerOther,
		Columns: cols,
	})
	return b
}

// Model adds a model in the given layer depending on parents, in order.
func (b *ProjectBuilder) Model(name string, layer core.Layer, parents []string, cols ...core.Column) *ProjectBuilder {
	return b.Node(core.Node{
		Name:         name,
		Kind:         core.KindModel,
		Layer:        layer,
		Materialized: "table",
		Columns:      cols,
	}, parents...)
}

// Node adds an arbitrary node depending on parents, in order.
// Edges to known sources get the source ref kind.
func (b *ProjectBuilder) Node(n core.Node, parents ...string) *ProjectBuilder {
	b.nodes = append(b.nodes, n)
	for i, p := range parents {
		kind := core.RefModel
		if pn := b.find(p); pn != nil && pn.Kind == core.KindSource {
			kind = core.RefSource
		}
		b.edges = append(b.edges, core.Edge{Child: n.Name, Parent: p, Kind: kind, Ordinal: i})
	}
	return b
}

// With mutates the most recently added node.
func (b *ProjectBuilder) With(fn func(n *core.Node)) *ProjectBuilder {
	fn(&b.nodes[len(b.nodes)-1])
	return b
}

// Edge adds a raw edge, for inputs the other helpers cannot express.
func (b *ProjectBuilder) Edge(child, parent string) *ProjectBuilder {
	b.edges = append(b.edges, core.Edge{Child: child, Parent: parent, Kind: core.RefModel})
	return b
}

// DocsBlock adds a shared docs block.
func (b *ProjectBuilder) DocsBlock(name, text string) *ProjectBuilder {
	b.blocks = append(b.blocks, core.DocsBlock{Name: name, Text: text})
	return b
}

// Input returns the assembled input.
func (b *ProjectBuilder) Input() graph.Input {
	return graph.Input{Nodes: b.nodes, Edges: b.edges, DocsBlocks: b.blocks}
}

// Build builds the graph, failing the test on error.
func (b *ProjectBuilder) Build(t testing.TB) *graph.Graph {
	t.Helper()
	g, err := graph.Build(b.Input())
	require.NoError(t, err)
	return g
}

func (b *ProjectBuilder) find(name string) *core.Node {
	for i := range b.nodes {
		if b.nodes[i].Name == name {
			return &b.nodes[i]
		}
	}
	return nil
}

// Col builds a column with a literal description.
func Col(name, desc string, lineage ...core.LineageLink) core.Column {
	return core.Column{Name: name, Description: desc, Lineage: lineage}
}

// DocCol builds a column that references a docs block.
func DocCol(name, docsRef string, lineage ...core.LineageLink) core.Column {
	return core.Column{Name: name, DocsRef: docsRef, Lineage: lineage}
}

// From is a passthrough lineage link.
func From(node, column string) core.LineageLink {
	return core.LineageLink{Node: node, Column: column, Relation: core.RelationPassthrough}
}

// Renamed is a renamed lineage link.
func Renamed(node, column string) core.LineageLink {
	return core.LineageLink{Node: node, Column: column, Relation: core.RelationRenamed}
}

// Transformed is a transformed lineage link.
func Transformed(node, column string) core.LineageLink {
	return core.LineageLink{Node: node, Column: column, Relation: core.RelationTransformed}
}
