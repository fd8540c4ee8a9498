package fix

import (
	"fmt"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
)

// ApplyToInput applies intents to a copy of in, the way the external writer
// would apply them to project files. The input itself is not modified.
//
// Removing a column or node also removes lineage links, edges and docs
// references that pointed at it, so the result still builds.
func ApplyToInput(in graph.Input, intents []Intent) (graph.Input, error) {
	out := copyInput(in)

	nodeIdx := make(map[string]int, len(out.Nodes))
	for i := range out.Nodes {
		nodeIdx[out.Nodes[i].Name] = i
	}
	blockIdx := make(map[string]int, len(out.DocsBlocks))
	for i := range out.DocsBlocks {
		blockIdx[out.DocsBlocks[i].Name] = i
	}

	removedNodes := make(map[string]bool)
	removedCols := make(map[core.ColumnRef]bool)

	for _, it := range intents {
		e := it.Edit
		if e.Kind == core.EditSetDocsBlock {
			i, ok := blockIdx[e.DocsBlock]
			if !ok {
				return graph.Input{}, fmt.Errorf("apply %s: unknown docs block %q", e.Kind, e.DocsBlock)
			}
			out.DocsBlocks[i].Text = e.Text
			continue
		}

		i, ok := nodeIdx[e.Target.Node]
		if !ok || removedNodes[e.Target.Node] {
			return graph.Input{}, fmt.Errorf("apply %s: unknown node %q", e.Kind, e.Target.Node)
		}
		n := &out.Nodes[i]
		if e.Kind == core.EditRemoveNode {
			removedNodes[n.Name] = true
			continue
		}

		ci := n.ColumnIndex(e.Target.Column)
		if ci < 0 {
			return graph.Input{}, fmt.Errorf("apply %s: unknown column %q", e.Kind, e.Target.String())
		}
		switch e.Kind {
		case core.EditSetDescription:
			// a literal description replaces any docs reference
			n.Columns[ci].Description = e.Text
			n.Columns[ci].DocsRef = ""
		case core.EditSetDocsRef:
			n.Columns[ci].DocsRef = e.DocsRef
			n.Columns[ci].Description = ""
		case core.EditRemoveColumn:
			removedCols[e.Target] = true
			n.Columns = append(n.Columns[:ci], n.Columns[ci+1:]...)
		default:
			return graph.Input{}, fmt.Errorf("apply: unknown edit kind %q", e.Kind)
		}
	}

	if len(removedNodes) > 0 || len(removedCols) > 0 {
		out = prune(out, removedNodes, removedCols)
	}
	return out, nil
}

func prune(in graph.Input, nodes map[string]bool, cols map[core.ColumnRef]bool) graph.Input {
	kept := in.Nodes[:0]
	for _, n := range in.Nodes {
		if nodes[n.Name] {
			continue
		}
		for ci := range n.Columns {
			links := n.Columns[ci].Lineage[:0]
			for _, l := range n.Columns[ci].Lineage {
				if nodes[l.Node] || cols[core.ColumnRef{Node: l.Node, Column: l.Column}] {
					continue
				}
				links = append(links, l)
			}
			n.Columns[ci].Lineage = links
		}
		kept = append(kept, n)
	}
	in.Nodes = kept

	edges := in.Edges[:0]
	for _, e := range in.Edges {
		if nodes[e.Child] || nodes[e.Parent] {
			continue
		}
		edges = append(edges, e)
	}
	in.Edges = edges
	return in
}

func copyInput(in graph.Input) graph.Input {
	out := graph.Input{
		Nodes:      make([]core.Node, len(in.Nodes)),
		Edges:      append([]core.Edge(nil), in.Edges...),
		DocsBlocks: append([]core.DocsBlock(nil), in.DocsBlocks...),
	}
	for i, n := range in.Nodes {
		n.Tags = append([]string(nil), n.Tags...)
		n.Tests = append([]core.Test(nil), n.Tests...)
		cols := make([]core.Column, len(n.Columns))
		for ci, c := range n.Columns {
			c.Lineage = append([]core.LineageLink(nil), c.Lineage...)
			cols[ci] = c
		}
		n.Columns = cols
		out.Nodes[i] = n
	}
	return out
}
