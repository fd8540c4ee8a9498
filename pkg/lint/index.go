package lint

import (
	"sync"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
)

// Index holds lookups shared by every rule of a run. Entries are computed on
// first use and are safe for concurrent access.
type Index struct {
	graph *graph.Graph

	layersOnce sync.Once
	layers     map[core.Layer][]*core.Node
}

// NewIndex creates an index over g.
func NewIndex(g *graph.Graph) *Index {
	return &Index{graph: g}
}

// NodesInLayer returns models and snapshots in the given layer, sorted by name.
func (x *Index) NodesInLayer(layer core.Layer) []*core.Node {
	x.layersOnce.Do(func() {
		x.layers = make(map[core.Layer][]*core.Node)
		for _, n := range x.graph.NodesOfKind(core.KindModel, core.KindSnapshot) {
			x.layers[n.Layer] = append(x.layers[n.Layer], n)
		}
	})
	return x.layers[layer]
}

// Ancestors returns the memoized ancestors of a node.
func (x *Index) Ancestors(name string) []string {
	return x.graph.Ancestors(name)
}

// AncestorsWithin returns the memoized ancestors of a node up to depth.
func (x *Index) AncestorsWithin(name string, depth int) []string {
	return x.graph.AncestorsWithin(name, depth)
}
