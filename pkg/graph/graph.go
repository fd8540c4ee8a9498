package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leaplint/internal/dag"
	"github.com/leapstack-labs/leaplint/pkg/core"
)

// Input is everything Build needs. Column lineage travels on each column.
type Input struct {
	Nodes      []core.Node
	Edges      []core.Edge
	DocsBlocks []core.DocsBlock
}

// Graph is the immutable project graph.
// Returned nodes, slices and maps are shared and must not be modified.
type Graph struct {
	nodes  map[string]*core.Node
	names  []string // sorted
	order  []string // topological
	rank   map[string]int
	dag    *dag.Graph // reference edges
	deps   *dag.Graph // reference edges plus lineage dependencies
	blocks map[string]*core.DocsBlock

	parents    map[string][]string
	children   map[string][]string
	edgeKinds  map[edgeKey]core.RefKind
	blockUsers map[string][]core.ColumnRef
	downstream map[core.ColumnRef][]core.LineageLink

	ancestorsOnce sync.Once
	ancestors     map[string]map[string]int // node -> ancestor -> shortest depth

	componentsOnce sync.Once
	components     [][]string
}

type edgeKey struct{ child, parent string }

// Build validates the input and constructs a Graph.
//
// Duplicate names fail immediately. Dangling references are collected across
// the whole input and reported together. Cycles are checked last so the cycle
// path only ever names existing nodes.
func Build(in Input) (*Graph, error) {
	g := &Graph{
		nodes:      make(map[string]*core.Node, len(in.Nodes)),
		dag:        dag.NewGraph(),
		blocks:     make(map[string]*core.DocsBlock, len(in.DocsBlocks)),
		parents:    make(map[string][]string),
		children:   make(map[string][]string),
		edgeKinds:  make(map[edgeKey]core.RefKind),
		blockUsers: make(map[string][]core.ColumnRef),
		downstream: make(map[core.ColumnRef][]core.LineageLink),
	}

	for i := range in.Nodes {
		n := copyNode(&in.Nodes[i])
		if _, exists := g.nodes[n.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.Name)
		}
		if err := checkColumns(n); err != nil {
			return nil, err
		}
		if n.Layer == "" {
			n.Layer = InferLayer(n)
		}
		g.nodes[n.Name] = n
		g.names = append(g.names, n.Name)
		g.dag.AddNode(n.Name, n)
	}
	sort.Strings(g.names)

	for i := range in.DocsBlocks {
		b := in.DocsBlocks[i]
		if _, exists := g.blocks[b.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDocsBlock, b.Name)
		}
		g.blocks[b.Name] = &b
	}

	dangling := g.addEdges(in.Edges)
	dangling = append(dangling, g.indexColumns()...)
	if len(dangling) > 0 {
		sortDangling(dangling)
		return nil, &DanglingReferenceError{References: dangling}
	}

	for _, name := range g.names {
		if _, ok := g.edgeKinds[edgeKey{child: name, parent: name}]; ok {
			return nil, &CycleError{Path: []string{name, name}}
		}
	}

	g.deps = g.dependencies()
	order, err := g.deps.TopologicalSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &CycleError{Path: cycleErr.Path}
		}
		return nil, err
	}
	g.order = order
	g.rank = make(map[string]int, len(order))
	for i, name := range order {
		g.rank[name] = i
	}

	g.sortIndexes()
	return g, nil
}

func (g *Graph) addEdges(edges []core.Edge) []DanglingReference {
	var dangling []DanglingReference
	ordinals := make(map[edgeKey]int)

	for _, e := range edges {
		_, childOK := g.nodes[e.Child]
		_, parentOK := g.nodes[e.Parent]
		if !childOK {
			dangling = append(dangling, DanglingReference{Kind: RefEdgeChild, From: e.Parent, Node: e.Parent, Target: e.Child})
		}
		if !parentOK {
			dangling = append(dangling, DanglingReference{Kind: RefEdgeParent, From: e.Child, Node: e.Child, Target: e.Parent})
		}
		if !childOK || !parentOK {
			continue
		}

		key := edgeKey{child: e.Child, parent: e.Parent}
		if _, seen := g.edgeKinds[key]; seen {
			continue
		}
		g.edgeKinds[key] = e.Kind
		ordinals[key] = e.Ordinal
		g.parents[e.Child] = append(g.parents[e.Child], e.Parent)
		g.children[e.Parent] = append(g.children[e.Parent], e.Child)
	}

	// Parents are ordered by declaration ordinal, then name.
	for child, ps := range g.parents {
		sort.SliceStable(ps, func(i, j int) bool {
			oi, oj := ordinals[edgeKey{child, ps[i]}], ordinals[edgeKey{child, ps[j]}]
			if oi != oj {
				return oi < oj
			}
			return ps[i] < ps[j]
		})
		for _, p := range ps {
			if p == child {
				// self references are reported as a cycle by Build
				continue
			}
			_ = g.dag.AddEdge(p, child)
		}
	}
	for _, cs := range g.children {
		sort.Strings(cs)
	}

	return dangling
}

// indexColumns resolves lineage links and docs references, building the
// downstream lineage and docs-block user indexes.
func (g *Graph) indexColumns() []DanglingReference {
	var dangling []DanglingReference

	for _, name := range g.names {
		n := g.nodes[name]
		for _, col := range n.Columns {
			ref := core.ColumnRef{Node: n.Name, Column: col.Name}
			if col.DocsRef != "" {
				if _, ok := g.blocks[col.DocsRef]; ok {
					g.blockUsers[col.DocsRef] = append(g.blockUsers[col.DocsRef], ref)
				} else {
					dangling = append(dangling, DanglingReference{
						Kind: RefDocsBlock, From: ref.String(), Node: n.Name, Column: col.Name, Target: col.DocsRef,
					})
				}
			}
			for _, link := range col.Lineage {
				up := core.ColumnRef{Node: link.Node, Column: link.Column}
				if !g.hasColumn(up) {
					dangling = append(dangling, DanglingReference{
						Kind: RefLineage, From: ref.String(), Node: n.Name, Column: col.Name, Target: up.String(),
					})
					continue
				}
				g.downstream[up] = append(g.downstream[up], core.LineageLink{
					Node: n.Name, Column: col.Name, Relation: link.Relation,
				})
			}
		}
	}

	return dangling
}

// dependencies returns the ordering graph: every reference edge plus an
// upstream-to-downstream edge for each cross-node lineage link, so a column
// is always planned after the columns it inherits from.
func (g *Graph) dependencies() *dag.Graph {
	deps := dag.NewGraph()
	for _, name := range g.names {
		deps.AddNode(name, g.nodes[name])
	}
	for _, name := range g.names {
		for _, p := range g.parents[name] {
			if p != name {
				_ = deps.AddEdge(p, name)
			}
		}
		for _, col := range g.nodes[name].Columns {
			for _, link := range col.Lineage {
				if link.Node != name {
					_ = deps.AddEdge(link.Node, name)
				}
			}
		}
	}
	return deps
}

// sortIndexes orders derived indexes once the topological order is known.
func (g *Graph) sortIndexes() {
	for _, users := range g.blockUsers {
		sort.SliceStable(users, func(i, j int) bool {
			return g.columnLess(users[i], users[j])
		})
	}
	for _, links := range g.downstream {
		sort.SliceStable(links, func(i, j int) bool {
			if links[i].Node != links[j].Node {
				return links[i].Node < links[j].Node
			}
			return links[i].Column < links[j].Column
		})
	}
}

// columnLess orders columns by topological node order, then declaration order.
func (g *Graph) columnLess(a, b core.ColumnRef) bool {
	if a.Node != b.Node {
		return g.rank[a.Node] < g.rank[b.Node]
	}
	n := g.nodes[a.Node]
	return n.ColumnIndex(a.Column) < n.ColumnIndex(b.Column)
}

func (g *Graph) hasColumn(ref core.ColumnRef) bool {
	n, ok := g.nodes[ref.Node]
	if !ok {
		return false
	}
	_, ok = n.Column(ref.Column)
	return ok
}

func checkColumns(n *core.Node) error {
	seen := make(map[string]bool, len(n.Columns))
	for _, col := range n.Columns {
		if seen[col.Name] {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, n.Name, col.Name)
		}
		seen[col.Name] = true
	}
	return nil
}

func sortDangling(refs []DanglingReference) {
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Target < b.Target
	})
}

func copyNode(src *core.Node) *core.Node {
	n := *src
	n.Tags = append([]string(nil), src.Tags...)
	n.Tests = append([]core.Test(nil), src.Tests...)
	n.Columns = make([]core.Column, len(src.Columns))
	for i, col := range src.Columns {
		col.Lineage = append([]core.LineageLink(nil), col.Lineage...)
		n.Columns[i] = col
	}
	if src.Freshness != nil {
		f := *src.Freshness
		n.Freshness = &f
	}
	return &n
}

// =============================================================================
// Queries
// =============================================================================

// Node returns a node by name.
func (g *Graph) Node(name string) (*core.Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes sorted by name.
func (g *Graph) Nodes() []*core.Node {
	result := make([]*core.Node, len(g.names))
	for i, name := range g.names {
		result[i] = g.nodes[name]
	}
	return result
}

// NodesOfKind returns nodes of the given kinds sorted by name. No kinds means all nodes.
func (g *Graph) NodesOfKind(kinds ...core.NodeKind) []*core.Node {
	if len(kinds) == 0 {
		return g.Nodes()
	}
	var result []*core.Node
	for _, name := range g.names {
		n := g.nodes[name]
		for _, k := range kinds {
			if n.Kind == k {
				result = append(result, n)
				break
			}
		}
	}
	return result
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.names)
}

// ParentsOf returns the direct parents of a node, ordered by edge ordinal then name.
func (g *Graph) ParentsOf(name string) []string {
	return g.parents[name]
}

// ChildrenOf returns the direct children of a node sorted by name.
func (g *Graph) ChildrenOf(name string) []string {
	return g.children[name]
}

// EdgeKind returns the kind of the child -> parent reference.
func (g *Graph) EdgeKind(child, parent string) (core.RefKind, bool) {
	k, ok := g.edgeKinds[edgeKey{child: child, parent: parent}]
	return k, ok
}

// TopologicalOrder returns node names with parents before children and
// lineage sources before the nodes that inherit from them.
// Ready nodes are taken in name order, so the result is fully determined by the input.
func (g *Graph) TopologicalOrder() []string {
	return g.order
}

// Rank returns the position of a node in TopologicalOrder, or -1.
func (g *Graph) Rank(name string) int {
	if r, ok := g.rank[name]; ok {
		return r
	}
	return -1
}

// Roots returns nodes without parents.
func (g *Graph) Roots() []string {
	return g.dag.GetRoots()
}

// Leaves returns nodes without children.
func (g *Graph) Leaves() []string {
	return g.dag.GetLeaves()
}

// Descendants returns the given nodes and everything downstream of them.
func (g *Graph) Descendants(names ...string) []string {
	return g.dag.GetAffectedNodes(names)
}

// UpstreamColumns returns the lineage links of a column in declaration order.
func (g *Graph) UpstreamColumns(node, column string) []core.LineageLink {
	n, ok := g.nodes[node]
	if !ok {
		return nil
	}
	col, ok := n.Column(column)
	if !ok {
		return nil
	}
	return col.Lineage
}

// DownstreamColumns returns the columns whose lineage points at node.column,
// sorted by node then column. Each link names the downstream column.
func (g *Graph) DownstreamColumns(node, column string) []core.LineageLink {
	return g.downstream[core.ColumnRef{Node: node, Column: column}]
}

// DocsBlock returns a docs block by name.
func (g *Graph) DocsBlock(name string) (*core.DocsBlock, bool) {
	b, ok := g.blocks[name]
	return b, ok
}

// DocsBlocks returns all docs block names sorted.
func (g *Graph) DocsBlocks() []string {
	names := make([]string, 0, len(g.blocks))
	for name := range g.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DocsBlockUsers returns the columns referencing a docs block, in topological
// node order then column declaration order.
func (g *Graph) DocsBlockUsers(name string) []core.ColumnRef {
	return g.blockUsers[name]
}

// EffectiveDescription returns the rendered documentation of a column: the
// referenced docs block text when there is one, otherwise the literal description.
// Whitespace-only text counts as empty.
func (g *Graph) EffectiveDescription(node, column string) (string, bool) {
	n, ok := g.nodes[node]
	if !ok {
		return "", false
	}
	col, ok := n.Column(column)
	if !ok {
		return "", false
	}
	text := col.Description
	if col.DocsRef != "" {
		if b, ok := g.blocks[col.DocsRef]; ok {
			text = b.Text
		}
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// =============================================================================
// Memoized indexes
// =============================================================================

func (g *Graph) ancestorIndex() map[string]map[string]int {
	g.ancestorsOnce.Do(func() {
		g.ancestors = make(map[string]map[string]int, len(g.order))
		for _, name := range g.order {
			depths := make(map[string]int)
			for _, p := range g.parents[name] {
				depths[p] = 1
			}
			for _, p := range g.parents[name] {
				for a, d := range g.ancestors[p] {
					if cur, ok := depths[a]; !ok || d+1 < cur {
						depths[a] = d + 1
					}
				}
			}
			g.ancestors[name] = depths
		}
	})
	return g.ancestors
}

// Ancestors returns every node upstream of name, sorted.
func (g *Graph) Ancestors(name string) []string {
	return g.AncestorsWithin(name, 0)
}

// AncestorsWithin returns nodes upstream of name at most depth edges away,
// sorted. Direct parents are at depth 1; depth <= 0 means unbounded.
func (g *Graph) AncestorsWithin(name string, depth int) []string {
	var result []string
	for a, d := range g.ancestorIndex()[name] {
		if depth <= 0 || d <= depth {
			result = append(result, a)
		}
	}
	sort.Strings(result)
	return result
}

// AncestorDepth returns the shortest distance from name up to ancestor.
func (g *Graph) AncestorDepth(name, ancestor string) (int, bool) {
	d, ok := g.ancestorIndex()[name][ancestor]
	return d, ok
}

// Components returns the weakly-connected components of the graph, joined by
// reference edges and lineage links, each in topological order. Components are ordered by their smallest node name.
func (g *Graph) Components() [][]string {
	g.componentsOnce.Do(func() {
		g.components = g.deps.Components(g.order)
	})
	return g.components
}
