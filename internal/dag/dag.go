// Package dag provides directed acyclic graph operations for project nodes.
// It supports cycle detection, deterministic topological sorting, ancestor
// closures and connected-component partitioning.
package dag

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrCycle is returned when an operation requires an acyclic graph.
	ErrCycle = errors.New("cycle detected")
	// ErrSelfLoop is returned when an edge references its own node.
	ErrSelfLoop = errors.New("self-loop detected")
	// ErrUnknownNode is returned when an edge references a node that was never added.
	ErrUnknownNode = errors.New("node does not exist")
)

// Node represents a node in the DAG.
type Node struct {
	// ID is the unique identifier (node name)
	ID string
	// Data holds arbitrary node data
	Data any
}

// Graph represents a directed graph that is expected to be acyclic.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(id string, data any) {
	if _, exists := g.nodes[id]; !exists {
		g.nodes[id] = &Node{ID: id, Data: data}
		g.edges[id] = []string{}
		g.parents[id] = []string{}
	} else {
		// Update data if node already exists
		g.nodes[id].Data = data
	}
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
// Parents keep insertion order; duplicate edges are ignored.
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent %q: %w", parentID, ErrUnknownNode)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child %q: %w", childID, ErrUnknownNode)
	}
	if parentID == childID {
		return fmt.Errorf("%w: %s", ErrSelfLoop, parentID)
	}

	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}

	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the parents (dependencies) of a node in insertion order.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node in insertion order.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// IDs returns all node IDs sorted by name.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// CycleError describes a cycle found in the graph.
// Path starts and ends with the same node, e.g. [x y x].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}

// Unwrap allows errors.Is(err, ErrCycle).
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

const (
	white = iota // unvisited
	grey         // on the current DFS stack
	black        // fully explored
)

// FindCycle returns the first cycle found, or nil when the graph is acyclic.
//
// Nodes and children are visited in name order so the reported cycle is stable.
// The path runs from the re-entered node along the DFS stack back to itself,
// which is the shortest cycle through the back edge that closed it.
func (g *Graph) FindCycle() []string {
	color := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)

		for _, childID := range sortedCopy(g.edges[id]) {
			switch color[childID] {
			case white:
				if dfs(childID) {
					return true
				}
			case grey:
				start := len(stack) - 1
				for stack[start] != childID {
					start--
				}
				cycle = append(cycle, stack[start:]...)
				cycle = append(cycle, childID)
				return true
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.IDs() {
		if color[id] == white && dfs(id) {
			return cycle
		}
	}
	return nil
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	cycle := g.FindCycle()
	return cycle != nil, cycle
}

// TopologicalSort returns node IDs in topological order (dependencies before dependents).
// Among nodes that are ready at the same time, the lexically smallest name goes first,
// so the order is fully determined by the graph.
// Returns a *CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	inDegree := make(map[string]int, len(g.nodes))
	ready := &nameHeap{}
	for id := range g.nodes {
		inDegree[id] = len(g.parents[id])
		if inDegree[id] == 0 {
			heap.Push(ready, id)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		result = append(result, id)
		for _, childID := range g.edges[id] {
			inDegree[childID]--
			if inDegree[childID] == 0 {
				heap.Push(ready, childID)
			}
		}
	}

	return result, nil
}

// GetAffectedNodes returns all nodes affected by changes to the given nodes.
// This includes the changed nodes and all their downstream dependents.
func (g *Graph) GetAffectedNodes(changedIDs []string) []string {
	affected := make(map[string]bool)

	var markAffected func(id string)
	markAffected = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true

		for _, childID := range g.edges[id] {
			markAffected(childID)
		}
	}

	for _, id := range changedIDs {
		if _, exists := g.nodes[id]; exists {
			markAffected(id)
		}
	}

	return sortedKeys(affected)
}

// AncestorDepths returns every node upstream of id mapped to its shortest distance.
// Direct parents have depth 1. A maxDepth <= 0 means unbounded.
func (g *Graph) AncestorDepths(id string, maxDepth int) map[string]int {
	depths := make(map[string]int)
	frontier := []string{id}

	for depth := 1; len(frontier) > 0; depth++ {
		if maxDepth > 0 && depth > maxDepth {
			break
		}
		var next []string
		for _, nodeID := range frontier {
			for _, parentID := range g.parents[nodeID] {
				if _, seen := depths[parentID]; seen || parentID == id {
					continue
				}
				depths[parentID] = depth
				next = append(next, parentID)
			}
		}
		frontier = next
	}

	return depths
}

// GetUpstreamNodes returns all nodes upstream of the given node (its dependencies and their dependencies).
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)
	for nodeID := range g.AncestorDepths(id, 0) {
		upstream[nodeID] = true
	}
	return sortedKeys(upstream)
}

// GetRoots returns nodes with no parents (no dependencies).
func (g *Graph) GetRoots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// GetLeaves returns nodes with no children (no dependents).
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Components partitions the graph into weakly-connected components.
// Components are ordered by their smallest member name; members keep the
// relative order of the given topological order.
func (g *Graph) Components(order []string) [][]string {
	component := make(map[string]int, len(g.nodes))
	next := 0

	for _, id := range g.IDs() {
		if _, seen := component[id]; seen {
			continue
		}
		queue := []string{id}
		component[id] = next
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			neighbours := append(append([]string{}, g.parents[cur]...), g.edges[cur]...)
			for _, n := range neighbours {
				if _, seen := component[n]; !seen {
					component[n] = next
					queue = append(queue, n)
				}
			}
		}
		next++
	}

	result := make([][]string, next)
	for _, id := range order {
		c, ok := component[id]
		if !ok {
			continue
		}
		result[c] = append(result[c], id)
	}
	return result
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]bool) []string {
	result := make([]string, 0, len(set))
	for id := range set {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// nameHeap is a min-heap of node names.
type nameHeap []string

func (h nameHeap) Len() int           { return len(h) }
func (h nameHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h nameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nameHeap) Push(x any)        { *h = append(*h, x.(string)) }
func (h *nameHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
