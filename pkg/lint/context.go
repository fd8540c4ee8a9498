package lint

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
)

// Context is what a rule check sees: the graph, its own parameters and the
// shared index of the run.
type Context struct {
	ctx      context.Context
	graph    *graph.Graph
	rule     RuleDef
	params   map[string]any
	severity core.Severity
	index    *Index
}

// NewContext creates a context for running a single rule outside an engine,
// mainly for tests. Params overlay the rule defaults.
func NewContext(ctx context.Context, g *graph.Graph, rule RuleDef, params map[string]any) *Context {
	return &Context{
		ctx:      ctx,
		graph:    g,
		rule:     rule,
		params:   effectiveParams(rule, RuleConfig{Params: params}),
		severity: rule.Severity,
		index:    NewIndex(g),
	}
}

// Context returns the run context.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Graph returns the project graph.
func (c *Context) Graph() *graph.Graph {
	return c.graph
}

// Rule returns the definition of the rule being run.
func (c *Context) Rule() RuleDef {
	return c.rule
}

// Index returns the shared, memoized index of the run.
func (c *Context) Index() *Index {
	return c.index
}

// Nodes returns the nodes the rule applies to, sorted by name.
func (c *Context) Nodes() []*core.Node {
	return c.graph.NodesOfKind(c.rule.Kinds...)
}

// Params returns the effective rule parameters: defaults overlaid with configuration.
func (c *Context) Params() map[string]any {
	return c.params
}

// Decode decodes the rule parameters into target.
func (c *Context) Decode(target any) error {
	return DecodeOptions(c.params, target)
}

// Finding starts a finding for node with the rule's ID and effective severity.
// A nil node makes a project-level finding.
func (c *Context) Finding(node *core.Node, format string, args ...any) core.Finding {
	f := core.Finding{
		RuleID:           c.rule.ID,
		Severity:         c.severity,
		Message:          fmt.Sprintf(format, args...),
		DocumentationURL: BuildDocURL(c.rule.ID),
	}
	if node != nil {
		f.Node = node.Name
		f.FilePath = node.FilePath
		if node.PatchPath != "" {
			f.FilePath = node.PatchPath
		}
	}
	return f
}

// ColumnFinding starts a finding for a column of node.
func (c *Context) ColumnFinding(node *core.Node, column string, format string, args ...any) core.Finding {
	f := c.Finding(node, format, args...)
	f.Column = column
	return f
}
