package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/manifest"
	"github.com/leapstack-labs/leaplint/internal/runner"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/spf13/cobra"
)

// GraphOptions holds options for the graph command.
type GraphOptions struct {
	Upstream   bool
	Downstream bool
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	opts := &GraphOptions{}
	cmd := &cobra.Command{
		Use:   "graph [node]",
		Short: "Show the project dependency graph",
		Long: `Display the project graph built from the manifest.

Nodes are grouped by weakly-connected component and listed in topological
order, with their dependencies, dependents and the docs blocks their columns
use. Given a node, only its neighbourhood is shown.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the whole graph
  leaplint graph

  # Everything customers depends on
  leaplint graph customers --upstream

  # Output as JSON
  leaplint graph --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			focus := ""
			if len(args) > 0 {
				focus = args[0]
			}
			return runGraph(cmd, focus, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Upstream, "upstream", false, "With a node, show its ancestors")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", false, "With a node, show its descendants")

	return cmd
}

func runGraph(cmd *cobra.Command, focus string, opts *GraphOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	in, err := manifest.Load(cmdCtx.Cfg.Manifest)
	if err != nil {
		return err
	}
	g, err := graph.Build(in)
	if err != nil {
		if !graph.IsGraphError(err) {
			return err
		}
		renderFindings(r, runner.GraphFindings(err))
		return ErrFailed
	}

	names, err := graphSelection(g, focus, opts)
	if err != nil {
		return err
	}
	out := buildGraphOutput(g, names)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		graphMarkdown(r, out)
	default:
		graphText(r, out)
	}
	return nil
}

// graphSelection returns the node names to show in topological order.
func graphSelection(g *graph.Graph, focus string, opts *GraphOptions) (map[string]bool, error) {
	if focus == "" {
		return nil, nil
	}
	if _, ok := g.Node(focus); !ok {
		return nil, fmt.Errorf("node %q not found", focus)
	}
	if !opts.Upstream && !opts.Downstream {
		opts.Upstream, opts.Downstream = true, true
	}

	selected := map[string]bool{focus: true}
	if opts.Upstream {
		for _, name := range g.Ancestors(focus) {
			selected[name] = true
		}
	}
	if opts.Downstream {
		for _, name := range g.Descendants(focus) {
			selected[name] = true
		}
	}
	return selected, nil
}

// buildGraphOutput collects the displayed graph. A nil selection means all nodes.
func buildGraphOutput(g *graph.Graph, selected map[string]bool) output.GraphOutput {
	keep := func(name string) bool { return selected == nil || selected[name] }

	out := output.GraphOutput{DocsBlocks: make(map[string][]string)}
	for _, component := range g.Components() {
		var members []string
		for _, name := range component {
			if !keep(name) {
				continue
			}
			members = append(members, name)

			n, _ := g.Node(name)
			out.Nodes = append(out.Nodes, output.GraphNode{
				Name:      name,
				Kind:      string(n.Kind),
				Layer:     string(n.Layer),
				DependsOn: g.ParentsOf(name),
				UsedBy:    g.ChildrenOf(name),
			})
			out.TotalEdges += len(g.ParentsOf(name))
		}
		if len(members) > 0 {
			out.Components = append(out.Components, members)
		}
	}
	out.TotalNodes = len(out.Nodes)

	for _, block := range g.DocsBlocks() {
		for _, ref := range g.DocsBlockUsers(block) {
			if keep(ref.Node) {
				out.DocsBlocks[block] = append(out.DocsBlocks[block], ref.String())
			}
		}
	}
	return out
}

// graphText outputs the graph in styled text format.
func graphText(r *output.Renderer, out output.GraphOutput) {
	styles := r.Styles()
	byName := nodesByName(out.Nodes)

	r.Header(1, "Project Graph")

	for i, component := range out.Components {
		r.Println(styles.Header2.Render(fmt.Sprintf("Component %d:", i+1)))
		for _, name := range component {
			n := byName[name]
			r.Printf("  %s %s\n", styles.ModelPath.Render(name), styles.Muted.Render("("+n.Kind+", "+n.Layer+")"))
			if len(n.DependsOn) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(n.DependsOn, ", "))
			}
			if len(n.UsedBy) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(n.UsedBy, ", "))
			}
		}
		r.Println("")
	}

	if len(out.DocsBlocks) > 0 {
		r.Println(styles.Header2.Render("Docs blocks:"))
		for _, block := range sortedKeys(out.DocsBlocks) {
			r.Printf("  %s %s\n", styles.Bold.Render(block), styles.Muted.Render(strings.Join(out.DocsBlocks[block], ", ")))
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d nodes, %d dependencies", out.TotalNodes, out.TotalEdges)))
}

// graphMarkdown outputs the graph in markdown format.
func graphMarkdown(r *output.Renderer, out output.GraphOutput) {
	byName := nodesByName(out.Nodes)

	r.Println(output.FormatHeader(1, "Project Graph"))
	r.Println("")

	for i, component := range out.Components {
		r.Println(output.FormatHeader(2, fmt.Sprintf("Component %d", i+1)))
		r.Println("")
		for _, name := range component {
			n := byName[name]
			r.Printf("- %s (%s, %s)\n", name, n.Kind, n.Layer)
			if len(n.DependsOn) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(n.DependsOn, ", "))
			}
			if len(n.UsedBy) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(n.UsedBy, ", "))
			}
		}
		r.Println("")
	}

	if len(out.DocsBlocks) > 0 {
		r.Println(output.FormatHeader(2, "Docs Blocks"))
		r.Println("")
		for _, block := range sortedKeys(out.DocsBlocks) {
			r.Printf("- `%s`: %s\n", block, strings.Join(out.DocsBlocks[block], ", "))
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Nodes", out.TotalNodes))
	r.Println(output.FormatKeyValue("Total Dependencies", out.TotalEdges))
}

func nodesByName(nodes []output.GraphNode) map[string]output.GraphNode {
	m := make(map[string]output.GraphNode, len(nodes))
	for _, n := range nodes {
		m[n.Name] = n
	}
	return m
}
