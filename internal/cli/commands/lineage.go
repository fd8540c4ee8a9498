package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/manifest"
	"github.com/leapstack-labs/leaplint/internal/runner"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/spf13/cobra"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	Upstream   bool
	Downstream bool
	Depth      int
}

// ColumnHop is one column reached by following lineage links.
type ColumnHop struct {
	Node        string `json:"node"`
	Column      string `json:"column"`
	Relation    string `json:"relation"`
	Depth       int    `json:"depth"`
	Description string `json:"description,omitempty"`
}

// LineageOutput is the JSON output of the lineage command.
type LineageOutput struct {
	Target      string      `json:"target"`
	Description string      `json:"description,omitempty"`
	Upstream    []ColumnHop `json:"upstream"`
	Downstream  []ColumnHop `json:"downstream"`
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <node.column>",
		Short: "Show column-level lineage",
		Long: `Display where a column's values come from and where they flow to.

Each hop shows the lineage relation (passthrough, renamed or transformed)
and the column's effective description, which is what fix propagates along
passthrough and renamed links.`,
		Example: `  # Full lineage of a column
  leaplint lineage customers.first_name

  # Only where it comes from
  leaplint lineage customers.first_name --downstream=false

  # Limit traversal depth
  leaplint lineage raw_orders.id --depth 1

  # Output as JSON
  leaplint lineage customers.first_name --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Upstream, "upstream", true, "Include upstream columns")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", true, "Include downstream columns")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "Max traversal depth (0 = unlimited)")

	return cmd
}

func parseColumnRef(s string) (core.ColumnRef, error) {
	node, column, ok := strings.Cut(s, ".")
	if !ok || node == "" || column == "" {
		return core.ColumnRef{}, fmt.Errorf("expected <node>.<column>, got %q", s)
	}
	return core.ColumnRef{Node: node, Column: column}, nil
}

func runLineage(cmd *cobra.Command, target string, opts *LineageOptions) error {
	ref, err := parseColumnRef(target)
	if err != nil {
		return err
	}

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

	n, ok := g.Node(ref.Node)
	if !ok {
		return fmt.Errorf("node not found: %s", ref.Node)
	}
	if _, ok := n.Column(ref.Column); !ok {
		return fmt.Errorf("column not found: %s", ref)
	}

	out := LineageOutput{Target: ref.String(), Upstream: []ColumnHop{}, Downstream: []ColumnHop{}}
	out.Description, _ = g.EffectiveDescription(ref.Node, ref.Column)
	if opts.Upstream {
		out.Upstream = walkColumns(g, ref, opts.Depth, g.UpstreamColumns)
	}
	if opts.Downstream {
		out.Downstream = walkColumns(g, ref, opts.Depth, g.DownstreamColumns)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		lineageMarkdown(r, out)
	default:
		lineageText(r, out)
	}
	return nil
}

// walkColumns follows links breadth-first from start. Each column is
// reported once, at its shortest depth. A maxDepth <= 0 means unbounded.
func walkColumns(g *graph.Graph, start core.ColumnRef, maxDepth int, next func(node, column string) []core.LineageLink) []ColumnHop {
	hops := []ColumnHop{}
	seen := map[core.ColumnRef]bool{start: true}
	frontier := []core.ColumnRef{start}

	for depth := 1; len(frontier) > 0; depth++ {
		if maxDepth > 0 && depth > maxDepth {
			break
		}
		var following []core.ColumnRef
		for _, cur := range frontier {
			for _, link := range next(cur.Node, cur.Column) {
				ref := core.ColumnRef{Node: link.Node, Column: link.Column}
				if seen[ref] {
					continue
				}
				seen[ref] = true
				desc, _ := g.EffectiveDescription(ref.Node, ref.Column)
				hops = append(hops, ColumnHop{
					Node:        ref.Node,
					Column:      ref.Column,
					Relation:    string(link.Relation),
					Depth:       depth,
					Description: desc,
				})
				following = append(following, ref)
			}
		}
		frontier = following
	}
	return hops
}

func lineageText(r *output.Renderer, out LineageOutput) {
	styles := r.Styles()

	r.Header(1, "Lineage for "+out.Target)
	if out.Description != "" {
		r.Println("  " + styles.Muted.Render(out.Description))
		r.Println("")
	}

	section := func(title string, hops []ColumnHop) {
		r.Println(styles.Header2.Render(fmt.Sprintf("%s (%d):", title, len(hops))))
		for _, h := range hops {
			r.Printf("  %d  %s %s\n", h.Depth, styles.ModelPath.Render(h.Node+"."+h.Column), styles.Muted.Render("["+h.Relation+"]"))
			if h.Description != "" {
				r.Printf("     %s\n", styles.Muted.Render(truncateOneLine(h.Description, 72)))
			}
		}
		r.Println("")
	}
	section("Upstream", out.Upstream)
	section("Downstream", out.Downstream)
}

func lineageMarkdown(r *output.Renderer, out LineageOutput) {
	r.Println(output.FormatHeader(1, "Lineage for "+out.Target))
	r.Println("")
	if out.Description != "" {
		r.Println("> " + out.Description)
		r.Println("")
	}

	section := func(title string, hops []ColumnHop) {
		r.Println(output.FormatHeader(2, fmt.Sprintf("%s (%d)", title, len(hops))))
		r.Println("")
		for _, h := range hops {
			r.Printf("- `%s.%s` (%s, depth %d)", h.Node, h.Column, h.Relation, h.Depth)
			if h.Description != "" {
				r.Printf(": %s", truncateOneLine(h.Description, 72))
			}
			r.Println("")
		}
		r.Println("")
	}
	section("Upstream", out.Upstream)
	section("Downstream", out.Downstream)
}
