package docs

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "DC03",
		Name:        "column-description",
		Group:       "documentation",
		Description: "Column has no description",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel, core.KindSnapshot},
		Aliases:     []string{"check-model-columns-have-desc"},
		Check:       checkColumnDescription,
		Fix:         "Run `leaplint fix` to inherit descriptions from upstream passthrough and renamed columns.",
	})
}

// checkColumnDescription flags columns without an effective description.
// A column is fixable when its passthrough and renamed lineage agrees on a
// single documented value, which is what propagation can fill in when
// fill_from_upstream is enabled. Disagreeing upstreams are never guessed.
func checkColumnDescription(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	inherit := newInheritance(ctx.Graph())

	for _, n := range ctx.Nodes() {
		for _, col := range n.Columns {
			if _, ok := ctx.Graph().EffectiveDescription(n.Name, col.Name); ok {
				continue
			}
			f := ctx.ColumnFinding(n, col.Name, "Column '%s' of '%s' has no description", col.Name, n.Name)
			if src, ok := inherit.source(n.Name, col.Name); ok {
				f.Fixable = true
				f.Message += "; it may inherit from " + src.String()
				f.Related = []string{src.Node}
			}
			findings = append(findings, f)
		}
	}

	return findings, nil
}

// inherited is the documentation a column would receive from upstream.
type inherited struct {
	text    string
	docsRef string
	source  core.ColumnRef
}

// inheritance resolves the documentation reachable through passthrough and
// renamed lineage, treating disagreeing upstreams as unresolvable.
type inheritance struct {
	g        *graph.Graph
	memo     map[core.ColumnRef]*inherited
	visiting map[core.ColumnRef]bool
}

func newInheritance(g *graph.Graph) *inheritance {
	return &inheritance{
		g:        g,
		memo:     make(map[core.ColumnRef]*inherited),
		visiting: make(map[core.ColumnRef]bool),
	}
}

func (in *inheritance) source(node, column string) (core.ColumnRef, bool) {
	v := in.resolve(core.ColumnRef{Node: node, Column: column})
	if v == nil {
		return core.ColumnRef{}, false
	}
	return v.source, true
}

// current returns the documentation a column has, or would inherit.
func (in *inheritance) current(ref core.ColumnRef) *inherited {
	if text, ok := in.g.EffectiveDescription(ref.Node, ref.Column); ok {
		v := &inherited{text: text, source: ref}
		if n, ok := in.g.Node(ref.Node); ok {
			if col, ok := n.Column(ref.Column); ok {
				v.docsRef = col.DocsRef
			}
		}
		return v
	}
	return in.resolve(ref)
}

func (in *inheritance) resolve(key core.ColumnRef) *inherited {
	if found, ok := in.memo[key]; ok {
		return found
	}
	if in.visiting[key] {
		return nil
	}
	in.visiting[key] = true
	defer delete(in.visiting, key)

	var cands []*inherited
	texts := make(map[string]bool)
	refs := make(map[string]bool)
	for _, link := range in.g.UpstreamColumns(key.Node, key.Column) {
		if link.Relation == core.RelationTransformed {
			continue
		}
		v := in.current(core.ColumnRef{Node: link.Node, Column: link.Column})
		if v == nil {
			continue
		}
		cands = append(cands, v)
		texts[v.text] = true
		if v.docsRef != "" {
			refs[v.docsRef] = true
		}
	}

	var found *inherited
	if len(cands) > 0 && len(texts) == 1 && len(refs) <= 1 {
		found = cands[0]
	}
	in.memo[key] = found
	return found
}
