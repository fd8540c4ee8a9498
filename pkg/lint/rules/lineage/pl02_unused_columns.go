package lineage

import (
	"fmt"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PL02",
		Name:        "unused-columns",
		Group:       "lineage",
		Category:    "modeling",
		Description: "Column is not used by any downstream node",
		Severity:    core.SeverityInfo,
		Kinds:       []core.NodeKind{core.KindModel, core.KindSnapshot, core.KindSeed},
		Unsafe:      true,
		Check:       checkUnusedColumns,
		Fix:         "Remove the column. Removal is structural and only applied in unsafe mode.",
	})
}

// checkUnusedColumns flags columns of non-leaf nodes that no downstream
// column lineage references, and proposes removing them.
//
// Leaf nodes are skipped since their columns are the final output. Nodes
// whose children declare no lineage back to them are skipped too, since
// without lineage every column would look unused.
func checkUnusedColumns(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	g := ctx.Graph()

	for _, n := range ctx.Nodes() {
		if !hasTrackedChildren(ctx, n.Name) {
			continue
		}
		for _, col := range n.Columns {
			if len(g.DownstreamColumns(n.Name, col.Name)) > 0 {
				continue
			}
			f := ctx.ColumnFinding(n, col.Name,
				"Column '%s' of '%s' is not used by any downstream node; consider removing it", col.Name, n.Name)
			f.Fixable = true
			f.Proposed = &core.Edit{
				Kind:   core.EditRemoveColumn,
				Target: core.ColumnRef{Node: n.Name, Column: col.Name},
				Reason: fmt.Sprintf("unused column %s.%s", n.Name, col.Name),
				RuleID: "PL02",
			}
			findings = append(findings, f)
		}
	}

	return findings, nil
}

// hasTrackedChildren reports whether some child of name declares column lineage pointing at it.
func hasTrackedChildren(ctx *lint.Context, name string) bool {
	for _, c := range ctx.Graph().ChildrenOf(name) {
		child, _ := ctx.Graph().Node(c)
		for _, col := range child.Columns {
			for _, link := range col.Lineage {
				if link.Node == name {
					return true
				}
			}
		}
	}
	return false
}
