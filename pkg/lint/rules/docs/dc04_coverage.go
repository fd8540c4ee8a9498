package docs

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "DC04",
		Name:        "documentation-coverage",
		Group:       "documentation",
		Description: "Share of documented model columns is below the threshold",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel, core.KindSnapshot},
		ConfigKeys:  []string{"min_coverage"},
		Defaults:    map[string]any{"min_coverage": 0.75},
		Aliases:     []string{"fct_documentation_coverage"},
		Check:       checkCoverage,
	})
}

// checkCoverage reports a single project-level finding when the fraction of
// columns with an effective description is below min_coverage.
func checkCoverage(ctx *lint.Context) ([]core.Finding, error) {
	minCoverage := lint.GetFloatOption(ctx.Params(), "min_coverage", 0.75)

	total, documented := 0, 0
	for _, n := range ctx.Nodes() {
		for _, col := range n.Columns {
			total++
			if _, ok := ctx.Graph().EffectiveDescription(n.Name, col.Name); ok {
				documented++
			}
		}
	}
	if total == 0 {
		return nil, nil
	}

	coverage := float64(documented) / float64(total)
	if coverage >= minCoverage {
		return nil, nil
	}
	return []core.Finding{ctx.Finding(nil,
		"Documentation coverage is %.1f%% (%d/%d columns), below the required %.1f%%",
		coverage*100, documented, total, minCoverage*100)}, nil
}
