package lineage

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PL01",
		Name:        "passthrough-bloat",
		Group:       "lineage",
		Category:    "modeling",
		Description: "Model has too many passthrough columns",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel, core.KindSnapshot},
		ConfigKeys:  []string{"threshold"},
		Defaults:    map[string]any{"threshold": 20},
		Check:       checkPassthroughBloat,
	})
}

// checkPassthroughBloat flags models with more passthrough columns than the
// threshold. This indicates a "SELECT *" style model that doesn't add value
// and increases data movement.
func checkPassthroughBloat(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	threshold := lint.GetIntOption(ctx.Params(), "threshold", 20)
	if threshold <= 0 {
		threshold = 20
	}

	for _, model := range ctx.Nodes() {
		passthrough := 0
		for _, col := range model.Columns {
			if isPassthrough(col) {
				passthrough++
			}
		}
		if passthrough > threshold {
			findings = append(findings, ctx.Finding(model,
				"Model '%s' has %d/%d passthrough columns (threshold: %d); consider explicit column selection",
				model.Name, passthrough, len(model.Columns), threshold))
		}
	}

	return findings, nil
}

// isPassthrough reports whether a column is copied unchanged from exactly one upstream column.
func isPassthrough(col core.Column) bool {
	return len(col.Lineage) == 1 && col.Lineage[0].Relation == core.RelationPassthrough
}
