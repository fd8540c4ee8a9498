package modeling

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PM06",
		Name:        "downstream-on-source",
		Group:       "modeling",
		Description: "Marts or intermediate model depends directly on source (not staging)",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		Aliases:     []string{"fct_marts_or_intermediate_dependent_on_source"},
		Check:       checkDownstreamOnSource,
		Rationale: `The recommended transformation pattern is Sources → Staging → Intermediate → Marts. When marts
or intermediate models reference sources directly, they bypass data cleaning in staging.`,
		Fix: "Create a staging model for the source and reference it instead of the raw source.",
	})
}

// checkDownstreamOnSource flags marts and intermediate models that depend
// directly on sources instead of staging models:
//
//	Sources → Staging → Intermediate → Marts
func checkDownstreamOnSource(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	g := ctx.Graph()

	for _, model := range ctx.Nodes() {
		if model.Layer != core.LayerMarts && model.Layer != core.LayerIntermediate {
			continue
		}
		for _, parentName := range g.ParentsOf(model.Name) {
			parent, _ := g.Node(parentName)
			if parent.Kind != core.KindSource {
				continue
			}
			f := ctx.Finding(model,
				"%s model '%s' depends directly on source '%s'; use a staging model instead",
				model.Layer, model.Name, parent.Name)
			f.Related = []string{parent.Name}
			findings = append(findings, f)
		}
	}

	return findings, nil
}
