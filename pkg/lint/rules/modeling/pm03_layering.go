package modeling

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PM03",
		Name:        "same-layer-dependency",
		Group:       "modeling",
		Description: "Model references another model of a layer that forbids self references",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel, core.KindSnapshot},
		ConfigKeys:  []string{"layers"},
		Defaults:    map[string]any{"layers": []string{string(core.LayerStaging)}},
		Aliases:     []string{"fct_staging_dependent_on_staging", "staging-depends-staging"},
		Check:       checkLayering,
		Rationale:   "Staging models clean and normalize raw data. Combining staging models belongs in an intermediate model.",
		Fix:         "Move the combining logic into an intermediate model.",
	})
}

// checkLayering flags nodes in a guarded layer that depend on a node of the
// same layer. The finding is attached to the dependent (child) node.
func checkLayering(ctx *lint.Context) ([]core.Finding, error) {
	guarded := make(map[core.Layer]bool)
	for _, l := range lint.GetStringSliceOption(ctx.Params(), "layers", nil) {
		guarded[core.ParseLayer(l)] = true
	}

	var findings []core.Finding
	g := ctx.Graph()

	for _, model := range ctx.Nodes() {
		if !guarded[model.Layer] {
			continue
		}
		for _, parentName := range g.ParentsOf(model.Name) {
			parent, _ := g.Node(parentName)
			if parent.Kind == core.KindSource || parent.Layer != model.Layer {
				continue
			}
			f := ctx.Finding(model,
				"%s model '%s' depends on %s model '%s'; %s models should not reference each other",
				model.Layer, model.Name, parent.Layer, parent.Name, model.Layer)
			f.Related = []string{parent.Name}
			findings = append(findings, f)
		}
	}

	return findings, nil
}
