package modeling

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PM01",
		Name:        "root-models",
		Group:       "modeling",
		Description: "Models with no parents (broken DAG lineage)",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		Aliases:     []string{"fct_root_models"},
		Check:       checkRootModels,
		Rationale:   "A model that references neither a source nor another model usually hard-codes a relation name, which hides it from the DAG.",
		Fix:         "Reference the upstream relation with ref() or source(), or turn the model into a seed.",
	})
}

// checkRootModels flags models that have no parents.
// Staging models are expected to sit directly on external data, so only
// non-staging models are flagged.
func checkRootModels(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding

	for _, model := range ctx.Nodes() {
		if model.Layer == core.LayerStaging {
			continue
		}
		if len(ctx.Graph().ParentsOf(model.Name)) == 0 {
			findings = append(findings, ctx.Finding(model,
				"Model '%s' has no upstream dependencies (broken lineage)", model.Name))
		}
	}

	return findings, nil
}
