package modeling

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PM04",
		Name:        "model-fanout",
		Group:       "modeling",
		Description: "Model has too many direct downstream consumers",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel, core.KindSnapshot, core.KindSeed},
		ConfigKeys:  []string{"threshold"},
		Defaults:    map[string]any{"threshold": 3},
		Aliases:     []string{"fct_model_fanout"},
		Check:       checkModelFanout,
	})
}

// checkModelFanout flags models whose number of distinct children exceeds
// the threshold. This indicates a "God Model" that is doing too much.
func checkModelFanout(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	threshold := lint.GetIntOption(ctx.Params(), "threshold", 3)
	if threshold <= 0 {
		threshold = 3
	}

	for _, model := range ctx.Nodes() {
		children := ctx.Graph().ChildrenOf(model.Name)
		if len(children) > threshold {
			f := ctx.Finding(model,
				"Model '%s' has %d direct downstream consumers (threshold: %d): %s; consider creating an intermediate abstraction",
				model.Name, len(children), threshold, strings.Join(children, ", "))
			f.Related = append([]string(nil), children...)
			findings = append(findings, f)
		}
	}

	return findings, nil
}
