package structure

import (
	"fmt"
	"regexp"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PS01",
		Name:        "model-naming",
		Group:       "structure",
		Description: "Model name does not match its layer's naming convention",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel, core.KindSnapshot},
		ConfigKeys:  []string{"patterns"},
		Defaults: map[string]any{"patterns": map[string]string{
			string(core.LayerStaging):      "^stg_",
			string(core.LayerIntermediate): "^int_",
			string(core.LayerMarts):        "^(fct|dim)_",
		}},
		Aliases: []string{"fct_model_naming_conventions", "check-model-name-contract"},
		Check:   checkModelNaming,
	})
}

// checkModelNaming flags models whose name does not match the regular
// expression configured for their layer. Layers without a pattern are skipped.
func checkModelNaming(ctx *lint.Context) ([]core.Finding, error) {
	patterns := lint.GetStringMapOption(ctx.Params(), "patterns", nil)
	compiled := make(map[core.Layer]*regexp.Regexp, len(patterns))
	for layer, expr := range patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid naming pattern for layer %s: %w", layer, err)
		}
		compiled[core.ParseLayer(layer)] = re
	}

	var findings []core.Finding
	for _, model := range ctx.Nodes() {
		re, ok := compiled[model.Layer]
		if !ok || re.MatchString(model.Name) {
			continue
		}
		findings = append(findings, ctx.Finding(model,
			"Model '%s' is in the %s layer but does not match naming pattern %q",
			model.Name, model.Layer, re.String()))
	}

	return findings, nil
}
