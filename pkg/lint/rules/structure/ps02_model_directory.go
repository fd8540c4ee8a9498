package structure

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PS02",
		Name:        "model-directory",
		Group:       "structure",
		Description: "Model file is not in its layer's directory",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel, core.KindSnapshot},
		ConfigKeys:  []string{"directories"},
		Defaults: map[string]any{"directories": map[string]string{
			string(core.LayerStaging):      "**/staging/**",
			string(core.LayerIntermediate): "**/intermediate/**",
			string(core.LayerMarts):        "**/marts/**",
		}},
		Aliases: []string{"fct_model_directories"},
		Check:   checkModelDirectory,
	})
}

// checkModelDirectory flags models whose file path does not match the glob
// configured for their layer. Models without a file path are skipped.
func checkModelDirectory(ctx *lint.Context) ([]core.Finding, error) {
	globs := lint.GetStringMapOption(ctx.Params(), "directories", nil)
	byLayer := make(map[core.Layer]string, len(globs))
	for layer, glob := range globs {
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("invalid directory glob for layer %s: %q", layer, glob)
		}
		byLayer[core.ParseLayer(layer)] = glob
	}

	var findings []core.Finding
	for _, model := range ctx.Nodes() {
		glob, ok := byLayer[model.Layer]
		if !ok || model.FilePath == "" {
			continue
		}
		matched, err := doublestar.Match(glob, strings.ReplaceAll(model.FilePath, `\`, "/"))
		if err != nil {
			return nil, fmt.Errorf("match %s against %q: %w", model.FilePath, glob, err)
		}
		if !matched {
			findings = append(findings, ctx.Finding(model,
				"Model '%s' is in the %s layer but '%s' does not match %q",
				model.Name, model.Layer, model.FilePath, glob))
		}
	}

	return findings, nil
}
