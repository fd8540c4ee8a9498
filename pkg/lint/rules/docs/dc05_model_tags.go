package docs

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "DC05",
		Name:        "model-tags",
		Group:       "documentation",
		Description: "Model has no tags",
		Severity:    core.SeverityInfo,
		Kinds:       []core.NodeKind{core.KindModel},
		Aliases:     []string{"check-model-tags"},
		Check:       checkModelTags,
	})
}

func checkModelTags(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	for _, n := range ctx.Nodes() {
		if len(n.Tags) == 0 {
			findings = append(findings, ctx.Finding(n, "Model '%s' has no tags", n.Name))
		}
	}
	return findings, nil
}
