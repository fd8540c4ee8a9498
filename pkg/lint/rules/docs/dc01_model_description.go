package docs

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "DC01",
		Name:        "model-description",
		Group:       "documentation",
		Description: "Model has no description",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		Aliases:     []string{"fct_undocumented_models", "check-model-has-description"},
		Check:       checkNodeDescription("Model"),
	})

	lint.Register(lint.RuleDef{
		ID:          "DC02",
		Name:        "source-description",
		Group:       "documentation",
		Description: "Source has no description",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindSource},
		Aliases:     []string{"fct_undocumented_source_tables", "check-source-table-has-description"},
		Check:       checkNodeDescription("Source"),
	})
}

// checkNodeDescription flags nodes whose description is empty or whitespace.
func checkNodeDescription(label string) lint.Check {
	return func(ctx *lint.Context) ([]core.Finding, error) {
		var findings []core.Finding
		for _, n := range ctx.Nodes() {
			if strings.TrimSpace(n.Description) == "" {
				findings = append(findings, ctx.Finding(n, "%s '%s' has no description", label, n.Name))
			}
		}
		return findings, nil
	}
}
