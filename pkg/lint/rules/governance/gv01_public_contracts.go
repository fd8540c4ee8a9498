package governance

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "GV01",
		Name:        "public-model-contract",
		Group:       "governance",
		Description: "Public model has no enforced contract",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		Aliases:     []string{"fct_public_models_without_contract"},
		Check:       checkPublicContracts,
	})

	lint.Register(lint.RuleDef{
		ID:          "GV02",
		Name:        "public-model-description",
		Group:       "governance",
		Description: "Public model has no description",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		Aliases:     []string{"fct_undocumented_public_models"},
		Check:       checkPublicDescriptions,
	})
}

func checkPublicContracts(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	for _, m := range ctx.Nodes() {
		if m.IsPublic() && !m.ContractEnforced {
			findings = append(findings, ctx.Finding(m, "Public model '%s' does not enforce a contract", m.Name))
		}
	}
	return findings, nil
}

// checkPublicDescriptions flags public models missing a model description or
// any column description.
func checkPublicDescriptions(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	for _, m := range ctx.Nodes() {
		if !m.IsPublic() {
			continue
		}
		if strings.TrimSpace(m.Description) == "" {
			findings = append(findings, ctx.Finding(m, "Public model '%s' has no description", m.Name))
		}
		for _, col := range m.Columns {
			if _, ok := ctx.Graph().EffectiveDescription(m.Name, col.Name); !ok {
				findings = append(findings, ctx.ColumnFinding(m, col.Name,
					"Column '%s' of public model '%s' has no description", col.Name, m.Name))
			}
		}
	}
	return findings, nil
}
