package datatests

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "TS02",
		Name:        "primary-key-test",
		Group:       "testing",
		Description: "Model has no primary key test",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		Aliases:     []string{"fct_missing_primary_key_tests"},
		Check:       checkPrimaryKeyTest,
		Fix:         "Add unique and not_null tests to the key column, or a primary_key test.",
	})
}

// checkPrimaryKeyTest flags models without a primary_key test and without a
// column carrying both unique and not_null tests.
func checkPrimaryKeyTest(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	for _, m := range ctx.Nodes() {
		if !hasPrimaryKeyTest(m) {
			findings = append(findings, ctx.Finding(m, "Model '%s' has no primary key test", m.Name))
		}
	}
	return findings, nil
}

func hasPrimaryKeyTest(n *core.Node) bool {
	unique := make(map[string]bool)
	notNull := make(map[string]bool)
	for _, t := range n.Tests {
		switch t.Kind {
		case core.TestPrimaryKey:
			return true
		case core.TestUnique:
			unique[t.Column] = true
		case core.TestNotNull:
			notNull[t.Column] = true
		}
	}
	for col := range unique {
		if col != "" && notNull[col] {
			return true
		}
	}
	return false
}
