package datatests

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "TS01",
		Name:        "test-coverage",
		Group:       "testing",
		Description: "Share of models with at least one test is below the threshold",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		ConfigKeys:  []string{"min_coverage"},
		Defaults:    map[string]any{"min_coverage": 1.0},
		Aliases:     []string{"fct_test_coverage"},
		Check:       checkTestCoverage,
	})
}

// checkTestCoverage reports one project-level finding listing untested models
// when coverage is below min_coverage.
func checkTestCoverage(ctx *lint.Context) ([]core.Finding, error) {
	minCoverage := lint.GetFloatOption(ctx.Params(), "min_coverage", 1.0)

	models := ctx.Nodes()
	if len(models) == 0 {
		return nil, nil
	}

	var untested []string
	for _, m := range models {
		if len(m.Tests) == 0 {
			untested = append(untested, m.Name)
		}
	}

	coverage := float64(len(models)-len(untested)) / float64(len(models))
	if coverage >= minCoverage {
		return nil, nil
	}
	f := ctx.Finding(nil,
		"Test coverage is %.1f%% (%d/%d models tested), below the required %.1f%%",
		coverage*100, len(models)-len(untested), len(models), minCoverage*100)
	f.Related = untested
	return []core.Finding{f}, nil
}
