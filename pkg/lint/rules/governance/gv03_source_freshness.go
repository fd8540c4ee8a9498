package governance

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "GV03",
		Name:        "source-freshness",
		Group:       "governance",
		Description: "Source has no freshness thresholds",
		Severity:    core.SeverityInfo,
		Kinds:       []core.NodeKind{core.KindSource},
		Aliases:     []string{"fct_sources_without_freshness", "check-source-has-freshness"},
		Check:       checkSourceFreshness,
	})
}

func checkSourceFreshness(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	for _, s := range ctx.Nodes() {
		if !s.Freshness.IsSet() {
			findings = append(findings, ctx.Finding(s, "Source '%s' has no freshness thresholds", s.Name))
		}
	}
	return findings, nil
}
