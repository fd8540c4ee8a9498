package performance

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PF02",
		Name:        "exposure-on-view",
		Group:       "performance",
		Description: "Exposure depends on a view-materialized model",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindExposure},
		Aliases:     []string{"fct_exposure_parents_materializations"},
		Check:       checkExposureOnView,
	})
}

func checkExposureOnView(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	g := ctx.Graph()

	for _, exposure := range ctx.Nodes() {
		for _, p := range g.ParentsOf(exposure.Name) {
			parent, _ := g.Node(p)
			if !isView(parent) {
				continue
			}
			f := ctx.Finding(exposure, "Exposure '%s' depends on view '%s'; materialize it as a table", exposure.Name, p)
			f.Related = []string{p}
			findings = append(findings, f)
		}
	}

	return findings, nil
}

func isView(n *core.Node) bool {
	return n.Kind == core.KindModel && n.Materialized == "view"
}
