package modeling

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PM02",
		Name:        "source-fanout",
		Group:       "modeling",
		Description: "Source referenced by multiple non-staging models",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindSource},
		Aliases:     []string{"fct_source_fanout"},
		Check:       checkSourceFanout,
		Rationale:   "Each raw source should be read by exactly one staging model, which then provides a clean interface for downstream models.",
		Fix:         "Create a staging model for the source and reference it instead.",
	})
}

// checkSourceFanout flags sources that are referenced by more than one
// non-staging model.
func checkSourceFanout(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	g := ctx.Graph()

	for _, source := range ctx.Nodes() {
		var consumers []string
		for _, child := range g.ChildrenOf(source.Name) {
			n, _ := g.Node(child)
			if n.Kind == core.KindModel && n.Layer != core.LayerStaging {
				consumers = append(consumers, child)
			}
		}
		if len(consumers) > 1 {
			f := ctx.Finding(source,
				"Source '%s' is referenced by %d non-staging models (%s); consider creating a staging model",
				source.Name, len(consumers), strings.Join(consumers, ", "))
			f.Related = consumers
			findings = append(findings, f)
		}
	}

	return findings, nil
}
