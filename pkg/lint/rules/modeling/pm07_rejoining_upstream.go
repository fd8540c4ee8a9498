package modeling

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PM07",
		Name:        "rejoining-upstream",
		Group:       "modeling",
		Description: "Two parents of a model share an upstream concept within a bounded depth",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		ConfigKeys:  []string{"max_depth"},
		Defaults:    map[string]any{"max_depth": 3},
		Aliases:     []string{"fct_rejoining_of_upstream_concepts"},
		Check:       checkRejoiningUpstream,
		Rationale: `When two parents of a model both derive from the same ancestor, the same concept reaches
the model along two paths. The classic case is A→B→C with A→C, where B can usually be inlined into C.`,
		Fix: "Inline the intermediate model into its consumer, or reference only one of the paths.",
	})
}

// checkRejoiningUpstream detects rejoining of upstream concepts.
//
// For every pair of distinct parents (p, q) of a model, the reach of each
// parent is the parent itself plus its ancestors within max_depth. A non-empty
// intersection means the model sees the shared ancestor twice:
//
//	A → B → C
//	A -----→ C
func checkRejoiningUpstream(ctx *lint.Context) ([]core.Finding, error) {
	var findings []core.Finding
	g := ctx.Graph()
	maxDepth := lint.GetIntOption(ctx.Params(), "max_depth", 3)
	if maxDepth <= 0 {
		maxDepth = 3
	}

	for _, model := range ctx.Nodes() {
		parents := g.ParentsOf(model.Name)
		if len(parents) < 2 {
			continue
		}

		reach := make([]map[string]bool, len(parents))
		for i, p := range parents {
			reach[i] = map[string]bool{p: true}
			for _, a := range ctx.Index().AncestorsWithin(p, maxDepth) {
				reach[i][a] = true
			}
		}

		for i := 0; i < len(parents); i++ {
			for j := i + 1; j < len(parents); j++ {
				shared := intersect(reach[i], reach[j])
				if len(shared) == 0 {
					continue
				}
				f := ctx.Finding(model,
					"Model '%s' rejoins upstream '%s' through parents '%s' and '%s'",
					model.Name, strings.Join(shared, ", "), parents[i], parents[j])
				f.Related = append([]string{parents[i], parents[j]}, shared...)
				findings = append(findings, f)
			}
		}
	}

	return findings, nil
}

// intersect returns the sorted keys present in both sets.
func intersect(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if b[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
