package performance

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "PF01",
		Name:        "chained-views",
		Group:       "performance",
		Description: "Chain of view materializations is longer than the threshold",
		Severity:    core.SeverityWarning,
		Kinds:       []core.NodeKind{core.KindModel},
		ConfigKeys:  []string{"max_chain"},
		Defaults:    map[string]any{"max_chain": 4},
		Aliases:     []string{"fct_chained_views_dependencies"},
		Check:       checkChainedViews,
		Rationale:   "Every query against the last view re-executes the whole chain.",
		Fix:         "Materialize a model in the middle of the chain as a table or incremental model.",
	})
}

// checkChainedViews flags the last view of every chain of consecutive views
// longer than max_chain. The chain is reported from its first view.
func checkChainedViews(ctx *lint.Context) ([]core.Finding, error) {
	g := ctx.Graph()
	maxChain := lint.GetIntOption(ctx.Params(), "max_chain", 4)

	// length of the longest run of views ending at each node
	chain := make(map[string]int)
	for _, name := range g.TopologicalOrder() {
		n, _ := g.Node(name)
		if !isView(n) {
			continue
		}
		longest := 0
		for _, p := range g.ParentsOf(name) {
			longest = max(longest, chain[p])
		}
		chain[name] = longest + 1
	}

	var findings []core.Finding
	for _, n := range ctx.Nodes() {
		if chain[n.Name] <= maxChain || continuesChain(ctx, n.Name) {
			continue
		}
		path := chainPath(ctx, chain, n.Name)
		f := ctx.Finding(n, "View chain of length %d ends at '%s' (threshold: %d): %s",
			chain[n.Name], n.Name, maxChain, strings.Join(path, " -> "))
		f.Related = path[:len(path)-1]
		findings = append(findings, f)
	}

	return findings, nil
}

func continuesChain(ctx *lint.Context, name string) bool {
	for _, c := range ctx.Graph().ChildrenOf(name) {
		if n, _ := ctx.Graph().Node(c); isView(n) {
			return true
		}
	}
	return false
}

// chainPath walks back along parents that realize the longest chain,
// preferring earlier declared parents.
func chainPath(ctx *lint.Context, chain map[string]int, end string) []string {
	path := []string{end}
	for cur := end; chain[cur] > 1; {
		for _, p := range ctx.Graph().ParentsOf(cur) {
			if chain[p] == chain[cur]-1 {
				cur = p
				break
			}
		}
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path
}
