package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

// Rule IDs for findings derived from graph build errors.
const (
	RuleCycle        = "GR01"
	RuleDangling     = "GR02"
	RuleInvalidInput = "GR03"
)

// GraphFindings converts a graph build error into error findings so it is
// reported through the same stream as rule findings. Errors that are not
// graph errors yield nil.
func GraphFindings(err error) []core.Finding {
	var cycle *graph.CycleError
	var dangling *graph.DanglingReferenceError

	switch {
	case errors.As(err, &cycle):
		node := ""
		if len(cycle.Path) > 0 {
			node = cycle.Path[0]
		}
		return []core.Finding{{
			RuleID:           RuleCycle,
			Severity:         core.SeverityError,
			Node:             node,
			Message:          fmt.Sprintf("reference cycle: %s", strings.Join(cycle.Path, " -> ")),
			Related:          distinct(cycle.Path, node),
			DocumentationURL: lint.BuildDocURL(RuleCycle),
		}}
	case errors.As(err, &dangling):
		findings := make([]core.Finding, 0, len(dangling.References))
		for _, ref := range dangling.References {
			findings = append(findings, core.Finding{
				RuleID:           RuleDangling,
				Severity:         core.SeverityError,
				Node:             ref.Node,
				Column:           ref.Column,
				Message:          danglingMessage(ref),
				DocumentationURL: lint.BuildDocURL(RuleDangling),
			})
		}
		core.SortFindings(findings)
		return findings
	case graph.IsGraphError(err):
		return []core.Finding{{
			RuleID:           RuleInvalidInput,
			Severity:         core.SeverityError,
			Message:          err.Error(),
			DocumentationURL: lint.BuildDocURL(RuleInvalidInput),
		}}
	default:
		return nil
	}
}

func danglingMessage(ref graph.DanglingReference) string {
	switch ref.Kind {
	case graph.RefEdgeParent:
		return fmt.Sprintf("depends on unknown node %q", ref.Target)
	case graph.RefEdgeChild:
		return fmt.Sprintf("referenced by unknown node %q", ref.Target)
	case graph.RefLineage:
		return fmt.Sprintf("lineage references unknown column %s", ref.Target)
	case graph.RefDocsBlock:
		return fmt.Sprintf("references unknown docs block %q", ref.Target)
	default:
		return ref.String()
	}
}

// distinct returns names without duplicates and without skip, in order.
func distinct(names []string, skip string) []string {
	seen := map[string]bool{skip: true}
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
