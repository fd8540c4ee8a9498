package testutil

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/stretchr/testify/require"
)

// RunRule runs one registered rule against g with params overlaid on its
// defaults and returns its findings sorted.
func RunRule(t testing.TB, id string, g *graph.Graph, params map[string]any) []core.Finding {
	t.Helper()
	rule, ok := lint.GetByID(id)
	require.True(t, ok, "rule %s is not registered", id)

	findings, err := rule.Check(lint.NewContext(context.Background(), g, rule, params))
	require.NoError(t, err)
	core.SortFindings(findings)
	return findings
}

// Targets renders findings as "RULE@target" for compact assertions.
func Targets(findings []core.Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.RuleID+"@"+f.Target())
	}
	return out
}
