package datatests

import (
	"testing"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTests(tests ...core.Test) func(*core.Node) {
	return func(n *core.Node) { n.Tests = tests }
}

func TestTS01_TestCoverage(t *testing.T) {
	g := testutil.NewProject().
		Model("a", core.LayerOther, nil).With(withTests(core.Test{Name: "unique_a_id", Kind: core.TestUnique, Column: "id"})).
		Model("b", core.LayerOther, nil).
		Build(t)

	findings := testutil.RunRule(t, "TS01", g, nil)
	require.Len(t, findings, 1)
	assert.Equal(t, []string{"b"}, findings[0].Related)

	assert.Empty(t, testutil.RunRule(t, "TS01", g, map[string]any{"min_coverage": 0.5}))
}

func TestTS02_PrimaryKeyTest(t *testing.T) {
	g := testutil.NewProject().
		Model("pair", core.LayerOther, nil).With(withTests(
		core.Test{Kind: core.TestUnique, Column: "id"},
		core.Test{Kind: core.TestNotNull, Column: "id"},
	)).
		Model("split", core.LayerOther, nil).With(withTests(
		core.Test{Kind: core.TestUnique, Column: "id"},
		core.Test{Kind: core.TestNotNull, Column: "other"},
	)).
		Model("pk", core.LayerOther, nil).With(withTests(core.Test{Kind: core.TestPrimaryKey})).
		Model("none", core.LayerOther, nil).
		Build(t)

	findings := testutil.RunRule(t, "TS02", g, nil)
	assert.Equal(t, []string{"TS02@none", "TS02@split"}, testutil.Targets(findings))
}
