package lineage

import (
	"fmt"
	"testing"

	"github.com/leapstack-labs/leaplint/internal/testutil"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPL01_PassthroughBloat(t *testing.T) {
	upstream := make([]core.Column, 0, 25)
	passthrough := make([]core.Column, 0, 25)
	transformed := make([]core.Column, 0, 25)
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("col_%d", i)
		upstream = append(upstream, testutil.Col(name, ""))
		passthrough = append(passthrough, testutil.Col(name, "", testutil.From("stg_users", name)))
		transformed = append(transformed, testutil.Col(name, "", testutil.Transformed("stg_users", name)))
	}

	g := testutil.NewProject().
		Model("stg_users", core.LayerStaging, nil, upstream...).
		Model("dim_users", core.LayerMarts, []string{"stg_users"}, passthrough...).
		Model("fct_users", core.LayerMarts, []string{"stg_users"}, transformed...).
		Build(t)

	assert.Equal(t, []string{"PL01@dim_users"}, testutil.Targets(testutil.RunRule(t, "PL01", g, nil)))
	assert.Empty(t, testutil.RunRule(t, "PL01", g, map[string]any{"threshold": 30}))
}

func TestPL02_UnusedColumns(t *testing.T) {
	g := testutil.NewProject().
		Model("stg_orders", core.LayerStaging, nil,
			testutil.Col("id", ""),
			testutil.Col("legacy_flag", ""),
		).
		Model("orders", core.LayerMarts, []string{"stg_orders"},
			testutil.Col("order_id", "", testutil.Renamed("stg_orders", "id")),
		).
		// no lineage from this child, so the parent is not judged through it
		Model("stg_untracked", core.LayerStaging, nil, testutil.Col("x", "")).
		Model("report", core.LayerMarts, []string{"stg_untracked"}, testutil.Col("y", "")).
		Build(t)

	findings := testutil.RunRule(t, "PL02", g, nil)
	require.Equal(t, []string{"PL02@stg_orders.legacy_flag"}, testutil.Targets(findings))

	f := findings[0]
	assert.True(t, f.Fixable)
	require.NotNil(t, f.Proposed)
	assert.Equal(t, core.EditRemoveColumn, f.Proposed.Kind)
	assert.Equal(t, core.ColumnRef{Node: "stg_orders", Column: "legacy_flag"}, f.Proposed.Target)
}
