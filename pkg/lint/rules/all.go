// Package rules imports every built-in rule group so their init functions
// register them with the default lint registry.
package rules

import (
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules/datatests"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules/docs"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules/governance"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules/lineage"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules/modeling"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules/performance"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules/structure"
)
