// Package lint provides the project rule engine.
//
// # Rule Registration
//
// Rules are registered via init() functions when their packages are imported:
//
//	import _ "github.com/leapstack-labs/leaplint/pkg/lint/rules"
//
// Every rule is a RuleDef with a pure Check function over a *Context. Rules
// never see each other's output.
//
// # Rule Groups
//
//   - PM (modeling): DAG structure rules like root models, fanout, layering
//   - PS (structure): naming conventions and directory placement
//   - DC (documentation): descriptions, docs coverage, tags
//   - TS (testing): test coverage and primary key tests
//   - PF (performance): view chains and exposures on views
//   - GV (governance): contracts, public descriptions, source freshness
//   - PL (lineage): column-level lineage analysis
//
// # Configuration
//
// Config enables or disables rules, overrides severities and supplies
// parameters. Keys may be a rule ID, a rule name or any alias the rule
// declares for parity with other linters:
//
//	cfg := lint.NewConfig()
//	cfg.Disable("PM01")
//	cfg.SetSeverity("check-model-has-description", core.SeverityError)
//	cfg.SetParams("PM04", map[string]any{"threshold": 5})
//
// # Running
//
//	engine := lint.NewEngine(cfg, lint.WithLogger(logger))
//	findings, err := engine.Run(ctx, g)
//
// Rules run on a bounded worker pool. Findings are merged and sorted, so the
// output does not depend on scheduling.
package lint
