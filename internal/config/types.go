// Package config loads leaplint configuration.
//
// Values are layered with koanf: built-in defaults, then the project config
// file (leaplint.toml or leaplint.yaml), then a .env file, then LEAPLINT_
// environment variables, then command-line flags.
package config

import (
	"github.com/leapstack-labs/leaplint/pkg/propagate"
)

// Config holds all leaplint configuration.
type Config struct {
	// Manifest is the path of the project manifest document
	Manifest string `koanf:"manifest"`
	LogLevel string `koanf:"log_level"`
	// Output is the render mode: auto, text, markdown or json
	Output  string `koanf:"output"`
	Verbose bool   `koanf:"verbose"`

	Lint        LintConfig       `koanf:"lint"`
	Propagation propagate.Policy `koanf:"propagation"`
	Fix         FixConfig        `koanf:"fix"`
	State       StateConfig      `koanf:"state"`
	Metrics     MetricsConfig    `koanf:"metrics"`

	// Rule tables keyed the way dbt project-evaluator and dbt-checkpoint
	// users are used to: section -> category -> rules.
	ProjectEvaluator map[string]RuleSection `koanf:"project-evaluator"`
	DbtCheckpoint    map[string]RuleSection `koanf:"dbt-checkpoint"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// FileUsed is the config file that was loaded, if any.
	FileUsed string `koanf:"-"`
}

// LintConfig holds the [lint] section.
type LintConfig struct {
	// Disabled contains rule IDs, names or aliases to disable
	Disabled []string `koanf:"disabled"`
	// Severity maps a rule key to a severity override
	Severity map[string]string `koanf:"severity"`
	// Rules holds rule parameters keyed by rule
	Rules map[string]map[string]any `koanf:"rules"`
	// FailOn is the lowest severity that fails a check run, or "never"
	FailOn string `koanf:"fail_on"`
}

// RuleSection is one category table of a legacy rule section.
type RuleSection struct {
	// Rules maps a rule key to either a bool or a table of
	// enabled, severity, params and flat parameters.
	Rules map[string]any `koanf:"rules"`
}

// FixConfig holds the [fix] section.
type FixConfig struct {
	SafetyMode string `koanf:"safety_mode"`
}

// StateConfig holds the [state] section.
type StateConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// MetricsConfig holds the [metrics] section.
type MetricsConfig struct {
	// Textfile is where run metrics are written in the Prometheus text format.
	// Empty disables the export.
	Textfile string `koanf:"textfile"`
}

// Config file names in lookup order.
const (
	FileNameTOML = "leaplint.toml"
	FileNameYAML = "leaplint.yaml"
	FileNameYML  = "leaplint.yml"
)

// Default configuration values.
const (
	DefaultManifest  = "manifest.yaml"
	DefaultStateFile = ".leaplint/history.db"
	DefaultOutput    = "auto" // TTY=text, otherwise markdown
	DefaultLogLevel  = "warn"
	DefaultFailOn    = "error"
	FailOnNever      = "never"
	EnvPrefix        = "LEAPLINT_"
)

// configFileNames lists the names searched for in a project directory.
var configFileNames = []string{FileNameTOML, FileNameYAML, FileNameYML}

// defaults returns the flattened default values loaded first.
func defaults() map[string]any {
	policy := propagate.DefaultPolicy()
	return map[string]any{
		"manifest":                             DefaultManifest,
		"log_level":                            DefaultLogLevel,
		"output":                               DefaultOutput,
		"verbose":                              false,
		"lint.fail_on":                         DefaultFailOn,
		"propagation.fill_from_upstream":       policy.FillFromUpstream,
		"propagation.propagate_docs_blocks":    policy.PropagateDocsBlocks,
		"propagation.force_inherit":            policy.ForceInherit,
		"propagation.allow_transformed_source": policy.AllowTransformedSource,
		"fix.safety_mode":                      "safe",
		"state.enabled":                        false,
		"state.path":                           DefaultStateFile,
		"metrics.textfile":                     "",
	}
}
