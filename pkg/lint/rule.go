package lint

import (
	"github.com/leapstack-labs/leaplint/pkg/core"
)

// Check is the function signature for rule checks.
// A returned error is reported as a single error finding for the rule.
type Check func(ctx *Context) ([]core.Finding, error)

// RuleDef is a rule definition.
type RuleDef struct {
	ID          string        // Unique identifier, e.g., "PM01"
	Name        string        // Human-readable name, e.g., "root-models"
	Group       string        // Rule group: "modeling", "structure", "lineage", ...
	Category    string        // Reporting category; defaults to Group
	Description string        // Human-readable description
	Severity    core.Severity // Default severity
	Check       Check         // The check function

	// Kinds restricts Context.Nodes to these node kinds; empty means all
	Kinds []core.NodeKind
	// ConfigKeys lists the parameters this rule accepts
	ConfigKeys []string
	// Defaults are parameter values used when configuration omits them
	Defaults map[string]any
	// Aliases are names other linters use for the same check
	Aliases []string
	// Unsafe rules attach structural edits to their findings
	Unsafe bool

	// Documentation fields
	Rationale string
	Fix       string
}

// Info returns metadata about the rule for documentation and tooling.
func (r RuleDef) Info() core.RuleInfo {
	kinds := make([]string, len(r.Kinds))
	for i, k := range r.Kinds {
		kinds[i] = string(k)
	}
	return core.RuleInfo{
		ID:              r.ID,
		Name:            r.Name,
		Group:           r.Group,
		Category:        r.category(),
		Description:     r.Description,
		DefaultSeverity: r.Severity,
		ConfigKeys:      r.ConfigKeys,
		Kinds:           kinds,
		Aliases:         r.Aliases,
		Unsafe:          r.Unsafe,
		Rationale:       r.Rationale,
		Fix:             r.Fix,
	}
}

func (r RuleDef) category() string {
	if r.Category != "" {
		return r.Category
	}
	return r.Group
}

// Keys returns every name the rule can be configured by: ID, name and aliases.
func (r RuleDef) Keys() []string {
	keys := make([]string, 0, 2+len(r.Aliases))
	keys = append(keys, r.ID)
	if r.Name != "" {
		keys = append(keys, r.Name)
	}
	return append(keys, r.Aliases...)
}
