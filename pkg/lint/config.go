package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
)

// RuleConfig is the configuration of a single rule.
// Nil fields leave the rule's defaults in place.
type RuleConfig struct {
	Enabled  *bool
	Severity *core.Severity
	Params   map[string]any
}

// Config controls which rules are enabled, their severity and their parameters.
// Keys may be rule IDs, names or aliases; they are resolved against a registry
// when the engine runs.
type Config struct {
	Rules map[string]RuleConfig
}

// NewConfig creates a default configuration with all rules enabled.
func NewConfig() *Config {
	return &Config{Rules: make(map[string]RuleConfig)}
}

// Disable disables a rule.
func (c *Config) Disable(key string) *Config {
	rc := c.Rules[key]
	disabled := false
	rc.Enabled = &disabled
	c.Rules[key] = rc
	return c
}

// Enable enables a rule explicitly.
func (c *Config) Enable(key string) *Config {
	rc := c.Rules[key]
	enabled := true
	rc.Enabled = &enabled
	c.Rules[key] = rc
	return c
}

// SetSeverity overrides the severity for a rule.
func (c *Config) SetSeverity(key string, severity core.Severity) *Config {
	rc := c.Rules[key]
	rc.Severity = &severity
	c.Rules[key] = rc
	return c
}

// SetParams merges parameters for a rule.
func (c *Config) SetParams(key string, params map[string]any) *Config {
	rc := c.Rules[key]
	if rc.Params == nil {
		rc.Params = make(map[string]any, len(params))
	}
	for k, v := range params {
		rc.Params[k] = v
	}
	c.Rules[key] = rc
	return c
}

// Resolve folds configuration keyed by names and aliases onto rule IDs.
// Entries keyed by the ID win over aliases; aliases are applied in sorted order.
// Unknown keys are returned as an error, and the known ones are still resolved.
func (c *Config) Resolve(reg *Registry) (map[string]RuleConfig, error) {
	resolved := make(map[string]RuleConfig)
	if c == nil {
		return resolved, nil
	}

	keys := make([]string, 0, len(c.Rules))
	for k := range c.Rules {
		keys = append(keys, k)
	}
	// IDs last so they override aliases
	sort.Slice(keys, func(i, j int) bool {
		_, iIsID := reg.GetByID(keys[i])
		_, jIsID := reg.GetByID(keys[j])
		if iIsID != jIsID {
			return !iIsID
		}
		return keys[i] < keys[j]
	})

	var unknown []string
	for _, key := range keys {
		id, ok := reg.Resolve(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		resolved[id] = merge(resolved[id], c.Rules[key])
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return resolved, fmt.Errorf("%w: %s", ErrUnknownRule, strings.Join(unknown, ", "))
	}
	return resolved, nil
}

func merge(base, over RuleConfig) RuleConfig {
	if over.Enabled != nil {
		base.Enabled = over.Enabled
	}
	if over.Severity != nil {
		base.Severity = over.Severity
	}
	if len(over.Params) > 0 {
		params := make(map[string]any, len(base.Params)+len(over.Params))
		for k, v := range base.Params {
			params[k] = v
		}
		for k, v := range over.Params {
			params[k] = v
		}
		base.Params = params
	}
	return base
}

// IsDisabled returns true if the rule should be skipped.
func (rc RuleConfig) IsDisabled() bool {
	return rc.Enabled != nil && !*rc.Enabled
}

// effectiveParams overlays configured params on the rule defaults.
func effectiveParams(rule RuleDef, rc RuleConfig) map[string]any {
	params := make(map[string]any, len(rule.Defaults)+len(rc.Params))
	for k, v := range rule.Defaults {
		params[k] = v
	}
	for k, v := range rc.Params {
		params[k] = v
	}
	return params
}
