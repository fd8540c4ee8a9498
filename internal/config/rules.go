package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/lint"
)

// ruleEntry is the table form of a rule setting. Keys other than enabled,
// severity and params are treated as parameters.
type ruleEntry struct {
	Enabled  *bool          `mapstructure:"enabled"`
	Severity string         `mapstructure:"severity"`
	Params   map[string]any `mapstructure:"params"`
	Extra    map[string]any `mapstructure:",remain"`
}

// decodeRule converts one rule setting into a lint.RuleConfig.
// Accepted forms are a bool, a severity string, "off", or a table.
func decodeRule(key string, raw any) (lint.RuleConfig, error) {
	var rc lint.RuleConfig
	switch v := raw.(type) {
	case bool:
		rc.Enabled = &v
		return rc, nil
	case string:
		if strings.EqualFold(v, "off") {
			off := false
			rc.Enabled = &off
			return rc, nil
		}
		sev, ok := core.ParseSeverity(v)
		if !ok {
			return rc, fmt.Errorf("rule %s: unknown severity %q", key, v)
		}
		rc.Severity = &sev
		return rc, nil
	case map[string]any:
		var entry ruleEntry
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &entry,
		})
		if err != nil {
			return rc, err
		}
		if err := dec.Decode(v); err != nil {
			return rc, fmt.Errorf("rule %s: %w", key, err)
		}
		rc.Enabled = entry.Enabled
		if entry.Severity != "" {
			sev, ok := core.ParseSeverity(entry.Severity)
			if !ok {
				return rc, fmt.Errorf("rule %s: unknown severity %q", key, entry.Severity)
			}
			rc.Severity = &sev
		}
		if len(entry.Params)+len(entry.Extra) > 0 {
			rc.Params = make(map[string]any, len(entry.Params)+len(entry.Extra))
			for k, val := range entry.Extra {
				rc.Params[k] = val
			}
			for k, val := range entry.Params {
				rc.Params[k] = val
			}
		}
		return rc, nil
	default:
		return rc, fmt.Errorf("rule %s: expected bool, severity or table, got %T", key, raw)
	}
}

// LintConfig builds the rule engine configuration.
//
// The legacy sections are applied first (project-evaluator, then
// dbt-checkpoint, categories in name order), then [lint] rules, severity and
// disabled, so the [lint] section has the last word. Rule keys are resolved
// to rule IDs by the engine.
func (c *Config) LintConfig() (*lint.Config, error) {
	out := lint.NewConfig()
	var errs []error

	apply := func(key string, rc lint.RuleConfig) {
		if rc.Enabled != nil {
			if *rc.Enabled {
				out.Enable(key)
			} else {
				out.Disable(key)
			}
		}
		if rc.Severity != nil {
			out.SetSeverity(key, *rc.Severity)
		}
		if len(rc.Params) > 0 {
			out.SetParams(key, rc.Params)
		}
	}

	for _, sections := range []map[string]RuleSection{c.ProjectEvaluator, c.DbtCheckpoint} {
		for _, category := range sortedKeys(sections) {
			rules := sections[category].Rules
			for _, key := range sortedKeys(rules) {
				rc, err := decodeRule(key, rules[key])
				if err != nil {
					errs = append(errs, err)
					continue
				}
				apply(key, rc)
			}
		}
	}

	for _, key := range sortedKeys(c.Lint.Rules) {
		out.SetParams(key, c.Lint.Rules[key])
	}
	for _, key := range sortedKeys(c.Lint.Severity) {
		sev, ok := core.ParseSeverity(c.Lint.Severity[key])
		if !ok {
			errs = append(errs, fmt.Errorf("rule %s: unknown severity %q", key, c.Lint.Severity[key]))
			continue
		}
		out.SetSeverity(key, sev)
	}
	for _, key := range c.Lint.Disabled {
		out.Disable(key)
	}

	return out, errors.Join(errs...)
}

// FailOn returns the lowest severity that fails a check run.
// The second result is false when runs never fail on findings.
func (c *Config) FailOn() (core.Severity, bool) {
	if strings.EqualFold(c.Lint.FailOn, FailOnNever) {
		return core.SeverityError, false
	}
	sev, ok := core.ParseSeverity(c.Lint.FailOn)
	if !ok {
		return core.SeverityError, true
	}
	return sev, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
