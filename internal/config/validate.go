package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/leapstack-labs/leaplint/pkg/core"
)

// Output modes accepted by the output setting.
var outputModes = []any{"auto", "text", "markdown", "json"}

// projectEvaluatorCategories are the category tables accepted under [project-evaluator].
var projectEvaluatorCategories = []any{
	"modeling", "testing", "documentation", "structure", "performance", "governance", "lineage",
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Manifest, validation.Required),
		validation.Field(&c.Output, validation.Required, validation.In(outputModes...)),
		validation.Field(&c.LogLevel, validation.By(isLogLevel)),
		validation.Field(&c.ProjectEvaluator, validation.Each(validation.By(isRuleSection))),
		validation.Field(&c.DbtCheckpoint, validation.Each(validation.By(isRuleSection))),
	); err != nil {
		return err
	}
	for category := range c.ProjectEvaluator {
		if err := validation.Validate(category, validation.In(projectEvaluatorCategories...)); err != nil {
			return fmt.Errorf("project-evaluator.%s: %w", category, err)
		}
	}
	if err := c.Lint.Validate(); err != nil {
		return fmt.Errorf("lint: %w", err)
	}
	if err := c.Fix.Validate(); err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	if err := c.State.Validate(); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	return nil
}

// Validate checks the [lint] section.
func (c *LintConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FailOn, validation.By(func(value any) error {
			s, _ := value.(string)
			if s == "" || strings.EqualFold(s, FailOnNever) {
				return nil
			}
			return isSeverity(s)
		})),
		validation.Field(&c.Severity, validation.Each(validation.By(isSeverity))),
		validation.Field(&c.Disabled, validation.Each(validation.Required)),
	)
}

// Validate checks the [fix] section.
func (c *FixConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SafetyMode, validation.In("safe", "unsafe")),
	)
}

// Validate checks the [state] section.
func (c *StateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

func isSeverity(value any) error {
	s, _ := value.(string)
	if _, ok := core.ParseSeverity(s); !ok {
		return fmt.Errorf("unknown severity %q", s)
	}
	return nil
}

func isLogLevel(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := ParseLogLevel(s)
	return err
}

func isRuleSection(value any) error {
	section, ok := value.(RuleSection)
	if !ok {
		return nil
	}
	var errs []error
	for _, key := range sortedKeys(section.Rules) {
		if _, err := decodeRule(key, section.Rules[key]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseLogLevel converts debug, info, warn or error into a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
