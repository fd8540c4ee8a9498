package lint

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"golang.org/x/sync/errgroup"
)

// EvaluationFailureMessage prefixes the finding reported for a failing rule.
const EvaluationFailureMessage = "rule evaluation failed"

// Engine runs registered rules against a graph.
type Engine struct {
	config   *Config
	registry *Registry
	logger   *slog.Logger
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry runs rules from reg instead of the default registry.
func WithRegistry(reg *Registry) Option {
	return func(e *Engine) { e.registry = reg }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithWorkers bounds the number of rules evaluated at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates an engine with optional configuration.
func NewEngine(config *Config, opts ...Option) *Engine {
	if config == nil {
		config = NewConfig()
	}
	e := &Engine{
		config:   config,
		registry: defaultRegistry,
		logger:   slog.New(slog.DiscardHandler),
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the enabled rules in ID order with their resolved configuration.
func (e *Engine) Rules() ([]RuleDef, map[string]RuleConfig, error) {
	resolved, err := e.config.Resolve(e.registry)
	var rules []RuleDef
	for _, rule := range e.registry.GetAll() {
		if resolved[rule.ID].IsDisabled() {
			continue
		}
		rules = append(rules, rule)
	}
	return rules, resolved, err
}

// Run evaluates every enabled rule and returns the merged, sorted findings.
//
// A rule that returns an error or panics produces one error finding carrying
// its rule ID; the other rules still run. Run only fails when ctx is already
// done or the configuration names unknown rules.
func (e *Engine) Run(ctx context.Context, g *graph.Graph) ([]core.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rules, resolved, err := e.Rules()
	if err != nil {
		return nil, err
	}

	index := NewIndex(g)
	results := make([][]core.Finding, len(rules))

	var eg errgroup.Group
	eg.SetLimit(e.workers)
	for i, rule := range rules {
		rc := resolved[rule.ID]
		rctx := &Context{
			ctx:      ctx,
			graph:    g,
			rule:     rule,
			params:   effectiveParams(rule, rc),
			severity: rule.Severity,
			index:    index,
		}
		if rc.Severity != nil {
			rctx.severity = *rc.Severity
		}

		eg.Go(func() error {
			results[i] = e.evaluate(rctx, rc)
			return nil
		})
	}
	_ = eg.Wait()

	var findings []core.Finding
	for _, fs := range results {
		findings = append(findings, fs...)
	}
	core.SortFindings(findings)

	e.logger.Debug("rules evaluated",
		slog.Int("rules", len(rules)),
		slog.Int("findings", len(findings)))
	return findings, nil
}

// evaluate runs one rule, converting errors and panics into a single finding.
func (e *Engine) evaluate(rctx *Context, rc RuleConfig) (findings []core.Finding) {
	rule := rctx.rule
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule panicked",
				slog.String("rule", rule.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			findings = []core.Finding{failureFinding(rule, fmt.Errorf("panic: %v", r))}
		}
	}()

	found, err := rule.Check(rctx)
	if err != nil {
		e.logger.Warn("rule failed", slog.String("rule", rule.ID), slog.Any("error", err))
		return []core.Finding{failureFinding(rule, err)}
	}

	for i := range found {
		found[i].RuleID = rule.ID
		if rc.Severity != nil {
			found[i].Severity = *rc.Severity
		}
	}
	return found
}

func failureFinding(rule RuleDef, err error) core.Finding {
	return core.Finding{
		RuleID:           rule.ID,
		Severity:         core.SeverityError,
		Message:          fmt.Sprintf("%s: %v", EvaluationFailureMessage, err),
		DocumentationURL: BuildDocURL(rule.ID),
	}
}
