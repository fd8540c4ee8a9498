// Package runner executes one leaplint run: build the graph, evaluate the
// rules and, for fix runs, plan and apply documentation edits. It owns the
// side effects around the core (logging, metrics, run history); the core
// packages stay pure.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leaplint/internal/metrics"
	"github.com/leapstack-labs/leaplint/internal/state"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	_ "github.com/leapstack-labs/leaplint/pkg/lint/rules" // built-in rules
	"github.com/leapstack-labs/leaplint/pkg/propagate"
)

// Commands recorded in run history.
const (
	CommandCheck = "check"
	CommandFix   = "fix"
)

// History records runs. *state.SQLiteStore implements it.
type History interface {
	CreateRun(ctx context.Context, command, manifest string) (*state.Run, error)
	RecordFindings(ctx context.Context, runID string, findings []core.Finding) error
	CompleteRun(ctx context.Context, id string, result state.RunResult) error
}

// Options configures what a run does.
type Options struct {
	Lint   *lint.Config
	Policy propagate.Policy
	Safety fix.SafetyMode
	// FailOn is the lowest severity that fails a check run; nil never fails on findings
	FailOn *core.Severity
	// Workers bounds rule and planner concurrency; 0 means GOMAXPROCS
	Workers  int
	Registry *lint.Registry
}

// Runner executes check and fix runs.
type Runner struct {
	opts    Options
	logger  *slog.Logger
	history History
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHistory records every run in h.
func WithHistory(h History) Option {
	return func(r *Runner) { r.history = h }
}

// WithMetrics observes every run into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a runner.
func New(opts Options, options ...Option) *Runner {
	if opts.Safety == "" {
		opts.Safety = fix.SafetySafe
	}
	r := &Runner{
		opts:   opts,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Report is the outcome of a run.
type Report struct {
	Command string
	// Source names the manifest the input came from
	Source string
	// Graph is nil when the input did not form a valid graph
	Graph *graph.Graph
	// GraphErr is the build error, also reported as GR findings
	GraphErr error
	Findings []core.Finding
	// Plan and Fix are set for fix runs on a valid graph
	Plan *fix.Plan
	Fix  *fix.Result
	// Run is the history record, nil without history
	Run      *state.Run
	Duration time.Duration

	failOn *core.Severity
}

// Failed reports whether the run should exit non-zero: the graph was
// invalid, a check finding reached the failure threshold, or a fix run left
// conflicts or skipped structural edits.
func (r *Report) Failed() bool {
	switch {
	case r.GraphErr != nil:
		return true
	case r.Command == CommandFix:
		return r.Fix != nil && r.Fix.HasUnresolved()
	case r.failOn != nil:
		return core.HasBlocking(r.Findings, *r.failOn)
	default:
		return false
	}
}

// Check builds the graph and evaluates the rules.
func (r *Runner) Check(ctx context.Context, in graph.Input, source string) (*Report, error) {
	return r.run(ctx, CommandCheck, in, source, func(rep *Report) error {
		findings, err := r.engine().Run(ctx, rep.Graph)
		if err != nil {
			return err
		}
		rep.Findings = findings
		return nil
	})
}

// Fix builds the graph, evaluates the rules, plans propagation and applies the
// plan in the configured safety mode. Edits proposed by rules are added to the
// plan after propagation; structural ones stay on the plan's structural track,
// so in safe mode they never displace a documentation edit.
func (r *Runner) Fix(ctx context.Context, in graph.Input, source string) (*Report, error) {
	return r.run(ctx, CommandFix, in, source, func(rep *Report) error {
		findings, err := r.engine().Run(ctx, rep.Graph)
		if err != nil {
			return err
		}
		rep.Findings = findings

		planner := propagate.NewPlanner(rep.Graph, r.opts.Policy,
			propagate.WithLogger(r.logger),
			propagate.WithWorkers(r.opts.Workers))
		plan, err := planner.Plan(ctx)
		if err != nil {
			return fmt.Errorf("planning propagation: %w", err)
		}
		for _, f := range findings {
			if f.Proposed != nil {
				plan.Propose(*f.Proposed)
			}
		}
		rep.Plan = plan

		res := fix.NewApplier(rep.Graph).WithLogger(r.logger).Apply(plan, r.opts.Safety)
		rep.Fix = &res

		r.logger.Info("fix planned",
			slog.Int("edits", plan.Len()),
			slog.Int("intents", len(res.Intents)),
			slog.Int("residual", len(res.Findings)),
			slog.String("mode", string(r.opts.Safety)))
		return nil
	})
}

func (r *Runner) engine() *lint.Engine {
	opts := []lint.Option{lint.WithLogger(r.logger), lint.WithWorkers(r.opts.Workers)}
	if r.opts.Registry != nil {
		opts = append(opts, lint.WithRegistry(r.opts.Registry))
	}
	return lint.NewEngine(r.opts.Lint, opts...)
}

// run wraps a command with graph building, history and metrics.
func (r *Runner) run(ctx context.Context, command string, in graph.Input, source string, body func(*Report) error) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := r.now()
	rep := &Report{Command: command, Source: source, failOn: r.opts.FailOn}
	logger := r.logger.With(slog.String("command", command), slog.String("manifest", source))

	if r.history != nil {
		run, err := r.history.CreateRun(ctx, command, source)
		if err != nil {
			logger.Warn("run history unavailable", slog.Any("error", err))
		} else {
			rep.Run = run
		}
	}

	g, err := graph.Build(in)
	switch {
	case err == nil:
		rep.Graph = g
		logger.Debug("graph built", slog.Int("nodes", g.Len()))
		if err := body(rep); err != nil {
			r.complete(ctx, rep, err)
			return nil, err
		}
	case graph.IsGraphError(err):
		logger.Error("invalid project graph", slog.Any("error", err))
		rep.GraphErr = err
		rep.Findings = GraphFindings(err)
	default:
		r.complete(ctx, rep, err)
		return nil, fmt.Errorf("building graph: %w", err)
	}

	rep.Duration = r.now().Sub(start)
	r.observe(rep)
	r.complete(ctx, rep, nil)

	logger.Info("run finished",
		slog.Int("findings", len(rep.Findings)),
		slog.Bool("failed", rep.Failed()),
		slog.Duration("took", rep.Duration))
	return rep, nil
}

func (r *Runner) observe(rep *Report) {
	if r.metrics == nil {
		return
	}
	if rep.Graph != nil {
		r.metrics.ObserveGraph(rep.Graph)
	}
	r.metrics.ObserveFindings(rep.Findings)
	if rep.Fix != nil {
		r.metrics.ObserveFix(*rep.Fix)
	}
	r.metrics.ObserveRun(rep.Command, rep.Duration, r.now())
}

// complete stores the run outcome. History failures are logged, not returned.
func (r *Runner) complete(ctx context.Context, rep *Report, runErr error) {
	if r.history == nil || rep.Run == nil {
		return
	}

	result := state.RunResult{Status: state.RunStatusPassed}
	if rep.Graph != nil {
		result.Nodes = rep.Graph.Len()
	}
	if rep.Fix != nil {
		result.Digest = rep.Fix.Digest()
	}
	switch {
	case runErr != nil:
		result.Status = state.RunStatusError
		result.Error = runErr.Error()
	case rep.GraphErr != nil:
		result.Status = state.RunStatusError
		result.Error = rep.GraphErr.Error()
	case rep.Failed():
		result.Status = state.RunStatusFailed
	}

	findings := rep.Findings
	if rep.Fix != nil {
		findings = append(append([]core.Finding(nil), findings...), rep.Fix.Findings...)
	}
	err := errors.Join(
		r.history.RecordFindings(ctx, rep.Run.ID, findings),
		r.history.CompleteRun(ctx, rep.Run.ID, result),
	)
	if err != nil {
		r.logger.Warn("failed to record run", slog.String("run", rep.Run.ID), slog.Any("error", err))
		return
	}
	rep.Run.Status = result.Status
}
