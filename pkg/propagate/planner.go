package propagate

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"golang.org/x/sync/errgroup"
)

// Planner computes fix plans for one graph.
type Planner struct {
	graph   *graph.Graph
	policy  Policy
	logger  *slog.Logger
	workers int
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the planner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithWorkers bounds how many groups are planned concurrently.
func WithWorkers(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewPlanner creates a planner.
func NewPlanner(g *graph.Graph, policy Policy, opts ...Option) *Planner {
	p := &Planner{
		graph:   g,
		policy:  policy,
		logger:  slog.New(slog.DiscardHandler),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan is shorthand for NewPlanner(g, policy).Plan(ctx).
func Plan(ctx context.Context, g *graph.Graph, policy Policy) (*fix.Plan, error) {
	return NewPlanner(g, policy).Plan(ctx)
}

// Plan computes the fix plan.
//
// Nodes that can influence each other through edges, lineage or a shared docs
// block form one group. Groups are planned concurrently and merged in
// topological order, so the result does not depend on scheduling.
func (p *Planner) Plan(ctx context.Context) (*fix.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.policy.FillFromUpstream {
		return fix.NewPlan(), nil
	}

	groups := p.groups()
	results := make([]*groupPlan, len(groups))

	eg := new(errgroup.Group)
	eg.SetLimit(p.workers)
	for i, members := range groups {
		eg.Go(func() error {
			results[i] = p.planGroup(members)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	plan := p.merge(results)
	p.logger.Debug("propagation planned",
		"groups", len(groups),
		"edits", plan.Len(),
		"conflicts", len(plan.Conflicts()),
	)
	return plan, nil
}

// merge combines group results ordered by target rank then column position.
func (p *Planner) merge(results []*groupPlan) *fix.Plan {
	var edits []core.Edit
	var conflicts []fix.Conflict
	for _, r := range results {
		edits = append(edits, r.edits...)
		conflicts = append(conflicts, r.conflicts...)
	}

	sort.SliceStable(edits, func(i, j int) bool {
		return p.before(edits[i].Target, edits[j].Target)
	})
	sort.SliceStable(conflicts, func(i, j int) bool {
		return p.before(conflicts[i].Target, conflicts[j].Target)
	})

	plan := fix.NewPlan()
	for _, c := range conflicts {
		plan.AddConflict(c)
	}
	for _, e := range edits {
		plan.Propose(e)
	}
	return plan
}

func (p *Planner) before(a, b core.ColumnRef) bool {
	ra, rb := p.graph.Rank(a.Node), p.graph.Rank(b.Node)
	if ra != rb {
		return ra < rb
	}
	if a.Node != b.Node {
		return a.Node < b.Node
	}
	na, _ := p.graph.Node(a.Node)
	return na.ColumnIndex(a.Column) < na.ColumnIndex(b.Column)
}
