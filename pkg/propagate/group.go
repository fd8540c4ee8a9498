package propagate

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/fix"
)

// groups partitions nodes into independently plannable sets, each in
// topological order. Graph components, which already follow lineage, are
// joined when a shared docs block crosses them.
func (p *Planner) groups() [][]string {
	uf := newUnionFind()
	for _, comp := range p.graph.Components() {
		for _, name := range comp {
			uf.union(comp[0], name)
		}
	}
	for _, block := range p.graph.DocsBlocks() {
		users := p.graph.DocsBlockUsers(block)
		for _, u := range users {
			uf.union(users[0].Node, u.Node)
		}
	}

	byRoot := make(map[string]int)
	var groups [][]string
	for _, name := range p.graph.TopologicalOrder() {
		root := uf.find(name)
		i, ok := byRoot[root]
		if !ok {
			i = len(groups)
			byRoot[root] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], name)
	}
	return groups
}

// value is the documentation a column has, or will have once the plan is applied.
type value struct {
	text    string
	docsRef string
}

// blockPlan tracks the single text edit allowed for a docs block.
type blockPlan struct {
	text       string
	key        core.ColumnRef
	candidates []fix.Candidate
	conflicted bool
}

// groupPlan is the planning state and output of one group.
type groupPlan struct {
	p         *Planner
	planned   map[core.ColumnRef]value
	blocks    map[string]*blockPlan
	blockSeq  []string
	edits     []core.Edit
	withdrawn map[core.ColumnRef]bool
	conflicts []fix.Conflict
}

func (p *Planner) planGroup(members []string) *groupPlan {
	gp := &groupPlan{
		p:         p,
		planned:   make(map[core.ColumnRef]value),
		blocks:    make(map[string]*blockPlan),
		withdrawn: make(map[core.ColumnRef]bool),
	}
	for _, name := range members {
		n, _ := p.graph.Node(name)
		for _, col := range n.Columns {
			gp.planColumn(n, col)
		}
	}
	gp.finish()
	return gp
}

// current returns the effective documentation of a column, reading planned
// values before the graph.
func (gp *groupPlan) current(ref core.ColumnRef) value {
	if v, ok := gp.planned[ref]; ok {
		return v
	}
	n, ok := gp.p.graph.Node(ref.Node)
	if !ok {
		return value{}
	}
	col, ok := n.Column(ref.Column)
	if !ok {
		return value{}
	}
	if col.DocsRef != "" {
		if b, ok := gp.blocks[col.DocsRef]; ok && !b.conflicted {
			return value{text: b.text, docsRef: col.DocsRef}
		}
		if b, ok := gp.p.graph.DocsBlock(col.DocsRef); ok {
			return value{text: strings.TrimSpace(b.Text), docsRef: col.DocsRef}
		}
	}
	return value{text: strings.TrimSpace(col.Description)}
}

func (gp *groupPlan) candidates(col core.Column) []fix.Candidate {
	var out []fix.Candidate
	for _, l := range col.Lineage {
		if !gp.p.policy.follows(l.Relation) {
			continue
		}
		src := core.ColumnRef{Node: l.Node, Column: l.Column}
		up := gp.current(src)
		if up.text == "" {
			continue
		}
		c := fix.Candidate{Source: src, Text: up.text}
		if gp.p.policy.PropagateDocsBlocks {
			c.DocsRef = up.docsRef
		}
		out = append(out, c)
	}
	return out
}

// resolve collapses candidates into a single value. Candidates agree when
// they render the same text and name at most one docs block.
func resolve(cands []fix.Candidate) (value, *fix.Candidate, bool) {
	texts := make(map[string]bool)
	refs := make(map[string]bool)
	var winner *fix.Candidate
	for i := range cands {
		texts[cands[i].Text] = true
		if cands[i].DocsRef != "" {
			refs[cands[i].DocsRef] = true
			if winner == nil || winner.DocsRef == "" {
				winner = &cands[i]
			}
		}
	}
	if len(texts) > 1 || len(refs) > 1 {
		return value{}, nil, false
	}
	if winner == nil {
		winner = &cands[0]
	}
	return value{text: winner.Text, docsRef: winner.DocsRef}, winner, true
}

func (gp *groupPlan) planColumn(n *core.Node, col core.Column) {
	ref := core.ColumnRef{Node: n.Name, Column: col.Name}
	cur := gp.current(ref)

	// Every user of a block filled in this run gets a say in its text.
	_, filling := gp.blocks[col.DocsRef]
	filling = filling && col.DocsRef != ""
	if cur.text != "" && !filling && !gp.p.policy.ForceInherit {
		return
	}

	cands := gp.candidates(col)
	if len(cands) == 0 {
		return
	}
	v, winner, ok := resolve(cands)
	if !ok {
		gp.p.logger.Debug("conflicting upstream documentation", "column", ref.String(), "candidates", len(cands))
		gp.conflicts = append(gp.conflicts, fix.Conflict{Target: ref, Candidates: cands})
		return
	}
	provenance := winner.Source

	// A reference to an empty block is fixed by filling the block.
	if filling || (col.DocsRef != "" && cur.text == "") {
		if _, exists := gp.p.graph.DocsBlock(col.DocsRef); exists {
			gp.planBlock(ref, col.DocsRef, v.text, *winner)
			return
		}
	}

	// Forcing an equal literal would only trade a docs reference for a copy.
	if v.docsRef == "" && v.text == cur.text {
		return
	}

	if v.docsRef != "" {
		if col.DocsRef == v.docsRef {
			return
		}
		gp.propose(ref, core.Edit{Kind: core.EditSetDocsRef, DocsRef: v.docsRef, Provenance: &provenance}, v)
		return
	}

	if col.DocsRef == "" && strings.TrimSpace(col.Description) == v.text {
		return
	}
	gp.propose(ref, core.Edit{Kind: core.EditSetDescription, Text: v.text, Provenance: &provenance}, v)
}

func (gp *groupPlan) propose(ref core.ColumnRef, e core.Edit, v value) {
	e.Target = ref
	gp.edits = append(gp.edits, e)
	gp.planned[ref] = v
}

func (gp *groupPlan) planBlock(ref core.ColumnRef, block, text string, winner fix.Candidate) {
	bp, seen := gp.blocks[block]
	if !seen {
		bp = &blockPlan{text: text, key: ref}
		gp.blocks[block] = bp
		gp.blockSeq = append(gp.blockSeq, block)
		provenance := winner.Source
		gp.edits = append(gp.edits, core.Edit{
			Kind:       core.EditSetDocsBlock,
			Target:     ref,
			DocsBlock:  block,
			Text:       text,
			Provenance: &provenance,
		})
	}
	bp.candidates = append(bp.candidates, winner)
	if bp.text != text && !bp.conflicted {
		bp.conflicted = true
		gp.withdrawn[bp.key] = true
	}
}

// finish drops withdrawn block edits and records their conflicts.
func (gp *groupPlan) finish() {
	if len(gp.withdrawn) > 0 {
		kept := gp.edits[:0]
		for _, e := range gp.edits {
			if e.Kind == core.EditSetDocsBlock && gp.withdrawn[e.Target] {
				continue
			}
			kept = append(kept, e)
		}
		gp.edits = kept
	}
	for _, name := range gp.blockSeq {
		bp := gp.blocks[name]
		if bp.conflicted {
			gp.conflicts = append(gp.conflicts, fix.Conflict{
				Target:     bp.key,
				DocsBlock:  name,
				Candidates: bp.candidates,
			})
		}
	}
}

type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union keeps the lexically smaller root so roots are stable.
func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
