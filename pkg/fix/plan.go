package fix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
)

// Candidate is one upstream value proposed for a target.
type Candidate struct {
	Source  core.ColumnRef `json:"source"`
	Text    string         `json:"text,omitempty"`
	DocsRef string         `json:"docs_ref,omitempty"`
	// Kind is set for structural candidates
	Kind core.EditKind `json:"kind,omitempty"`
}

func (c Candidate) String() string {
	if c.Kind.IsStructural() {
		return fmt.Sprintf("%s (%s)", c.Source, c.Kind)
	}
	if c.DocsRef != "" {
		return fmt.Sprintf("%s (docs block %s)", c.Source, c.DocsRef)
	}
	return fmt.Sprintf("%s (%q)", c.Source, c.Text)
}

// Conflict records a target that has two or more distinct candidate values.
type Conflict struct {
	Target core.ColumnRef `json:"target"`
	// DocsBlock is set when the conflict is about a shared block's text
	DocsBlock  string      `json:"docs_block,omitempty"`
	Candidates []Candidate `json:"candidates"`
}

// Sources returns the distinct candidate source nodes, sorted.
func (c Conflict) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, cand := range c.Candidates {
		if !seen[cand.Source.Node] {
			seen[cand.Source.Node] = true
			out = append(out, cand.Source.Node)
		}
	}
	sort.Strings(out)
	return out
}

func (c Conflict) String() string {
	parts := make([]string, len(c.Candidates))
	for i, cand := range c.Candidates {
		parts[i] = cand.String()
	}
	target := c.Target.String()
	if c.DocsBlock != "" {
		target = "docs block " + c.DocsBlock
	}
	return fmt.Sprintf("%s has %d conflicting candidates: %s", target, len(c.Candidates), strings.Join(parts, ", "))
}

// Plan is an ordered set of proposed edits, plus unresolved conflicts.
//
// Documentation edits hold at most one edit per (node, column) key.
// Structural edits are kept on a separate track: whether they may be applied
// depends on the safety mode, so they never displace a documentation edit at
// planning time. The applier decides how the two tracks interact.
type Plan struct {
	edits      []core.Edit
	index      map[core.ColumnRef]int
	dropped    map[core.ColumnRef]bool
	structural []core.Edit
	conflicts  []Conflict
}

// NewPlan creates an empty plan.
func NewPlan() *Plan {
	return &Plan{
		index:   make(map[core.ColumnRef]int),
		dropped: make(map[core.ColumnRef]bool),
	}
}

// Propose adds an edit. An identical edit for the same key is ignored. A
// different documentation edit for a key that already has one is never an
// overwrite: both are withdrawn and recorded as a conflict. Structural edits
// go to their own track. Propose reports whether the edit is in the plan
// afterwards.
func (p *Plan) Propose(e core.Edit) bool {
	if e.Kind.IsStructural() {
		for _, s := range p.structural {
			if sameEffect(s, e) {
				return true
			}
		}
		p.structural = append(p.structural, e)
		return true
	}

	key := e.Key()
	if p.dropped[key] {
		p.addCandidate(key, e)
		return false
	}
	i, exists := p.index[key]
	if !exists {
		p.index[key] = len(p.edits)
		p.edits = append(p.edits, e)
		return true
	}
	if sameEffect(p.edits[i], e) {
		return true
	}

	p.dropped[key] = true
	p.conflicts = append(p.conflicts, Conflict{
		Target:     key,
		Candidates: []Candidate{candidateOf(p.edits[i]), candidateOf(e)},
	})
	return false
}

func (p *Plan) addCandidate(key core.ColumnRef, e core.Edit) {
	for i := range p.conflicts {
		if p.conflicts[i].Target == key && p.conflicts[i].DocsBlock == "" {
			p.conflicts[i].Candidates = append(p.conflicts[i].Candidates, candidateOf(e))
			return
		}
	}
}

// AddConflict records a conflict found while planning. The key becomes
// unavailable for edits.
func (p *Plan) AddConflict(c Conflict) {
	if c.DocsBlock == "" {
		p.dropped[c.Target] = true
	}
	p.conflicts = append(p.conflicts, c)
}

// Withdraw removes the live edit for a key without recording a conflict.
// Later proposals for the key are ignored.
func (p *Plan) Withdraw(key core.ColumnRef) {
	if _, ok := p.index[key]; ok {
		p.dropped[key] = true
	}
}

// Edit returns the live documentation edit for a key.
func (p *Plan) Edit(key core.ColumnRef) (core.Edit, bool) {
	if p.dropped[key] {
		return core.Edit{}, false
	}
	i, ok := p.index[key]
	if !ok {
		return core.Edit{}, false
	}
	return p.edits[i], true
}

// Edits returns live documentation edits in proposal order, followed by
// structural edits in proposal order.
func (p *Plan) Edits() []core.Edit {
	out := make([]core.Edit, 0, len(p.edits)+len(p.structural))
	for _, e := range p.edits {
		if !p.dropped[e.Key()] {
			out = append(out, e)
		}
	}
	return append(out, p.structural...)
}

// Structural returns the structural edits in proposal order.
func (p *Plan) Structural() []core.Edit {
	return p.structural
}

// Conflicts returns the recorded conflicts in the order they were found.
func (p *Plan) Conflicts() []Conflict {
	return p.conflicts
}

// Len returns the number of live edits.
func (p *Plan) Len() int {
	return len(p.Edits())
}

// Merge appends another plan's edits and conflicts, in order.
func (p *Plan) Merge(other *Plan) {
	if other == nil {
		return
	}
	for _, c := range other.conflicts {
		p.AddConflict(c)
	}
	for _, e := range other.Edits() {
		p.Propose(e)
	}
}

func sameEffect(a, b core.Edit) bool {
	return a.Kind == b.Kind && a.Target == b.Target && a.Text == b.Text &&
		a.DocsRef == b.DocsRef && a.DocsBlock == b.DocsBlock
}

func candidateOf(e core.Edit) Candidate {
	c := Candidate{Text: e.Text, DocsRef: e.DocsRef}
	if e.Kind.IsStructural() {
		c.Kind = e.Kind
	}
	if e.Provenance != nil {
		c.Source = *e.Provenance
	} else {
		c.Source = e.Target
	}
	return c
}
