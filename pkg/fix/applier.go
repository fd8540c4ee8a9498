package fix

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
)

// Finding rule ids emitted by the applier.
const (
	RuleConflict      = "FX01"
	RuleUnsafeSkipped = "FX02"
	RuleInvalidEdit   = "FX03"
)

// SafetyMode controls which edit kinds the applier may emit.
type SafetyMode string

// Safety modes.
const (
	// SafetySafe emits documentation edits only.
	SafetySafe SafetyMode = "safe"
	// SafetyUnsafe also emits structural edits.
	SafetyUnsafe SafetyMode = "unsafe"
)

// ParseSafetyMode converts a string to a SafetyMode.
func ParseSafetyMode(s string) (SafetyMode, error) {
	switch m := SafetyMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SafetySafe, SafetyUnsafe:
		return m, nil
	case "":
		return SafetySafe, nil
	default:
		return "", fmt.Errorf("invalid safety mode %q (want safe or unsafe)", s)
	}
}

// Applier validates plans against the graph they were computed from.
type Applier struct {
	graph  *graph.Graph
	logger *slog.Logger
}

// NewApplier creates an applier for g.
func NewApplier(g *graph.Graph) *Applier {
	return &Applier{graph: g, logger: slog.New(slog.DiscardHandler)}
}

// WithLogger sets the logger used for per-edit debug output.
func (a *Applier) WithLogger(logger *slog.Logger) *Applier {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Apply turns a plan into ordered intents.
//
// Conflicts become FX01 findings. Structural edits in safe mode become FX02
// findings carrying the edit, and documentation edits for the same target
// still apply. In unsafe mode a structural edit that overlaps a documentation
// edit is a conflict: both are withheld and reported as FX01. Edits whose
// target does not exist become FX03. Edits that would not change anything
// are dropped.
func (a *Applier) Apply(plan *Plan, mode SafetyMode) Result {
	var res Result
	if plan == nil {
		return res
	}

	for _, c := range plan.Conflicts() {
		res.Findings = append(res.Findings, a.conflictFinding(c))
	}

	withheld := make(map[editKey]bool)
	if mode == SafetyUnsafe {
		for _, c := range a.structuralConflicts(plan) {
			res.Findings = append(res.Findings, a.conflictFinding(c.Conflict))
			for _, k := range c.edits {
				withheld[k] = true
			}
		}
	}

	blocks := make(map[string]*blockEdit)
	var blockOrder []string
	var pending []sortable

	for _, e := range plan.Edits() {
		if withheld[keyOf(e)] {
			continue
		}
		if msg, ok := a.validate(e); !ok {
			res.Findings = append(res.Findings, a.finding(RuleInvalidEdit, core.SeverityError, e.Target, msg))
			continue
		}
		if e.Kind.IsStructural() && mode != SafetyUnsafe {
			f := a.finding(RuleUnsafeSkipped, core.SeverityWarning, e.Target,
				fmt.Sprintf("%s skipped in safe mode; rerun with --unsafe to apply", e.Kind))
			edit := e
			f.Proposed = &edit
			f.Fixable = true
			res.Findings = append(res.Findings, f)
			continue
		}
		if e.Kind != core.EditSetDocsBlock && a.isNoop(e) {
			a.logger.Debug("dropping no-op edit", "kind", e.Kind, "target", e.Target.String())
			continue
		}

		if e.Kind == core.EditSetDocsBlock {
			b, seen := blocks[e.DocsBlock]
			if !seen {
				b = &blockEdit{edit: e}
				blocks[e.DocsBlock] = b
				blockOrder = append(blockOrder, e.DocsBlock)
			}
			b.add(e)
			continue
		}
		pending = append(pending, a.sortable(e))
	}

	for _, name := range blockOrder {
		b := blocks[name]
		if b.conflict() {
			res.Findings = append(res.Findings, a.conflictFinding(Conflict{
				Target:     b.edit.Target,
				DocsBlock:  name,
				Candidates: b.candidates,
			}))
			continue
		}
		if a.isNoop(b.edit) {
			continue
		}
		pending = append(pending, a.sortable(b.edit))
	}

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].less(pending[j]) })
	res.Intents = make([]Intent, 0, len(pending))
	for _, p := range pending {
		res.Intents = append(res.Intents, Intent{Edit: p.edit, FilePath: a.filePath(p.edit)})
	}
	core.SortFindings(res.Findings)

	a.logger.Debug("fix plan applied",
		"mode", string(mode),
		"intents", len(res.Intents),
		"findings", len(res.Findings),
	)
	return res
}

type editKey struct {
	kind   core.EditKind
	target core.ColumnRef
}

func keyOf(e core.Edit) editKey {
	return editKey{kind: e.Kind, target: e.Target}
}

// structuralConflict is a conflict between a structural edit and the
// documentation edits it would invalidate.
type structuralConflict struct {
	Conflict
	edits []editKey
}

// structuralConflicts pairs each valid structural edit with the effective
// documentation edits on the same column, or on any column of a removed node.
// Docs block text edits only touch the block and never overlap.
func (a *Applier) structuralConflicts(plan *Plan) []structuralConflict {
	var docs []core.Edit
	for _, e := range plan.Edits() {
		if e.Kind.IsStructural() || e.Kind == core.EditSetDocsBlock {
			continue
		}
		if _, ok := a.validate(e); !ok || a.isNoop(e) {
			continue
		}
		docs = append(docs, e)
	}

	var out []structuralConflict
	for _, s := range plan.Structural() {
		if _, ok := a.validate(s); !ok {
			continue
		}
		var c structuralConflict
		for _, d := range docs {
			if d.Target == s.Target || (s.Kind == core.EditRemoveNode && d.Target.Node == s.Target.Node) {
				c.Candidates = append(c.Candidates, candidateOf(d))
				c.edits = append(c.edits, keyOf(d))
			}
		}
		if len(c.edits) == 0 {
			continue
		}
		c.Target = s.Target
		c.Candidates = append(c.Candidates, candidateOf(s))
		c.edits = append(c.edits, keyOf(s))
		out = append(out, c)
	}
	return out
}

// blockEdit gathers every requested text for one docs block.
type blockEdit struct {
	edit       core.Edit
	texts      map[string]bool
	candidates []Candidate
}

func (b *blockEdit) add(e core.Edit) {
	if b.texts == nil {
		b.texts = make(map[string]bool)
	}
	b.texts[e.Text] = true
	b.candidates = append(b.candidates, candidateOf(e))
}

func (b *blockEdit) conflict() bool {
	return len(b.texts) > 1
}

func (a *Applier) validate(e core.Edit) (string, bool) {
	if !e.Kind.IsValid() {
		return fmt.Sprintf("unknown edit kind %q", e.Kind), false
	}
	n, ok := a.graph.Node(e.Target.Node)
	if !ok {
		return fmt.Sprintf("%s targets unknown node %q", e.Kind, e.Target.Node), false
	}
	if e.Kind == core.EditRemoveNode {
		return "", true
	}
	if _, ok := n.Column(e.Target.Column); !ok {
		return fmt.Sprintf("%s targets unknown column %q", e.Kind, e.Target.String()), false
	}
	switch e.Kind {
	case core.EditSetDocsRef:
		if _, ok := a.graph.DocsBlock(e.DocsRef); !ok {
			return fmt.Sprintf("docs block %q does not exist", e.DocsRef), false
		}
	case core.EditSetDocsBlock:
		if _, ok := a.graph.DocsBlock(e.DocsBlock); !ok {
			return fmt.Sprintf("docs block %q does not exist", e.DocsBlock), false
		}
	}
	return "", true
}

// isNoop reports whether the edit's effect already holds in the graph.
func (a *Applier) isNoop(e core.Edit) bool {
	n, _ := a.graph.Node(e.Target.Node)
	col, _ := n.Column(e.Target.Column)
	switch e.Kind {
	case core.EditSetDescription:
		return col.DocsRef == "" && col.Description == e.Text
	case core.EditSetDocsRef:
		return col.DocsRef == e.DocsRef
	case core.EditSetDocsBlock:
		b, _ := a.graph.DocsBlock(e.DocsBlock)
		return b.Text == e.Text
	default:
		return false
	}
}

func (a *Applier) filePath(e core.Edit) string {
	if e.Kind == core.EditSetDocsBlock {
		return ""
	}
	n, ok := a.graph.Node(e.Target.Node)
	if !ok {
		return ""
	}
	if n.PatchPath != "" {
		return n.PatchPath
	}
	return n.FilePath
}

func (a *Applier) finding(ruleID string, sev core.Severity, target core.ColumnRef, msg string) core.Finding {
	return core.Finding{
		RuleID:   ruleID,
		Severity: sev,
		Node:     target.Node,
		Column:   target.Column,
		Message:  msg,
		FilePath: a.filePath(core.Edit{Target: target}),
	}
}

func (a *Applier) conflictFinding(c Conflict) core.Finding {
	f := a.finding(RuleConflict, core.SeverityWarning, c.Target, c.String())
	for _, src := range c.Sources() {
		if src != c.Target.Node {
			f.Related = append(f.Related, src)
		}
	}
	return f
}

// sortable positions an edit in the intent stream: node rank, then column
// position (node-level edits last), then kind.
type sortable struct {
	edit   core.Edit
	rank   int
	column int
}

func (a *Applier) sortable(e core.Edit) sortable {
	s := sortable{edit: e, rank: a.graph.Rank(e.Target.Node)}
	target := e.Target
	if e.Kind == core.EditSetDocsBlock {
		if users := a.graph.DocsBlockUsers(e.DocsBlock); len(users) > 0 {
			target = users[0]
			s.rank = a.graph.Rank(target.Node)
		}
	}
	n, _ := a.graph.Node(target.Node)
	switch {
	case e.Kind == core.EditRemoveNode || n == nil:
		s.column = int(^uint(0) >> 1)
	default:
		s.column = n.ColumnIndex(target.Column)
	}
	return s
}

var kindOrder = map[core.EditKind]int{
	core.EditSetDocsBlock:   0,
	core.EditSetDocsRef:     1,
	core.EditSetDescription: 2,
	core.EditRemoveColumn:   3,
	core.EditRemoveNode:     4,
}

func (s sortable) less(o sortable) bool {
	if s.rank != o.rank {
		return s.rank < o.rank
	}
	if s.column != o.column {
		return s.column < o.column
	}
	if kindOrder[s.edit.Kind] != kindOrder[o.edit.Kind] {
		return kindOrder[s.edit.Kind] < kindOrder[o.edit.Kind]
	}
	return s.edit.Target.String() < o.edit.Target.String()
}
