package core

// EditKind is the kind of change a plan edit or edit intent performs.
type EditKind string

// Edit kinds. Description, docs reference and docs block text edits are safe;
// removals are structural.
const (
	EditSetDescription EditKind = "set_description"
	EditSetDocsRef     EditKind = "set_docs_ref"
	EditSetDocsBlock   EditKind = "set_docs_block_text"
	EditRemoveColumn   EditKind = "remove_column"
	EditRemoveNode     EditKind = "remove_node"
)

// IsStructural reports whether the edit changes project structure rather than documentation.
func (k EditKind) IsStructural() bool {
	return k == EditRemoveColumn || k == EditRemoveNode
}

// IsValid reports whether k is a known edit kind.
func (k EditKind) IsValid() bool {
	switch k {
	case EditSetDescription, EditSetDocsRef, EditSetDocsBlock, EditRemoveColumn, EditRemoveNode:
		return true
	default:
		return false
	}
}

// ColumnRef identifies a column of a node.
type ColumnRef struct {
	Node   string `json:"node"`
	Column string `json:"column"`
}

func (r ColumnRef) String() string {
	if r.Column == "" {
		return r.Node
	}
	return r.Node + "." + r.Column
}

// Edit is a single proposed change to project metadata.
type Edit struct {
	Kind EditKind `json:"kind"`
	// Target is the column (or node, for node removal) the edit applies to
	Target ColumnRef `json:"target"`
	// DocsBlock names the block for EditSetDocsBlock edits
	DocsBlock string `json:"docs_block,omitempty"`
	// Text is the new description or docs block text
	Text string `json:"text,omitempty"`
	// DocsRef is the docs block a column should reference
	DocsRef string `json:"docs_ref,omitempty"`
	// Provenance is the upstream column the value was inherited from
	Provenance *ColumnRef `json:"provenance,omitempty"`
	// Reason is a short human explanation, set for rule-proposed edits
	Reason string `json:"reason,omitempty"`
	// RuleID is the rule that proposed the edit, empty for propagation
	RuleID string `json:"rule_id,omitempty"`
}

// Key returns the plan key of the edit. Docs block text edits are keyed by the
// column that requested them; the fix applier collapses them per block.
func (e Edit) Key() ColumnRef {
	return e.Target
}
