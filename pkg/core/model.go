package core

import "strings"

// NodeKind identifies what kind of project resource a node is.
type NodeKind string

// Node kinds.
const (
	KindSource   NodeKind = "source"
	KindSeed     NodeKind = "seed"
	KindModel    NodeKind = "model"
	KindSnapshot NodeKind = "snapshot"
	KindExposure NodeKind = "exposure"
)

// ParseNodeKind converts a string to a NodeKind.
func ParseNodeKind(s string) (NodeKind, bool) {
	switch k := NodeKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSource, KindSeed, KindModel, KindSnapshot, KindExposure:
		return k, true
	default:
		return "", false
	}
}

// Layer is the architectural layer a node belongs to.
type Layer string

// Layer constants.
const (
	LayerStaging      Layer = "staging"
	LayerIntermediate Layer = "intermediate"
	LayerMarts        Layer = "marts"
	LayerOther        Layer = "other"
)

// ParseLayer converts a string to a Layer. Unknown values map to LayerOther.
func ParseLayer(s string) Layer {
	switch l := Layer(strings.ToLower(strings.TrimSpace(s))); l {
	case LayerStaging, LayerIntermediate, LayerMarts:
		return l
	default:
		return LayerOther
	}
}

// RelationKind describes how a downstream column relates to an upstream column.
type RelationKind string

const (
	// RelationPassthrough means the column is copied unchanged under the same name.
	RelationPassthrough RelationKind = "passthrough"
	// RelationRenamed means the value is copied unchanged under a different name.
	RelationRenamed RelationKind = "renamed"
	// RelationTransformed means the column is derived from an expression.
	RelationTransformed RelationKind = "transformed"
)

// ParseRelationKind converts a string to a RelationKind.
func ParseRelationKind(s string) (RelationKind, bool) {
	switch r := RelationKind(strings.ToLower(strings.TrimSpace(s))); r {
	case RelationPassthrough, RelationRenamed, RelationTransformed:
		return r, true
	case "direct", "":
		return RelationPassthrough, true
	case "rename":
		return RelationRenamed, true
	case "expr", "expression", "derived":
		return RelationTransformed, true
	default:
		return "", false
	}
}

// RefKind is the kind of reference an edge represents.
type RefKind string

// Reference kinds.
const (
	RefModel  RefKind = "ref"
	RefSource RefKind = "source"
)

// Access is the governance access level of a model.
type Access string

// Access levels.
const (
	AccessPrivate   Access = "private"
	AccessProtected Access = "protected"
	AccessPublic    Access = "public"
)

// Node is a named data-producing unit in the project graph.
// Parents and children are derived by the graph package, not stored here.
type Node struct {
	// Name is the unique node name (e.g., "stg_customers")
	Name string
	// Kind is the resource kind
	Kind NodeKind
	// Layer is the architectural layer
	Layer Layer
	// Materialized defines how the model is stored: table, view, incremental, ephemeral
	Materialized string
	// Description is the node-level description
	Description string
	// FilePath is the project-relative path of the node's SQL or definition file
	FilePath string
	// PatchPath is the project-relative path of the properties file that documents this node
	PatchPath string
	// Tags are metadata labels
	Tags []string
	// Columns in declaration order
	Columns []Column
	// Tests attached to the node or its columns
	Tests []Test
	// Access is the governance access level
	Access Access
	// ContractEnforced is true when the model has an enforced contract
	ContractEnforced bool
	// Freshness holds source freshness thresholds (sources only)
	Freshness *Freshness
	// Meta contains custom extension fields
	Meta map[string]any
}

// Column returns the column with the given name.
func (n *Node) Column(name string) (*Column, bool) {
	for i := range n.Columns {
		if n.Columns[i].Name == name {
			return &n.Columns[i], true
		}
	}
	return nil, false
}

// ColumnIndex returns the declaration position of a column, or -1.
func (n *Node) ColumnIndex(name string) int {
	for i := range n.Columns {
		if n.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// IsPublic reports whether the node is a public model.
func (n *Node) IsPublic() bool {
	return n.Access == AccessPublic
}

// Column is a column owned by a node.
type Column struct {
	Name        string
	Description string
	// DocsRef is the name of a shared docs block, empty when not referenced
	DocsRef  string
	DataType string
	// Lineage lists upstream columns this column is derived from, in declaration order
	Lineage []LineageLink
}

// HasDescription reports whether the column carries a literal description or a docs reference.
// A docs reference to an empty block is still reported as documented here; callers that care
// about rendered text resolve the block through the graph.
func (c *Column) HasDescription() bool {
	return c.DocsRef != "" || strings.TrimSpace(c.Description) != ""
}

// LineageLink maps a column to one upstream (node, column) pair.
type LineageLink struct {
	Node     string
	Column   string
	Relation RelationKind
}

// Edge is a directed reference from a child node to a parent node.
type Edge struct {
	Child  string
	Parent string
	Kind   RefKind
	// Ordinal is the declaration position of this reference within the child
	Ordinal int
}

// DocsBlock is a named, shared block of documentation text.
type DocsBlock struct {
	Name string
	Text string
}

// TestKind classifies data tests.
type TestKind string

// Test kinds.
const (
	TestUnique         TestKind = "unique"
	TestNotNull        TestKind = "not_null"
	TestPrimaryKey     TestKind = "primary_key"
	TestRelationships  TestKind = "relationships"
	TestAcceptedValues TestKind = "accepted_values"
	TestOther          TestKind = "other"
)

// Test is a data test attached to a node, optionally scoped to a column.
type Test struct {
	Name   string
	Kind   TestKind
	Column string
}

// Freshness holds source freshness thresholds.
type Freshness struct {
	WarnAfter  string
	ErrorAfter string
	// LoadedAtField is the timestamp column used for freshness checks
	LoadedAtField string
}

// IsSet reports whether any freshness threshold is configured.
func (f *Freshness) IsSet() bool {
	return f != nil && (f.WarnAfter != "" || f.ErrorAfter != "")
}
