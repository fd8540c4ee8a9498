package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle indicates the reference edges contain a cycle.
	ErrCycle = errors.New("graph: reference cycle")
	// ErrDanglingReference indicates an edge, lineage link or docs reference that does not resolve.
	ErrDanglingReference = errors.New("graph: dangling reference")
	// ErrDuplicateNode indicates two nodes share a name.
	ErrDuplicateNode = errors.New("graph: duplicate node")
	// ErrDuplicateColumn indicates two columns of one node share a name.
	ErrDuplicateColumn = errors.New("graph: duplicate column")
	// ErrDuplicateDocsBlock indicates two docs blocks share a name.
	ErrDuplicateDocsBlock = errors.New("graph: duplicate docs block")
)

// CycleError reports a reference cycle. Path starts and ends with the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reference cycle: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// ReferenceKind says what kind of reference dangles.
type ReferenceKind string

// Reference kinds.
const (
	RefEdgeParent ReferenceKind = "edge_parent"
	RefEdgeChild  ReferenceKind = "edge_child"
	RefLineage    ReferenceKind = "lineage"
	RefDocsBlock  ReferenceKind = "docs_ref"
)

// DanglingReference is one reference whose target does not exist.
type DanglingReference struct {
	Kind ReferenceKind
	// From is the node or node.column holding the reference
	From string
	// Node is the node that owns the reference, used to attach findings
	Node string
	// Column is the owning column, empty for edges
	Column string
	// Target is the unresolved name
	Target string
}

func (r DanglingReference) String() string {
	return fmt.Sprintf("%s %s -> %s", r.Kind, r.From, r.Target)
}

// DanglingReferenceError lists every dangling reference found during Build.
type DanglingReferenceError struct {
	References []DanglingReference
}

func (e *DanglingReferenceError) Error() string {
	parts := make([]string, len(e.References))
	for i, r := range e.References {
		parts[i] = r.String()
	}
	return fmt.Sprintf("%d dangling reference(s): %s", len(e.References), strings.Join(parts, "; "))
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// IsGraphError reports whether err means the input does not form a valid graph.
func IsGraphError(err error) bool {
	return errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrDanglingReference) ||
		errors.Is(err, ErrDuplicateNode) ||
		errors.Is(err, ErrDuplicateColumn) ||
		errors.Is(err, ErrDuplicateDocsBlock)
}
