package propagate

import "github.com/leapstack-labs/leaplint/pkg/core"

// Policy controls what the planner may propose.
type Policy struct {
	// FillFromUpstream enables propagation at all
	FillFromUpstream bool `koanf:"fill_from_upstream"`
	// PropagateDocsBlocks proposes docs block references instead of copied text
	// when the upstream column uses a block
	PropagateDocsBlocks bool `koanf:"propagate_docs_blocks"`
	// ForceInherit also considers columns that are already documented
	ForceInherit bool `koanf:"force_inherit"`
	// AllowTransformedSource lets transformed lineage links supply candidates
	AllowTransformedSource bool `koanf:"allow_transformed_source"`
}

// DefaultPolicy returns the conservative default: nothing is filled unless
// FillFromUpstream is turned on, and docs blocks are preferred when it is.
func DefaultPolicy() Policy {
	return Policy{PropagateDocsBlocks: true}
}

func (p Policy) follows(rel core.RelationKind) bool {
	switch rel {
	case core.RelationPassthrough, core.RelationRenamed:
		return true
	case core.RelationTransformed:
		return p.AllowTransformedSource
	default:
		return false
	}
}
