package graph

import (
	"strings"

	"github.com/leapstack-labs/leaplint/pkg/core"
)

// InferLayer determines a node's layer when the input does not supply one:
//  1. `layer` in node meta (highest priority)
//  2. a layer directory in the file path
//  3. a layer prefix on the node name
//
// Only models and snapshots are layered; every other kind is LayerOther.
func InferLayer(n *core.Node) core.Layer {
	if n.Kind != core.KindModel && n.Kind != core.KindSnapshot {
		return core.LayerOther
	}

	if n.Meta != nil {
		if v, ok := n.Meta["layer"].(string); ok {
			if l := core.ParseLayer(v); l != core.LayerOther {
				return l
			}
		}
	}

	path := "/" + strings.ToLower(strings.ReplaceAll(n.FilePath, "\\", "/"))
	switch {
	case strings.Contains(path, "/staging/"):
		return core.LayerStaging
	case strings.Contains(path, "/intermediate/"):
		return core.LayerIntermediate
	case strings.Contains(path, "/marts/"):
		return core.LayerMarts
	}

	name := strings.ToLower(n.Name)
	switch {
	case strings.HasPrefix(name, "stg_"), strings.HasPrefix(name, "base_"):
		return core.LayerStaging
	case strings.HasPrefix(name, "int_"):
		return core.LayerIntermediate
	case strings.HasPrefix(name, "fct_"), strings.HasPrefix(name, "dim_"):
		return core.LayerMarts
	}

	return core.LayerOther
}
