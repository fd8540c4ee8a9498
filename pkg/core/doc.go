// Package core defines the shared language of the leaplint system.
//
// This package contains:
//   - Graph entities (Node, Column, Edge, DocsBlock, LineageLink)
//   - Lint results (Severity, Finding)
//   - Proposed changes (Edit, EditKind)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
