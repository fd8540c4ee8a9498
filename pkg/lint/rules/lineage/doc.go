// Package lineage provides column-lineage rules.
//
// These rules need lineage facts for columns; nodes without column lineage
// are skipped rather than reported.
//
//   - PL01: Passthrough Bloat - Model has too many passthrough columns
//   - PL02: Unused Columns - Column of a non-leaf node is never consumed downstream (unsafe)
package lineage
