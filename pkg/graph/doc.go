// Package graph builds the immutable project graph that every other
// component reads from.
//
// A Graph is built once per run from an Input of nodes, reference edges,
// column lineage links and docs blocks. Build rejects duplicate names,
// dangling references and reference cycles; once built the graph is
// read-only and safe for concurrent use.
package graph
