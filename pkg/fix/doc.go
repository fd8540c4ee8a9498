// Package fix holds fix plans and turns them into edit intents.
//
// A Plan collects proposed edits keyed by (node, column) plus the conflicts
// that could not be resolved without guessing. The Applier validates a plan
// against a safety mode, deduplicates docs block edits, orders everything
// deterministically and emits Intents for an external, structure-preserving
// writer. Anything it will not emit comes back as findings.
package fix
